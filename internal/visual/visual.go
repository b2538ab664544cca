package visual

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/tapsight/internal/models"
	"github.com/lehigh-university-libraries/tapsight/internal/providers"
)

// AspectRatio is the fixed shape of generated illustrations
const AspectRatio = "1:1"

// Client generates illustrative images for recognition results
type Client struct {
	backend providers.ImageGenerator
}

// NewClient returns a visual asset client
func NewClient(backend providers.ImageGenerator) *Client {
	return &Client{backend: backend}
}

// Prompt wraps a visual prompt in the monochrome illustration template
func Prompt(subject string) string {
	return fmt.Sprintf("A grayscale, monochrome, artistic noir architectural photograph of: %s. High contrast, cinematic lighting.", subject)
}

// Generate returns an inline image for the prompt, the quota sentinel when
// the backend is exhausted, or an absent asset on any other failure.
func (c *Client) Generate(ctx context.Context, prompt string) models.VisualAsset {
	img, err := c.backend.GenerateImage(ctx, providers.ImageRequest{
		Prompt:      Prompt(prompt),
		AspectRatio: AspectRatio,
	})
	switch {
	case err == nil:
	case providers.IsQuotaExceeded(err):
		slog.Warn("Visual generation quota exceeded", "err", err)
		return models.QuotaExceededAsset()
	case errors.Is(err, context.Canceled):
		slog.Debug("Visual generation cancelled")
		return models.VisualAsset{Kind: models.AssetAbsent}
	default:
		slog.Error("Visual generation failed", "err", err)
		return models.VisualAsset{Kind: models.AssetAbsent}
	}

	if img == nil || len(img.Data) == 0 {
		slog.Error("Visual generation returned no image data")
		return models.VisualAsset{Kind: models.AssetAbsent}
	}
	return models.ImageAsset(DataURI(img))
}

// DataURI renders an image as a self-contained data URI
func DataURI(img *providers.Image) string {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
