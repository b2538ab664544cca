package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/tapsight/internal/models"
)

// MaxFrameBytes caps a single frame
const MaxFrameBytes = 10 * 1024 * 1024

// Frame is a decoded-enough camera frame
type Frame struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Encoded returns the frame as base64 for the recognition client
func (f *Frame) Encoded() models.EncodedImage {
	return models.EncodedImage{
		Data:     base64.StdEncoding.EncodeToString(f.Data),
		MIMEType: f.MIMEType,
	}
}

// Fetcher retrieves frames from local files and remote URLs
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new frame fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads a frame from a file path or an http(s) URL
func (f *Fetcher) Load(ctx context.Context, source string) (*Frame, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.Download(ctx, source)
	}

	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()
	return Read(file)
}

// Download fetches a frame over HTTP
func (f *Fetcher) Download(ctx context.Context, imageURL string) (*Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	frame, err := Read(resp.Body)
	if err != nil {
		return nil, err
	}
	slog.Debug("Frame downloaded", "url", imageURL, "bytes", len(frame.Data), "width", frame.Width, "height", frame.Height)
	return frame, nil
}

// Read consumes r and validates that it holds a decodable image
func Read(r io.Reader) (*Frame, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFrameBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return FromBytes(data)
}

// FromBytes validates raw image bytes
func FromBytes(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	if len(data) > MaxFrameBytes {
		return nil, fmt.Errorf("image too large (max %d bytes)", MaxFrameBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", err)
	}

	return &Frame{
		Data:     data,
		MIMEType: http.DetectContentType(data),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}
