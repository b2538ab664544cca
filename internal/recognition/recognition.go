package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/tapsight/internal/models"
	"github.com/lehigh-university-libraries/tapsight/internal/overrides"
	"github.com/lehigh-university-libraries/tapsight/internal/providers"
)

var (
	// ErrConfig means no credential is configured; setup is incomplete
	ErrConfig = errors.New("recognition backend is not configured")
	// ErrQuotaExceeded means the backend reported resource exhaustion
	ErrQuotaExceeded = errors.New("recognition quota exceeded")
	// ErrRecognitionFailure covers every other backend or parse failure
	ErrRecognitionFailure = errors.New("recognition failed")
)

// Fields is the structured response shape requested from the backend
var Fields = []providers.Field{
	{Name: "name", Type: providers.FieldString, Description: "Short common name of the object", Required: true},
	{Name: "category", Type: providers.FieldString, Description: "General category", Required: true},
	{Name: "description", Type: providers.FieldString, Description: "One-sentence informative description", Required: true},
	{Name: "funFact", Type: providers.FieldString, Description: "Detailed facts", Required: true},
	{Name: "visualPrompt", Type: providers.FieldString, Description: "Prompt for AI image generation", Required: true},
	{Name: "confidence", Type: providers.FieldNumber, Description: "Confidence score between 0 and 1", Required: true},
}

// Client identifies the object at a tap point
type Client struct {
	backend   providers.Recognizer
	overrides *overrides.Table
}

// NewClient returns a recognition client. A nil table disables overrides.
func NewClient(backend providers.Recognizer, table *overrides.Table) *Client {
	return &Client{backend: backend, overrides: table}
}

// Identify sends one recognition request for the image and tap, then applies
// the override table to the parsed result. Errors wrap ErrConfig,
// ErrQuotaExceeded or ErrRecognitionFailure.
func (c *Client) Identify(ctx context.Context, image models.EncodedImage, tap models.TapPoint) (*models.RecognitionResult, error) {
	data, mimeType, err := image.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionFailure, err)
	}

	raw, err := c.backend.Recognize(ctx, providers.RecognizeRequest{
		Image:  providers.Image{Data: data, MIMEType: mimeType},
		Prompt: c.buildPrompt(tap),
		Fields: Fields,
	})
	if err != nil {
		return nil, classify(err)
	}

	result, err := parseResult(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionFailure, err)
	}

	applied, matched := c.overrides.Apply(*result)
	if matched {
		slog.Debug("Override applied", "raw_name", result.Name, "name", applied.Name)
	}
	return &applied, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, providers.ErrMissingCredential):
		return fmt.Errorf("%w: %v", ErrConfig, err)
	case providers.IsQuotaExceeded(err):
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	default:
		return fmt.Errorf("%w: %v", ErrRecognitionFailure, err)
	}
}

func (c *Client) buildPrompt(tap models.TapPoint) string {
	tap = tap.Clamp()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Strictly identify the object located at the user click point (%d%%, %d%%).",
		int(math.Round(tap.X)), int(math.Round(tap.Y)))

	if hints := c.overrides.Hints(); len(hints) > 0 {
		sb.WriteString("\n\nSPECIAL OVERRIDES:")
		for i, h := range hints {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, h)
		}
		fmt.Fprintf(&sb, "\n%d. Otherwise, identify the object naturally.", len(hints)+1)
	}
	return sb.String()
}

// rawResult mirrors the response schema; pointers expose missing required fields
type rawResult struct {
	Name         *string  `json:"name"`
	Category     *string  `json:"category"`
	Description  *string  `json:"description"`
	FunFact      *string  `json:"funFact"`
	VisualPrompt *string  `json:"visualPrompt"`
	Confidence   *float64 `json:"confidence"`
}

func parseResult(response string) (*models.RecognitionResult, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if response == "" {
		return nil, fmt.Errorf("empty response body")
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse structured response: %w", err)
	}

	var missing []string
	for name, present := range map[string]bool{
		"name":         raw.Name != nil && strings.TrimSpace(*raw.Name) != "",
		"category":     raw.Category != nil,
		"description":  raw.Description != nil,
		"funFact":      raw.FunFact != nil,
		"visualPrompt": raw.VisualPrompt != nil,
		"confidence":   raw.Confidence != nil,
	} {
		if !present {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("response missing required fields: %s", strings.Join(missing, ", "))
	}

	return &models.RecognitionResult{
		Name:         strings.TrimSpace(*raw.Name),
		Category:     *raw.Category,
		Description:  *raw.Description,
		FunFact:      *raw.FunFact,
		VisualPrompt: *raw.VisualPrompt,
		Confidence:   normalizeConfidence(*raw.Confidence),
	}, nil
}

// normalizeConfidence maps percentages onto [0,1] and clamps the rest
func normalizeConfidence(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 && v <= 100 {
		v /= 100
	}
	return math.Min(v, 1)
}
