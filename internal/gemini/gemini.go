package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/tapsight/internal/providers"
	"google.golang.org/api/option"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds the Gemini model and credential settings
type Config struct {
	APIKey           string
	RecognitionModel string
	ImageModel       string
	SpeechModel      string
	Voice            string
	Temperature      float64
	// BaseURL overrides the REST endpoint used for image and speech generation
	BaseURL string
}

// Gemini is a provider for Google Gemini
type Gemini struct {
	cfg        Config
	httpClient *http.Client
}

// New returns a new Gemini provider
func New(cfg Config) *Gemini {
	if cfg.RecognitionModel == "" {
		cfg.RecognitionModel = "gemini-3-flash-preview"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gemini-2.5-flash-image"
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = "gemini-2.5-flash-preview-tts"
	}
	if cfg.Voice == "" {
		cfg.Voice = "Kore"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Gemini{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (g *Gemini) checkCredential() error {
	if g.cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable not set: %w", providers.ErrMissingCredential)
	}
	return nil
}

// Recognize identifies the object in the request image using a structured JSON response
func (g *Gemini) Recognize(ctx context.Context, req providers.RecognizeRequest) (string, error) {
	if err := g.checkCredential(); err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.cfg.APIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.cfg.RecognitionModel)
	if g.cfg.Temperature > 0 {
		model.SetTemperature(float32(g.cfg.Temperature))
	}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = responseSchema(req.Fields)

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data},
		genai.Text(req.Prompt),
	)
	if err != nil {
		if providers.IsQuotaExceeded(err) {
			return "", fmt.Errorf("%w: %v", providers.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return responseText(resp)
}

func responseSchema(fields []providers.Field) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(fields)),
	}
	for _, f := range fields {
		prop := &genai.Schema{Type: genai.TypeString, Description: f.Description}
		if f.Type == providers.FieldNumber {
			prop.Type = genai.TypeNumber
		}
		schema.Properties[f.Name] = prop
		if f.Required {
			schema.Required = append(schema.Required, f.Name)
		}
	}
	return schema
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}
	return sb.String(), nil
}
