package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/tapsight/internal/providers"
)

const (
	defaultBaseURL = "https://api.openai.com"
	// audio/speech "pcm" output is 24kHz mono signed 16-bit little-endian
	pcmSampleRate = 24000
)

// Config holds the OpenAI model and credential settings
type Config struct {
	APIKey      string
	Model       string
	ImageModel  string
	SpeechModel string
	Voice       string
	Temperature float64
	BaseURL     string
}

// OpenAI is a provider for OpenAI
type OpenAI struct {
	cfg        Config
	httpClient *http.Client
}

// New returns a new OpenAI provider
func New(cfg Config) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gpt-image-1"
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = "gpt-4o-mini-tts"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &OpenAI{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Recognize identifies the object in the request image via chat completions in JSON mode
func (o *OpenAI) Recognize(ctx context.Context, req providers.RecognizeRequest) (string, error) {
	requestBody := map[string]interface{}{
		"model": o.cfg.Model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": req.Prompt + "\n\n" + schemaInstructions(req.Fields),
					},
					{
						"type": "image_url",
						"image_url": map[string]string{
							"url": "data:" + req.Image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data),
						},
					},
				},
			},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     o.cfg.Temperature,
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := o.postJSON(ctx, "/v1/chat/completions", requestBody, &response); err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}
	return response.Choices[0].Message.Content, nil
}

// GenerateImage requests a square illustration as base64 JSON
func (o *OpenAI) GenerateImage(ctx context.Context, req providers.ImageRequest) (*providers.Image, error) {
	requestBody := map[string]interface{}{
		"model":  o.cfg.ImageModel,
		"prompt": req.Prompt,
		"size":   imageSize(req.AspectRatio),
		"n":      1,
	}

	var response struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := o.postJSON(ctx, "/v1/images/generations", requestBody, &response); err != nil {
		return nil, err
	}

	if len(response.Data) == 0 || response.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("no image returned from OpenAI")
	}
	data, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return &providers.Image{Data: data, MIMEType: "image/png"}, nil
}

// SynthesizeSpeech requests raw PCM narration
func (o *OpenAI) SynthesizeSpeech(ctx context.Context, req providers.SpeechRequest) (*providers.Audio, error) {
	voice := req.Voice
	if voice == "" {
		voice = o.cfg.Voice
	}
	requestBody := map[string]interface{}{
		"model":           o.cfg.SpeechModel,
		"input":           req.Text,
		"voice":           voice,
		"response_format": "pcm",
	}

	resp, err := o.post(ctx, "/v1/audio/speech", requestBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio body: %w", err)
	}
	return &providers.Audio{PCM: pcm, SampleRate: pcmSampleRate, Channels: 1}, nil
}

func (o *OpenAI) postJSON(ctx context.Context, path string, body, out interface{}) error {
	resp, err := o.post(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// post sends an authenticated JSON request; the caller closes the body of a successful response
func (o *OpenAI) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	if o.cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set: %w", providers.ErrMissingCredential)
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimSuffix(o.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, providers.CheckResponse(resp.StatusCode, respBody)
	}
	return resp, nil
}

func schemaInstructions(fields []providers.Field) string {
	var sb strings.Builder
	sb.WriteString("Respond with ONLY a JSON object with these fields:\n")
	for _, f := range fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		fmt.Fprintf(&sb, "- %s (%s, %s): %s\n", f.Name, f.Type, req, f.Description)
	}
	return sb.String()
}

func imageSize(aspectRatio string) string {
	switch aspectRatio {
	case "16:9", "3:2":
		return "1536x1024"
	case "9:16", "2:3":
		return "1024x1536"
	default:
		return "1024x1024"
	}
}
