package ollama

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

// Config holds the Ollama endpoint settings
type Config struct {
	URL         string
	Model       string
	Temperature float64
}

// Ollama is a provider for a local Ollama server. It only serves recognition.
type Ollama struct {
	cfg        Config
	httpClient *http.Client
}

// New returns a new Ollama provider
func New(cfg Config) *Ollama {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral-small3.2:24b"
	}
	return &Ollama{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Recognize identifies the object in the request image, constraining output with a JSON schema
func (o *Ollama) Recognize(ctx context.Context, req providers.RecognizeRequest) (string, error) {
	url := strings.TrimSuffix(o.cfg.URL, "/") + "/api/generate"

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":  o.cfg.Model,
		"prompt": req.Prompt,
		"images": []string{base64.StdEncoding.EncodeToString(req.Image.Data)},
		"format": jsonSchema(req.Fields),
		"stream": false,
		"options": map[string]interface{}{
			"temperature": o.cfg.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", providers.CheckResponse(resp.StatusCode, body)
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return response.Response, nil
}

// GenerateImage is not available on Ollama
func (o *Ollama) GenerateImage(ctx context.Context, req providers.ImageRequest) (*providers.Image, error) {
	return nil, fmt.Errorf("ollama image generation: %w", providers.ErrUnsupported)
}

// SynthesizeSpeech is not available on Ollama
func (o *Ollama) SynthesizeSpeech(ctx context.Context, req providers.SpeechRequest) (*providers.Audio, error) {
	return nil, fmt.Errorf("ollama speech synthesis: %w", providers.ErrUnsupported)
}

func jsonSchema(fields []providers.Field) map[string]interface{} {
	properties := make(map[string]interface{}, len(fields))
	required := []string{}
	for _, f := range fields {
		properties[f.Name] = map[string]string{
			"type":        string(f.Type),
			"description": f.Description,
		}
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
