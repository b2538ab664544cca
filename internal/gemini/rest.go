package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/tapsight/internal/providers"
)

const (
	defaultSampleRate = 24000
	defaultChannels   = 1
)

type restRequest struct {
	Contents         []restContent         `json:"contents"`
	GenerationConfig *restGenerationConfig `json:"generationConfig,omitempty"`
}

type restContent struct {
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *restBlob `json:"inlineData,omitempty"`
}

type restBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type restGenerationConfig struct {
	ResponseModalities []string          `json:"responseModalities,omitempty"`
	ImageConfig        *restImageConfig  `json:"imageConfig,omitempty"`
	SpeechConfig       *restSpeechConfig `json:"speechConfig,omitempty"`
}

type restImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type restSpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type restResponse struct {
	Candidates []struct {
		Content struct {
			Parts []restPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateImage requests an illustration and returns the first inline image part
func (g *Gemini) GenerateImage(ctx context.Context, req providers.ImageRequest) (*providers.Image, error) {
	if err := g.checkCredential(); err != nil {
		return nil, err
	}

	body := restRequest{
		Contents: []restContent{{Parts: []restPart{{Text: req.Prompt}}}},
	}
	if req.AspectRatio != "" {
		body.GenerationConfig = &restGenerationConfig{
			ImageConfig: &restImageConfig{AspectRatio: req.AspectRatio},
		}
	}

	blob, err := g.generateInline(ctx, g.cfg.ImageModel, body)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &providers.Image{Data: data, MIMEType: mimeType}, nil
}

// SynthesizeSpeech requests PCM narration for the text using a prebuilt voice
func (g *Gemini) SynthesizeSpeech(ctx context.Context, req providers.SpeechRequest) (*providers.Audio, error) {
	if err := g.checkCredential(); err != nil {
		return nil, err
	}

	voice := req.Voice
	if voice == "" {
		voice = g.cfg.Voice
	}

	speech := &restSpeechConfig{}
	speech.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voice
	body := restRequest{
		Contents: []restContent{{Parts: []restPart{{Text: req.Text}}}},
		GenerationConfig: &restGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig:       speech,
		},
	}

	blob, err := g.generateInline(ctx, g.cfg.SpeechModel, body)
	if err != nil {
		return nil, err
	}

	pcm, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}

	rate, channels := audioFormat(blob.MIMEType)
	return &providers.Audio{PCM: pcm, SampleRate: rate, Channels: channels}, nil
}

// generateInline posts a generateContent request and returns the first inline data part
func (g *Gemini) generateInline(ctx context.Context, model string, body restRequest) (*restBlob, error) {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimSuffix(g.cfg.BaseURL, "/") + "/v1beta/models/" + model + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, providers.CheckResponse(resp.StatusCode, respBody)
	}

	var response restResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return part.InlineData, nil
			}
		}
	}
	return nil, fmt.Errorf("no inline data returned from Gemini")
}

// audioFormat reads rate and channel count from a mime type such as
// "audio/L16;codec=pcm;rate=24000".
func audioFormat(mimeType string) (int, int) {
	rate, channels := defaultSampleRate, defaultChannels
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return rate, channels
	}
	if v, err := strconv.Atoi(params["rate"]); err == nil && v > 0 {
		rate = v
	}
	if v, err := strconv.Atoi(params["channels"]); err == nil && v > 0 {
		channels = v
	}
	return rate, channels
}
