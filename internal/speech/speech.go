package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/tapsight/internal/providers"
)

const (
	// DefaultSampleRate applies when the backend does not report one
	DefaultSampleRate = 24000
	// DefaultVoice is the prebuilt narration voice
	DefaultVoice = "Kore"
)

// Client synthesizes and plays narration
type Client struct {
	backend providers.SpeechSynthesizer
	player  Player
	voice   string

	wg sync.WaitGroup
}

// NewClient returns a speech client. A nil player logs instead of playing.
func NewClient(backend providers.SpeechSynthesizer, player Player, voice string) *Client {
	if player == nil {
		player = LogPlayer{}
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &Client{backend: backend, player: player, voice: voice}
}

// Speak starts narration of text in the background. Failures are only
// logged, and playback outlives any overlay session.
func (c *Client) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.Narrate(context.Background(), text); err != nil {
			slog.Warn("TTS error", "err", err)
		}
	}()
}

// Wait blocks until all narrations started by Speak have finished
func (c *Client) Wait() {
	c.wg.Wait()
}

// Narrate synthesizes, decodes and plays text synchronously
func (c *Client) Narrate(ctx context.Context, text string) error {
	buf, err := c.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	if err := c.player.Play(ctx, buf); err != nil {
		return fmt.Errorf("failed to play narration: %w", err)
	}
	return nil
}

// Synthesize requests audio for text and decodes it into a playable buffer
func (c *Client) Synthesize(ctx context.Context, text string) (*Buffer, error) {
	audio, err := c.backend.SynthesizeSpeech(ctx, providers.SpeechRequest{Text: text, Voice: c.voice})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	if audio == nil || len(audio.PCM) == 0 {
		return nil, fmt.Errorf("no audio returned")
	}

	channels := audio.Channels
	if channels <= 0 {
		channels = 1
	}
	rate := audio.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	buf, err := Decode(audio.PCM, channels, rate)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}
	return buf, nil
}
