package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/tapsight/internal/config"
	"github.com/lehigh-university-libraries/tapsight/internal/gemini"
	"github.com/lehigh-university-libraries/tapsight/internal/journal"
	"github.com/lehigh-university-libraries/tapsight/internal/ollama"
	"github.com/lehigh-university-libraries/tapsight/internal/openai"
	"github.com/lehigh-university-libraries/tapsight/internal/overlay"
	"github.com/lehigh-university-libraries/tapsight/internal/overrides"
	"github.com/lehigh-university-libraries/tapsight/internal/providers"
	"github.com/lehigh-university-libraries/tapsight/internal/recognition"
	"github.com/lehigh-university-libraries/tapsight/internal/speech"
	"github.com/lehigh-university-libraries/tapsight/internal/storage"
	"github.com/lehigh-university-libraries/tapsight/internal/visual"
)

// Pipeline holds every long-lived component
type Pipeline struct {
	Config      *config.Config
	Backend     providers.Backend
	Overrides   *overrides.Table
	Recognition *recognition.Client
	Visuals     *visual.Client
	Speech      *speech.Client
	Controller  *overlay.Controller
	Journal     *journal.Journal
	Sessions    *storage.SessionStore
}

// NewBackend returns the backend selected by cfg.Provider
func NewBackend(cfg *config.Config) (providers.Backend, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.New(gemini.Config{
			APIKey:           cfg.Gemini.APIKey,
			RecognitionModel: cfg.Gemini.RecognitionModel,
			ImageModel:       cfg.Gemini.ImageModel,
			SpeechModel:      cfg.Gemini.SpeechModel,
			Voice:            cfg.Gemini.Voice,
			Temperature:      cfg.Gemini.Temperature,
			BaseURL:          cfg.Gemini.BaseURL,
		}), nil
	case config.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       cfg.OpenAI.Model,
			ImageModel:  cfg.OpenAI.ImageModel,
			SpeechModel: cfg.OpenAI.SpeechModel,
			Voice:       cfg.OpenAI.Voice,
			Temperature: cfg.OpenAI.Temperature,
			BaseURL:     cfg.OpenAI.BaseURL,
		}), nil
	case config.ProviderOllama:
		return ollama.New(ollama.Config{
			URL:         cfg.Ollama.URL,
			Model:       cfg.Ollama.Model,
			Temperature: cfg.Ollama.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// Voice returns the narration voice of the selected provider
func Voice(cfg *config.Config) string {
	if cfg.Provider == config.ProviderOpenAI {
		return cfg.OpenAI.Voice
	}
	return cfg.Gemini.Voice
}

// New builds a pipeline with the configured backend
func New(cfg *config.Config) (*Pipeline, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithBackend(cfg, backend)
}

// NewWithBackend builds a pipeline around an existing backend
func NewWithBackend(cfg *config.Config, backend providers.Backend) (*Pipeline, error) {
	table := overrides.Default()
	if cfg.Overrides.Path != "" {
		loaded, err := overrides.Load(cfg.Overrides.Path)
		if err != nil {
			return nil, err
		}
		table = loaded
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, err
	}

	var player speech.Player = speech.LogPlayer{}
	if cfg.Speech.OutputDir != "" {
		player = speech.WAVPlayer{Dir: cfg.Speech.OutputDir}
	}

	sessions := storage.New(storage.DefaultCapacity)
	recognizer := recognition.NewClient(backend, table)
	visuals := visual.NewClient(backend)

	p := &Pipeline{
		Config:      cfg,
		Backend:     backend,
		Overrides:   table,
		Recognition: recognizer,
		Visuals:     visuals,
		Speech:      speech.NewClient(backend, player, Voice(cfg)),
		Journal:     j,
		Sessions:    sessions,
	}
	p.Controller = overlay.New(recognizer, visuals,
		overlay.WithObserver(sessions.Observe),
		overlay.WithObserver(j.Observe),
	)

	slog.Debug("Pipeline ready",
		"provider", cfg.Provider,
		"overrides", len(table.Entries),
		"journal", cfg.Journal.Path,
		"speech_output", cfg.Speech.OutputDir)

	return p, nil
}

// Close waits for in-flight work and flushes the journal
func (p *Pipeline) Close() error {
	p.Controller.Close()
	p.Controller.Wait()
	p.Speech.Wait()
	return p.Journal.Flush()
}
