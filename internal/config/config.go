package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// maxCardWidth is the widest info card the overlay renders, in pixels
const maxCardWidth = 400.0

type GeminiConfig struct {
	APIKey           string  `mapstructure:"api_key"`
	RecognitionModel string  `mapstructure:"recognition_model"`
	ImageModel       string  `mapstructure:"image_model"`
	SpeechModel      string  `mapstructure:"speech_model"`
	Voice            string  `mapstructure:"voice"`
	Temperature      float64 `mapstructure:"temperature"`
	BaseURL          string  `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	ImageModel  string  `mapstructure:"image_model"`
	SpeechModel string  `mapstructure:"speech_model"`
	Voice       string  `mapstructure:"voice"`
	Temperature float64 `mapstructure:"temperature"`
	BaseURL     string  `mapstructure:"base_url"`
}

type OllamaConfig struct {
	URL         string  `mapstructure:"url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

type OverridesConfig struct {
	// Path to a YAML override table; empty uses the built-in table
	Path string `mapstructure:"path"`
}

type JournalConfig struct {
	// Path to the parquet journal; empty keeps sightings in memory only
	Path string `mapstructure:"path"`
}

type SpeechConfig struct {
	// OutputDir receives narration WAV files; empty only logs narrations
	OutputDir string `mapstructure:"output_dir"`
}

type OverlayConfig struct {
	CardWidth float64 `mapstructure:"card_width"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// Config is the full application configuration
type Config struct {
	Provider  string          `mapstructure:"provider"`
	LogLevel  string          `mapstructure:"log_level"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	Overrides OverridesConfig `mapstructure:"overrides"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Overlay   OverlayConfig   `mapstructure:"overlay"`
	Server    ServerConfig    `mapstructure:"server"`
}

// Load reads configuration. configFile may be empty.
// Missing credentials are not an error here; they surface when a backend is called.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TAPSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"gemini.api_key": {"GEMINI_API_KEY", "API_KEY"},
		"openai.api_key": {"OPENAI_API_KEY"},
		"openai.model":   {"OPENAI_MODEL"},
		"ollama.url":     {"OLLAMA_URL"},
		"ollama.model":   {"OLLAMA_MODEL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("error binding %s: %v", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %v", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would make the pipeline unusable
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown provider %q (supported: gemini, openai, ollama)", c.Provider)
	}
	if c.Overlay.CardWidth <= 0 || c.Overlay.CardWidth > maxCardWidth {
		return fmt.Errorf("overlay.card_width must be in (0, %v], got %v", maxCardWidth, c.Overlay.CardWidth)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("log_level", "info")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.recognition_model", "gemini-3-flash-preview")
	v.SetDefault("gemini.image_model", "gemini-2.5-flash-image")
	v.SetDefault("gemini.speech_model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("gemini.voice", "Kore")
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.image_model", "gpt-image-1")
	v.SetDefault("openai.speech_model", "gpt-4o-mini-tts")
	v.SetDefault("openai.voice", "alloy")
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.base_url", "https://api.openai.com")

	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.model", "mistral-small3.2:24b")
	v.SetDefault("ollama.temperature", 0.2)

	v.SetDefault("overrides.path", "")
	v.SetDefault("journal.path", "sightings.parquet")
	v.SetDefault("speech.output_dir", "")
	v.SetDefault("overlay.card_width", 400)
	v.SetDefault("server.port", "8888")
}
