package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TranslationConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

type RecognitionConfig struct {
	Locale   string `yaml:"locale"`
	Provider string `yaml:"provider"` // groq, openai, deepgram
	Device   string `yaml:"device"`
	// SilenceStopMS ends a session after this much silence; 0 disables.
	SilenceStopMS int `yaml:"silence_stop_ms"`
}

type KeysConfig struct {
	Groq     string `yaml:"groq"`
	OpenAI   string `yaml:"openai"`
	Deepgram string `yaml:"deepgram"`
}

type Config struct {
	Translation TranslationConfig `yaml:"translation"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Keys        KeysConfig        `yaml:"keys"`
}

func Default() Config {
	return Config{
		Translation: TranslationConfig{
			URL:    "http://localhost:5000/translate",
			Source: "ja",
			Target: "en",
		},
		Recognition: RecognitionConfig{
			Locale:        "ja-JP",
			SilenceStopMS: 30000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if cfg.Recognition.Provider == "" {
		cfg.Recognition.Provider = detectProvider(cfg.Keys)
	}
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Translation.URL, "LIBRETRANSLATE_API_URL")
	overrideString(&cfg.Translation.APIKey, "LIBRETRANSLATE_API_KEY")
	overrideString(&cfg.Translation.Source, "TSUYAKU_SOURCE_LANG")
	overrideString(&cfg.Translation.Target, "TSUYAKU_TARGET_LANG")
	overrideString(&cfg.Recognition.Locale, "TSUYAKU_LOCALE")
	overrideString(&cfg.Recognition.Provider, "TSUYAKU_PROVIDER")
	overrideString(&cfg.Recognition.Device, "TSUYAKU_DEVICE")
	overrideInt(&cfg.Recognition.SilenceStopMS, "TSUYAKU_SILENCE_STOP_MS")
	overrideString(&cfg.Keys.Groq, "GROQ_API_KEY")
	overrideString(&cfg.Keys.OpenAI, "OPENAI_API_KEY")
	overrideString(&cfg.Keys.Deepgram, "DEEPGRAM_API_KEY")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

// detectProvider picks the first provider with a key, in the order the
// transcribers prefer them.
func detectProvider(keys KeysConfig) string {
	switch {
	case keys.Deepgram != "":
		return "deepgram"
	case keys.Groq != "":
		return "groq"
	case keys.OpenAI != "":
		return "openai"
	}
	return ""
}

// ProviderKey returns the API key configured for the selected provider.
func (c Config) ProviderKey() string {
	switch c.Recognition.Provider {
	case "groq":
		return c.Keys.Groq
	case "openai":
		return c.Keys.OpenAI
	case "deepgram":
		return c.Keys.Deepgram
	}
	return ""
}

func validate(cfg Config) error {
	if cfg.Translation.URL == "" {
		return errors.New("translation.url must not be empty")
	}
	u, err := url.Parse(cfg.Translation.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("translation.url is not an absolute URL: %q", cfg.Translation.URL)
	}
	if cfg.Translation.Source == "" || cfg.Translation.Target == "" {
		return errors.New("translation.source and translation.target must not be empty")
	}
	if cfg.Recognition.Locale == "" {
		return errors.New("recognition.locale must not be empty")
	}
	switch cfg.Recognition.Provider {
	case "", "groq", "openai", "deepgram":
	default:
		return errors.New("recognition.provider must be one of groq|openai|deepgram")
	}
	if cfg.Recognition.SilenceStopMS < 0 {
		return errors.New("recognition.silence_stop_ms must be >= 0")
	}
	return nil
}
