package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LIBRETRANSLATE_API_URL", "LIBRETRANSLATE_API_KEY",
		"TSUYAKU_SOURCE_LANG", "TSUYAKU_TARGET_LANG", "TSUYAKU_LOCALE",
		"TSUYAKU_PROVIDER", "TSUYAKU_DEVICE", "TSUYAKU_SILENCE_STOP_MS",
		"GROQ_API_KEY", "OPENAI_API_KEY", "DEEPGRAM_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Translation.Source != "ja" || cfg.Translation.Target != "en" {
		t.Fatalf("expected ja->en, got %s->%s", cfg.Translation.Source, cfg.Translation.Target)
	}
	if cfg.Recognition.Locale != "ja-JP" {
		t.Fatalf("expected ja-JP locale, got %q", cfg.Recognition.Locale)
	}
	if cfg.Translation.APIKey != "" {
		t.Fatal("expected no api key by default")
	}
	if cfg.Recognition.Provider != "" {
		t.Fatalf("expected no provider without keys, got %q", cfg.Recognition.Provider)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRETRANSLATE_API_URL", "https://lt.example.com/translate")
	t.Setenv("LIBRETRANSLATE_API_KEY", "secret")
	t.Setenv("GROQ_API_KEY", "gsk")
	t.Setenv("TSUYAKU_SILENCE_STOP_MS", "5000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Translation.URL != "https://lt.example.com/translate" {
		t.Fatalf("expected url override, got %q", cfg.Translation.URL)
	}
	if cfg.Translation.APIKey != "secret" {
		t.Fatal("expected api key override")
	}
	if cfg.Recognition.Provider != "groq" {
		t.Fatalf("expected groq to be detected, got %q", cfg.Recognition.Provider)
	}
	if cfg.ProviderKey() != "gsk" {
		t.Fatalf("expected groq key, got %q", cfg.ProviderKey())
	}
	if cfg.Recognition.SilenceStopMS != 5000 {
		t.Fatalf("expected silence override, got %d", cfg.Recognition.SilenceStopMS)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tsuyaku.yaml")
	data := `
translation:
  url: https://libretranslate.example.org/translate
  source: ja
  target: fr
recognition:
  provider: openai
  silence_stop_ms: 0
keys:
  openai: sk-test
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Translation.Target != "fr" {
		t.Fatalf("expected target fr, got %q", cfg.Translation.Target)
	}
	if cfg.Recognition.Locale != "ja-JP" {
		t.Fatalf("expected default locale kept, got %q", cfg.Recognition.Locale)
	}
	if cfg.Recognition.SilenceStopMS != 0 {
		t.Fatalf("expected silence stop disabled, got %d", cfg.Recognition.SilenceStopMS)
	}
	if cfg.ProviderKey() != "sk-test" {
		t.Fatalf("expected openai key, got %q", cfg.ProviderKey())
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.Translation.URL = "/translate" }},
		{"empty target", func(c *Config) { c.Translation.Target = "" }},
		{"empty locale", func(c *Config) { c.Recognition.Locale = "" }},
		{"unknown provider", func(c *Config) { c.Recognition.Provider = "whisper.cpp" }},
		{"negative silence", func(c *Config) { c.Recognition.SilenceStopMS = -1 }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
