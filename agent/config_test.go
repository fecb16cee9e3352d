package agent

import (
	"errors"
	"testing"

	"github.com/martinemde/openagent/openaichat"
)

func TestResolveConfigProviderDefaults(t *testing.T) {
	tests := []struct {
		provider Provider
		baseURL  string
	}{
		{ProviderLMStudio, "http://localhost:1234/v1"},
		{ProviderOllama, "http://localhost:11434/v1"},
		{ProviderLlamaCpp, "http://localhost:8080/v1"},
		{ProviderVLLM, "http://localhost:8000/v1"},
	}
	for _, tt := range tests {
		cfg, err := ResolveConfig(tt.provider, Config{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.provider, err)
		}
		if cfg.BaseURL != tt.baseURL {
			t.Errorf("%s: expected %s, got %s", tt.provider, tt.baseURL, cfg.BaseURL)
		}
		if cfg.Model == "" {
			t.Errorf("%s: expected a default model", tt.provider)
		}
	}
}

func TestResolveConfigEnvOverridesDefaults(t *testing.T) {
	t.Setenv("OPENAGENT_BASE_URL", "http://remote:9999/v1")
	t.Setenv("OPENAGENT_MODEL", "env-model")
	t.Setenv("OPENAGENT_API_KEY", "env-key")

	cfg, err := ResolveConfig(ProviderOllama, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://remote:9999/v1" {
		t.Errorf("expected env base URL, got %s", cfg.BaseURL)
	}
	if cfg.Model != "env-model" || cfg.APIKey != "env-key" {
		t.Errorf("expected env model and key, got %+v", cfg)
	}
}

func TestResolveConfigExplicitWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAGENT_BASE_URL", "http://env:1/v1")
	t.Setenv("OPENAGENT_MODEL", "env-model")

	cfg, err := ResolveConfig(ProviderOllama, Config{
		BaseURL: "http://explicit:2/v1",
		Model:   "explicit-model",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://explicit:2/v1" || cfg.Model != "explicit-model" {
		t.Errorf("expected explicit values to win, got %+v", cfg)
	}
}

func TestResolveConfigUnknownProvider(t *testing.T) {
	_, err := ResolveConfig(Provider("mystery"), Config{})
	var cfg *openaichat.ConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestResolveConfigNoProviderNoBaseURL(t *testing.T) {
	t.Setenv("OPENAGENT_BASE_URL", "")
	t.Setenv("OPENAGENT_MODEL", "")
	_, err := ResolveConfig("", Config{})
	var cfg *openaichat.ConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestResolveConfigNoProviderExplicitValues(t *testing.T) {
	cfg, err := ResolveConfig("", Config{BaseURL: "http://host:1/v1", Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://host:1/v1" || cfg.Model != "m" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
