package agent

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/martinemde/openagent/openaichat"
)

// Provider identifies a known local inference server. Each provider has a
// conventional base URL and a reasonable default model, all overridable.
type Provider string

const (
	ProviderLMStudio Provider = "lmstudio"
	ProviderOllama   Provider = "ollama"
	ProviderLlamaCpp Provider = "llamacpp"
	ProviderVLLM     Provider = "vllm"
)

type providerDefaults struct {
	baseURL string
	model   string
}

var knownProviders = map[Provider]providerDefaults{
	ProviderLMStudio: {baseURL: "http://localhost:1234/v1", model: "local-model"},
	ProviderOllama:   {baseURL: "http://localhost:11434/v1", model: "llama3.2"},
	ProviderLlamaCpp: {baseURL: "http://localhost:8080/v1", model: "default"},
	ProviderVLLM:     {baseURL: "http://localhost:8000/v1", model: "default"},
}

// envConfig captures environment overrides. Values set here take precedence
// over provider defaults but not over explicit option calls.
type envConfig struct {
	BaseURL string `env:"OPENAGENT_BASE_URL"`
	Model   string `env:"OPENAGENT_MODEL"`
	APIKey  string `env:"OPENAGENT_API_KEY"`
}

// Config holds the resolved connection settings for a session.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
}

// ResolveConfig layers provider defaults, environment overrides, and
// explicit values. Explicit values win; empty strings fall through.
func ResolveConfig(provider Provider, explicit Config) (Config, error) {
	defaults, ok := knownProviders[provider]
	if provider != "" && !ok {
		return Config{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: fmt.Sprintf("unknown provider %q", provider),
		}}
	}

	var fromEnv envConfig
	if err := env.Parse(&fromEnv); err != nil {
		return Config{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: "parsing environment configuration", Cause: err,
		}}
	}

	cfg := Config{
		BaseURL: firstNonEmpty(explicit.BaseURL, fromEnv.BaseURL, defaults.baseURL),
		Model:   firstNonEmpty(explicit.Model, fromEnv.Model, defaults.model),
		APIKey:  firstNonEmpty(explicit.APIKey, fromEnv.APIKey),
	}
	if cfg.BaseURL == "" {
		return Config{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: "base URL is required: set one explicitly, via OPENAGENT_BASE_URL, or pick a provider",
		}}
	}
	if cfg.Model == "" {
		return Config{}, &openaichat.ConfigurationError{SDKError: openaichat.SDKError{
			Message: "model is required: set one explicitly, via OPENAGENT_MODEL, or pick a provider",
		}}
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
