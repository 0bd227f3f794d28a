package chat

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by the factory
const (
	EnvProvider = "SEMDEX_CHAT_PROVIDER"
	EnvModel    = "SEMDEX_CHAT_MODEL"
)

// Config holds chat client configuration
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// New creates a chat client with explicit configuration
func New(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.Model)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q (set %s to %s or %s)",
			ErrUnsupportedModel, cfg.Provider, EnvProvider, ProviderOllama, ProviderOpenAI)
	}
}

// NewFromEnv creates a chat client based on environment variables.
// SEMDEX_CHAT_PROVIDER picks the provider (default: ollama).
func NewFromEnv() (Client, error) {
	return New(Config{
		Provider: DetectProvider(),
		Model:    os.Getenv(EnvModel),
	})
}

// DetectProvider returns the provider that NewFromEnv would use
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	return ProviderOllama
}
