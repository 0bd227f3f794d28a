package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by the factory
const (
	EnvProvider = "SEMDEX_EMBEDDING_PROVIDER"
	EnvModel    = "SEMDEX_EMBEDDING_MODEL"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	CacheSize int
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q (set %s to %s, %s or %s)",
			ErrUnsupportedModel, cfg.Provider, EnvProvider, ProviderOllama, ProviderOpenAI, ProviderLocal)
	}
}

// NewFromEnv creates an embedder based on environment variables.
// SEMDEX_EMBEDDING_PROVIDER picks the provider (default: ollama); the
// local deterministic provider is never selected implicitly.
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider:  DetectProvider(),
		Model:     os.Getenv(EnvModel),
		CacheSize: 10000,
	})
}

// DetectProvider returns the provider that NewFromEnv would use
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	return ProviderOllama
}
