package embed

import (
	"context"
	"fmt"
	"strings"
)

// Provider names an embedding backend.
type Provider string

const (
	ProviderStatic Provider = "static"
	ProviderOllama Provider = "ollama"
)

// Config selects and configures an embedder.
type Config struct {
	Provider Provider
	Ollama   OllamaConfig
	// CacheSize is the LRU size; negative disables caching.
	CacheSize int
}

// NewEmbedder builds the configured provider and wraps it in an LRU
// cache unless CacheSize is negative.
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case ProviderStatic, "":
		e = NewStaticEmbedder()
	case ProviderOllama:
		e, err = NewOllamaEmbedder(ctx, cfg.Ollama)
		if err != nil {
			return nil, fmt.Errorf("ollama unavailable: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown embedder provider %q (use: static, ollama)", cfg.Provider)
	}

	if cfg.CacheSize < 0 {
		return e, nil
	}
	return NewCachedEmbedder(e, cfg.CacheSize), nil
}
