package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/evidencemcp/internal/config"
)

// ProviderType represents an embedding provider.
type ProviderType string

const (
	// ProviderStatic uses hash-based embeddings (offline default).
	ProviderStatic ProviderType = "static"
	// ProviderOllama uses a local Ollama server.
	ProviderOllama ProviderType = "ollama"
)

// NewEmbedder builds the configured provider wrapped in an LRU cache.
// An unreachable Ollama server falls back to the static embedder so
// reranking keeps working, with a warning.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingsConfig, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var embedder Embedder
	switch ProviderType(cfg.Provider) {
	case ProviderStatic, "":
		embedder = NewStaticEmbedder(cfg.Dimensions)

	case ProviderOllama:
		ollama := NewOllamaEmbedder(OllamaConfig{
			Host:          cfg.OllamaHost,
			Model:         cfg.Model,
			MaxInputChars: cfg.MaxInputChars,
		})
		if ollama.Available(ctx) {
			embedder = ollama
			break
		}
		_ = ollama.Close()
		logger.Warn("embedder_fallback",
			slog.String("provider", cfg.Provider),
			slog.String("host", cfg.OllamaHost),
			slog.String("fallback", string(ProviderStatic)))
		embedder = NewStaticEmbedder(cfg.Dimensions)

	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}
	return embedder, nil
}
