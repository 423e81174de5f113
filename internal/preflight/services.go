package preflight

import (
	"context"
	"fmt"
	"time"

	"github.com/Aman-CERP/evidencemcp/internal/cache"
	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/embed"
)

const probeKey = "evidencemcp:doctor:probe"

// CheckCache opens the configured backend and round-trips one entry.
// Cache failures never stop the server, so the check is advisory.
func (c *Checker) CheckCache(ctx context.Context, cfg config.CacheConfig) CheckResult {
	result := CheckResult{Name: "cache", Details: "backend=" + cfg.Backend}

	if cfg.Backend == "none" {
		result.Status = StatusPass
		result.Message = "disabled"
		return result
	}

	st, err := cache.NewStore(cfg)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%v (searches run uncached)", err)
		return result
	}
	defer func() { _ = st.Close() }()

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if rs, ok := st.(*cache.RedisStore); ok {
		if err := rs.Ping(probeCtx); err != nil {
			result.Status = StatusWarn
			result.Message = fmt.Sprintf("redis %s unreachable: %v", cfg.RedisAddr, err)
			return result
		}
	}

	want := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := st.Set(probeCtx, probeKey, want, time.Minute); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("write failed: %v", err)
		return result
	}
	got, found, err := st.Get(probeCtx, probeKey)
	switch {
	case err != nil:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("read failed: %v", err)
	case !found || string(got) != string(want):
		result.Status = StatusWarn
		result.Message = "entry written but not read back"
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%s backend round-trip ok", cfg.Backend)
	}
	return result
}

// CheckEmbedder reports whether the configured provider is usable. An
// unreachable Ollama server is a warning: reranking falls back to static
// embeddings.
func (c *Checker) CheckEmbedder(ctx context.Context, cfg config.EmbeddingsConfig) CheckResult {
	result := CheckResult{Name: "embeddings", Details: "provider=" + cfg.Provider}

	switch embed.ProviderType(cfg.Provider) {
	case embed.ProviderStatic, "":
		result.Status = StatusPass
		result.Message = fmt.Sprintf("static (%d dimensions)", embed.NewStaticEmbedder(cfg.Dimensions).Dimensions())
	case embed.ProviderOllama:
		if c.offline {
			result.Status = StatusSkip
			result.Message = "ollama probe skipped (offline)"
			return result
		}
		ollama := embed.NewOllamaEmbedder(embed.OllamaConfig{
			Host:          cfg.OllamaHost,
			Model:         cfg.Model,
			MaxInputChars: cfg.MaxInputChars,
		})
		defer func() { _ = ollama.Close() }()

		probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if !ollama.Available(probeCtx) {
			result.Status = StatusWarn
			result.Message = fmt.Sprintf("ollama at %s unavailable; falling back to static", cfg.OllamaHost)
			return result
		}
		result.Status = StatusPass
		result.Message = fmt.Sprintf("ollama %s ready", cfg.Model)
	default:
		result.Status = StatusFail
		result.Required = true
		result.Message = fmt.Sprintf("unknown provider %q", cfg.Provider)
	}
	return result
}
