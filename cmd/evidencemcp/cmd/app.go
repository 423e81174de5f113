package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Aman-CERP/evidencemcp/internal/aggregate"
	"github.com/Aman-CERP/evidencemcp/internal/cache"
	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/conflict"
	"github.com/Aman-CERP/evidencemcp/internal/embed"
	everr "github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/search"
	"github.com/Aman-CERP/evidencemcp/internal/source"
	"github.com/Aman-CERP/evidencemcp/internal/sufficiency"
	"github.com/Aman-CERP/evidencemcp/internal/telemetry"
)

// app holds the long-lived services behind one CLI invocation.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	sources   *source.Set
	cache     *cache.EvidenceCache
	embedder  embed.Embedder
	telemetry *telemetry.Recorder
	agg       *aggregate.Aggregator
}

// newApp wires the aggregator from configuration. A cache backend that
// cannot be reached degrades to no caching.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.cache = newCache(ctx, cfg.Cache, logger)

	emb, err := embed.NewEmbedder(ctx, cfg.Embeddings, logger)
	if err != nil {
		_ = a.Close()
		return nil, everr.ConfigError("failed to create embedder", err)
	}
	a.embedder = emb

	set, err := source.Build(ctx, cfg, source.DefaultHTTPClient(), logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.sources = set

	a.telemetry = telemetry.Open(cfg.Telemetry, logger)

	a.agg = aggregate.New(aggregate.Deps{
		Sources:   set.Sources,
		Cache:     a.cache,
		Expander:  search.NewQueryExpander(search.WithMaxVariants(cfg.Expansion.MaxVariants)),
		Embedder:  emb,
		Scorer:    sufficiency.New(cfg.Sufficiency, sufficiency.WithLogger(logger)),
		Detector:  conflict.New(conflict.WithLogger(logger)),
		Telemetry: a.telemetry,
		Logger:    logger,
	}, aggregate.OptionsFromConfig(cfg))

	logger.Info("app_ready",
		slog.Int("sources", len(set.Sources)),
		slog.String("cache", cfg.Cache.Backend),
		slog.String("embedder", emb.ModelName()),
		slog.Bool("telemetry", a.telemetry != nil))
	return a, nil
}

func newCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) *cache.EvidenceCache {
	opTimeout := config.Duration(cfg.OpTimeout, cache.DefaultOpTimeout)

	st, err := cache.NewStore(cfg)
	if err != nil {
		logger.Warn("cache_backend_unavailable",
			slog.String("backend", cfg.Backend),
			slog.String("error", err.Error()))
		st = cache.NopStore{}
	}

	if rs, ok := st.(*cache.RedisStore); ok {
		pingCtx, cancel := context.WithTimeout(ctx, 2*opTimeout)
		if err := rs.Ping(pingCtx); err != nil {
			logger.Warn("cache_backend_unreachable",
				slog.String("backend", cfg.Backend),
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()))
		}
		cancel()
	}

	return cache.New(st,
		cache.WithLogger(logger),
		cache.WithOpTimeout(opTimeout),
		cache.WithBreaker(everr.NewCircuitBreaker("cache",
			everr.WithMaxFailures(3),
			everr.WithResetTimeout(30*time.Second))))
}

// Close releases every service that was created.
func (a *app) Close() error {
	var errs []error
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Close())
	}
	if a.sources != nil {
		errs = append(errs, a.sources.Close())
	}
	if a.embedder != nil {
		errs = append(errs, a.embedder.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	return errors.Join(errs...)
}
