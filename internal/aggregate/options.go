package aggregate

import (
	"time"

	"github.com/Aman-CERP/evidencemcp/internal/cache"
	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/search"
)

// Options tunes one Aggregator.
type Options struct {
	SourceTimeout  time.Duration
	MaxConcurrency int
	PerSourceLimit int
	// MaxPerCategory truncates each consolidated list. Zero keeps all.
	MaxPerCategory int
	CacheTTL       time.Duration
	RRFConstant    int
	Rerank         config.RerankConfig
	Retry          errors.RetryConfig
	// BreakerFailures consecutive failures open a source's circuit for
	// BreakerReset.
	BreakerFailures int
	BreakerReset    time.Duration
}

// DefaultOptions mirrors config.NewConfig.
func DefaultOptions() Options {
	return OptionsFromConfig(config.NewConfig())
}

// OptionsFromConfig derives Options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	retry := errors.DefaultRetryConfig()
	retry.MaxRetries = max(cfg.Aggregation.Retries, 0)

	return Options{
		SourceTimeout:   config.Duration(cfg.Aggregation.SourceTimeout, 8*time.Second),
		MaxConcurrency:  cfg.Aggregation.MaxConcurrency,
		PerSourceLimit:  cfg.Aggregation.PerSourceLimit,
		MaxPerCategory:  cfg.Aggregation.MaxPerCategory,
		CacheTTL:        cache.TTL(cfg.Cache),
		RRFConstant:     cfg.Fusion.RRFConstant,
		Rerank:          cfg.Rerank,
		Retry:           retry,
		BreakerFailures: 5,
		BreakerReset:    30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = 8 * time.Second
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 8
	}
	if o.PerSourceLimit <= 0 {
		o.PerSourceLimit = 25
	}
	if o.RRFConstant <= 0 {
		o.RRFConstant = search.DefaultRRFConstant
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerReset <= 0 {
		o.BreakerReset = 30 * time.Second
	}
	return o
}
