package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/metrics"
)

const (
	// DefaultTTL is used when Put is called with a non-positive ttl.
	DefaultTTL = 24 * time.Hour
	// DefaultOpTimeout bounds every backend call.
	DefaultOpTimeout = 250 * time.Millisecond
)

// EvidenceCache is the best-effort front of a Store. It never returns
// errors: an unreachable or failing backend behaves like an empty cache.
type EvidenceCache struct {
	store     Store
	breaker   *errors.CircuitBreaker
	stats     *Stats
	opTimeout time.Duration
	logger    *slog.Logger
}

// Option configures an EvidenceCache.
type Option func(*EvidenceCache)

// WithOpTimeout sets the per-call backend timeout.
func WithOpTimeout(d time.Duration) Option {
	return func(c *EvidenceCache) {
		if d > 0 {
			c.opTimeout = d
		}
	}
}

// WithLogger sets the logger used for backend errors.
func WithLogger(l *slog.Logger) Option {
	return func(c *EvidenceCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *errors.CircuitBreaker) Option {
	return func(c *EvidenceCache) {
		if cb != nil {
			c.breaker = cb
		}
	}
}

// New wraps store. A nil store disables caching.
func New(store Store, opts ...Option) *EvidenceCache {
	if store == nil {
		store = NopStore{}
	}
	c := &EvidenceCache{
		store:     store,
		breaker:   errors.NewCircuitBreaker("cache", errors.WithMaxFailures(3), errors.WithResetTimeout(30*time.Second)),
		stats:     &Stats{},
		opTimeout: DefaultOpTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get looks up the payload cached for (query, source).
func (c *EvidenceCache) Get(ctx context.Context, query, source string) ([]byte, bool) {
	key := Key(query, source)

	res, err := errors.CircuitExecute(c.breaker, func() (lookup, error) {
		opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
		defer cancel()
		v, ok, err := c.store.Get(opCtx, key)
		return lookup{value: v, found: ok}, err
	})
	if err != nil {
		c.stats.RecordError()
		c.stats.RecordMiss()
		metrics.ObserveCache(source, "error")
		c.logBackendError("get", source, err)
		return nil, false
	}

	if !res.found {
		c.stats.RecordMiss()
		metrics.ObserveCache(source, "miss")
		return nil, false
	}
	c.stats.RecordHit()
	metrics.ObserveCache(source, "hit")
	return res.value, true
}

// Put stores payload for (query, source). Failures are logged and dropped.
func (c *EvidenceCache) Put(ctx context.Context, query, source string, payload []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key := Key(query, source)

	err := c.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
		defer cancel()
		return c.store.Set(opCtx, key, payload, ttl)
	})
	if err != nil {
		c.stats.RecordError()
		c.logBackendError("put", source, err)
	}
}

// Stats returns the live counters.
func (c *EvidenceCache) Stats() *Stats {
	return c.stats
}

// Close releases the backend.
func (c *EvidenceCache) Close() error {
	return c.store.Close()
}

type lookup struct {
	value []byte
	found bool
}

func (c *EvidenceCache) logBackendError(op, source string, err error) {
	if err == errors.ErrCircuitOpen {
		c.logger.Debug("cache_backend_skipped", slog.String("op", op), slog.String("source", source))
		return
	}
	cerr := errors.New(errors.ErrCodeCacheUnavailable, "cache backend "+op+" failed", err).
		WithDetail("source", source)
	c.logger.Warn("cache_backend_error", errors.LogAttrs(cerr)...)
}
