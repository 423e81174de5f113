// Package aggregate runs one evidence request end to end: query expansion,
// parallel source fan-out with caching, per-category fusion and reranking,
// then the sufficiency and conflict enhancements.
package aggregate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/evidencemcp/internal/cache"
	"github.com/Aman-CERP/evidencemcp/internal/chunk"
	"github.com/Aman-CERP/evidencemcp/internal/conflict"
	"github.com/Aman-CERP/evidencemcp/internal/embed"
	"github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/metrics"
	"github.com/Aman-CERP/evidencemcp/internal/search"
	"github.com/Aman-CERP/evidencemcp/internal/source"
	"github.com/Aman-CERP/evidencemcp/internal/sufficiency"
	"github.com/Aman-CERP/evidencemcp/internal/telemetry"
)

// Deps are the collaborators of an Aggregator. Only Sources is required;
// everything else has a working default.
type Deps struct {
	Sources []source.Source
	Cache   *cache.EvidenceCache

	Expander *search.QueryExpander
	PICO     *search.PICOExtractor

	// Reranker wins over Embedder. With neither, a static embedder is
	// built on first use.
	Reranker *search.SemanticReranker
	Embedder embed.Embedder

	// Enhancements run in order after ranking. Nil means sufficiency
	// scoring followed by conflict detection.
	Enhancements []Enhancement
	Scorer       *sufficiency.Scorer
	Detector     *conflict.Detector

	Telemetry *telemetry.Recorder
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	sources      []source.Source
	cache        *cache.EvidenceCache
	expander     *search.QueryExpander
	pico         *search.PICOExtractor
	enhancements []Enhancement
	telemetry    *telemetry.Recorder
	logger       *slog.Logger
	now          func() time.Time
	opts         Options

	breakers map[string]*errors.CircuitBreaker

	rerankOnce sync.Once
	reranker   *search.SemanticReranker
	embedder   embed.Embedder
}

// New wires an Aggregator.
func New(deps Deps, opts Options) *Aggregator {
	opts = opts.withDefaults()

	a := &Aggregator{
		sources:   deps.Sources,
		cache:     deps.Cache,
		expander:  deps.Expander,
		pico:      deps.PICO,
		telemetry: deps.Telemetry,
		logger:    deps.Logger,
		now:       deps.Clock,
		opts:      opts,
		reranker:  deps.Reranker,
		embedder:  deps.Embedder,
		breakers:  make(map[string]*errors.CircuitBreaker, len(deps.Sources)),
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.cache == nil {
		a.cache = cache.New(nil, cache.WithLogger(a.logger))
	}
	if a.expander == nil {
		a.expander = search.NewQueryExpander()
	}
	if a.pico == nil {
		a.pico = search.NewPICOExtractor()
	}

	a.enhancements = deps.Enhancements
	if a.enhancements == nil {
		scorer := deps.Scorer
		if scorer == nil {
			scorer = sufficiency.NewDefault(sufficiency.WithLogger(a.logger))
		}
		detector := deps.Detector
		if detector == nil {
			detector = conflict.New(conflict.WithLogger(a.logger))
		}
		a.enhancements = []Enhancement{
			SufficiencyEnhancement{Scorer: scorer},
			ConflictEnhancement{Detector: detector},
		}
	}

	for _, s := range deps.Sources {
		a.breakers[s.Name] = errors.NewCircuitBreaker(s.Name,
			errors.WithMaxFailures(opts.BreakerFailures),
			errors.WithResetTimeout(opts.BreakerReset))
	}
	return a
}

// Sources returns the configured sources.
func (a *Aggregator) Sources() []source.Source {
	return a.sources
}

// Cache returns the result cache.
func (a *Aggregator) Cache() *cache.EvidenceCache {
	return a.cache
}

func (a *Aggregator) semanticReranker() *search.SemanticReranker {
	a.rerankOnce.Do(func() {
		if a.reranker != nil {
			return
		}
		e := a.embedder
		if e == nil {
			e = embed.NewStaticEmbedder(0)
		}
		a.reranker = search.NewSemanticReranker(e, search.WithRerankerLogger(a.logger))
	})
	return a.reranker
}

// Aggregate builds the evidence package for query. aux terms are appended
// as extra query variants. Source failures never fail the call: they leave
// a note in Package.SourceErrors. The only error is an empty query.
func (a *Aggregator) Aggregate(ctx context.Context, query string, aux []string) (*evidence.Package, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query must not be empty", nil).
			WithSuggestion("Pass a clinical question, e.g. \"statins for primary prevention\"")
	}
	start := a.now()

	pkg := evidence.NewPackage(query)
	pkg.RequestID = uuid.NewString()
	pkg.CreatedAt = start.UTC()
	pkg.PICO = a.pico.Extract(query)
	pkg.Variants = a.expander.AppendVariants(a.expander.Expand(query), aux)

	results := a.fetchAll(ctx, pkg.Variants)
	for _, f := range results.failures() {
		pkg.SourceErrors[f.source] = f.message
	}

	for _, category := range evidence.Categories {
		pkg.SetCollection(category, a.rankCategory(ctx, query, category, results))
	}
	pkg.Chunks = chunk.BuildCorpus(pkg.Records(), true)

	for _, e := range a.enhancements {
		a.runOrSkip(ctx, e, pkg)
	}

	records := len(pkg.Records())
	elapsed := a.now().Sub(start)
	metrics.ObserveSufficiency(pkg.Sufficiency.Score)
	a.telemetry.RecordQuery(telemetry.QueryEvent{
		Query:   query,
		Records: records,
		Level:   pkg.Sufficiency.Level,
		Latency: elapsed,
	})

	a.logger.Info("aggregation_complete",
		slog.String("request_id", pkg.RequestID),
		slog.Int("variants", len(pkg.Variants)),
		slog.Int("records", records),
		slog.Int("chunks", len(pkg.Chunks)),
		slog.Int("source_errors", len(pkg.SourceErrors)),
		slog.Int("sufficiency", pkg.Sufficiency.Score),
		slog.Int("conflicts", len(pkg.Conflicts)),
		slog.Duration("elapsed", elapsed))
	return pkg, nil
}
