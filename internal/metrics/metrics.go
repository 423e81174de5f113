// Package metrics exposes Prometheus instrumentation for source calls,
// cache lookups, fusion and reranking.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	sourceLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evidence_source_latency_ms",
		Help:    "Latency of evidence source calls in milliseconds",
		Buckets: []float64{25, 50, 100, 250, 500, 1000, 2000, 4000, 8000},
	}, []string{"source", "outcome"})

	sourceResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evidence_source_results",
		Help:    "Number of records returned by a source call",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	}, []string{"source"})

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evidence_cache_lookups_total",
		Help: "Cache lookups by outcome (hit/miss/error)",
	}, []string{"source", "outcome"})

	fusionLists = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evidence_fusion_input_lists",
		Help:    "Number of lists fused per category",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 12},
	})

	rerankDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evidence_rerank_decisions_total",
		Help: "Rerank decisions per category (applied/skipped/fallback)",
	}, []string{"category", "decision"})

	sufficiencyScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evidence_sufficiency_score",
		Help:    "Distribution of evidence sufficiency scores",
		Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(sourceLatency, sourceResults, cacheLookups, fusionLists, rerankDecisions, sufficiencyScore)
	})
}

// ObserveSource records latency and result count for one source call.
func ObserveSource(source string, start time.Time, results int, outcome string) {
	ensureRegistered()
	sourceLatency.WithLabelValues(source, outcome).Observe(float64(time.Since(start).Milliseconds()))
	sourceResults.WithLabelValues(source).Observe(float64(results))
}

// ObserveCache counts a cache lookup outcome.
func ObserveCache(source, outcome string) {
	ensureRegistered()
	cacheLookups.WithLabelValues(source, outcome).Inc()
}

// ObserveFusion records how many lists were fused.
func ObserveFusion(n int) {
	ensureRegistered()
	fusionLists.Observe(float64(n))
}

// IncRerank records a rerank decision for a category.
func IncRerank(category, decision string) {
	ensureRegistered()
	rerankDecisions.WithLabelValues(category, decision).Inc()
}

// ObserveSufficiency records a package's sufficiency score.
func ObserveSufficiency(score int) {
	ensureRegistered()
	sufficiencyScore.Observe(float64(score))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	ensureRegistered()
	return promhttp.Handler()
}
