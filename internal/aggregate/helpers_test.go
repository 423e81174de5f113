package aggregate

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/logging"
	"github.com/Aman-CERP/evidencemcp/internal/source"
)

func rec(id, title string, types ...string) *evidence.Record {
	return &evidence.Record{ID: id, Title: title, Types: types}
}

// stubQuerier returns fixed records and remembers every query it saw.
type stubQuerier struct {
	records []*evidence.Record
	err     error
	calls   atomic.Int32

	mu      sync.Mutex
	queries []string
}

func (s *stubQuerier) Query(_ context.Context, text string, _ int) ([]*evidence.Record, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.queries = append(s.queries, text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func (s *stubQuerier) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func literature(name string, q source.Querier) source.Source {
	return source.Source{Name: name, Category: evidence.CategoryLiterature, Querier: q}
}

// testOptions disables retries and reranking so tests see the fused order.
func testOptions() Options {
	o := DefaultOptions()
	o.Retry = errors.RetryConfig{MaxRetries: 0}
	o.Rerank.Enabled = false
	o.SourceTimeout = 2 * time.Second
	return o
}

func newTestAggregator(t *testing.T, deps Deps, opts Options) *Aggregator {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return New(deps, opts)
}

func keys(list []evidence.ScoredRecord) []string {
	out := make([]string, len(list))
	for i, sr := range list {
		out[i] = sr.Record.ID
	}
	return out
}

// keywordEmbedder maps text mentioning "statin" to one axis and everything
// else to the other.
type keywordEmbedder struct{}

func (keywordEmbedder) vector(text string) []float32 {
	if strings.Contains(strings.ToLower(text), "statin") {
		return []float32{1, 0}
	}
	return []float32{0, 1}
}

func (k keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return k.vector(text), nil
}

func (k keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = k.vector(t)
	}
	return out, nil
}

func (keywordEmbedder) Dimensions() int                { return 2 }
func (keywordEmbedder) ModelName() string              { return "keyword" }
func (keywordEmbedder) Available(context.Context) bool { return true }
func (keywordEmbedder) Close() error                   { return nil }
