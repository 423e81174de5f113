package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/evidencemcp/internal/embed"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/logging"
)

// fakeEmbedder returns fixed vectors by text; unknown text maps to the zero vector.
type fakeEmbedder struct {
	vectors  map[string][]float32
	dims     int
	failOn   string
	wrongLen bool
	batches  int
}

func (f *fakeEmbedder) vector(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return make([]float32, f.dims)
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.failOn != "" && text == f.failOn {
		return nil, errors.New("embed failed")
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batches++
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if f.failOn != "" && t == f.failOn {
			return nil, errors.New("batch failed")
		}
		out = append(out, f.vector(t))
	}
	if f.wrongLen {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                { return f.dims }
func (f *fakeEmbedder) ModelName() string              { return "fake" }
func (f *fakeEmbedder) Available(context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                   { return nil }

func newFake() *fakeEmbedder {
	return &fakeEmbedder{
		dims: 2,
		vectors: map[string][]float32{
			"query": {1, 0},
			"best":  {1, 0},
			"good":  {0.8, 0.6},
			"weak":  {0.6, 0.8},
			"ortho": {0, 1},
			"anti":  {-1, 0},
		},
	}
}

func textOf(s string) string { return s }

func TestRerank_SkipGuardKeepsOrder(t *testing.T) {
	// Given: fewer items than the skip threshold
	fake := newFake()
	r := NewSemanticReranker(fake, WithRerankerLogger(logging.Discard()))
	items := []string{"weak", "best"}

	// When: reranking with SkipIfFewResults=3
	out := Rerank(context.Background(), r, "query", items, textOf, RerankOptions{SkipIfFewResults: 3})

	// Then: input order, similarity 1.0, no embedding calls
	require.Len(t, out, 2)
	assert.Equal(t, "weak", out[0].Item)
	assert.Equal(t, 0, out[0].OriginalRank)
	assert.Equal(t, 1, out[1].OriginalRank)
	assert.Equal(t, 1.0, out[0].Score)
	assert.Equal(t, 1.0, out[1].Score)
	assert.Zero(t, fake.batches)
}

func TestRerank_OrdersBySimilarity(t *testing.T) {
	r := NewSemanticReranker(newFake(), WithRerankerLogger(logging.Discard()))
	items := []string{"weak", "ortho", "best", "good"}

	out := Rerank(context.Background(), r, "query", items, textOf, RerankOptions{})

	require.Len(t, out, 4)
	assert.Equal(t, []string{"best", "good", "weak", "ortho"}, Items(out))
	assert.Equal(t, 2, out[0].OriginalRank)
	assert.InDelta(t, 1.0, out[0].Score, 1e-6)
	assert.InDelta(t, 0.8, out[1].Score, 1e-6)
}

func TestRerank_MinSimilarityAndTopK(t *testing.T) {
	r := NewSemanticReranker(newFake(), WithRerankerLogger(logging.Discard()))
	items := []string{"weak", "ortho", "best", "good"}

	out := Rerank(context.Background(), r, "query", items, textOf, RerankOptions{MinSimilarity: 0.5, TopK: 2})

	assert.Equal(t, []string{"best", "good"}, Items(out))
}

func TestRerank_NegativeSimilarityClampedToZero(t *testing.T) {
	r := NewSemanticReranker(newFake(), WithRerankerLogger(logging.Discard()))

	out := Rerank(context.Background(), r, "query", []string{"anti", "best"}, textOf, RerankOptions{MinSimilarity: -1})

	require.Len(t, out, 2)
	assert.Equal(t, "anti", out[1].Item)
	assert.Equal(t, 0.0, out[1].Score)
}

func TestRerank_FailureFallsBackToOriginalOrder(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *fakeEmbedder)
	}{
		{"batch error", func(f *fakeEmbedder) { f.failOn = "good" }},
		{"query error", func(f *fakeEmbedder) { f.failOn = "query" }},
		{"wrong count", func(f *fakeEmbedder) { f.wrongLen = true }},
		{"dimension mismatch", func(f *fakeEmbedder) { f.vectors["good"] = []float32{1, 0, 0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: an embedder that misbehaves
			fake := newFake()
			tt.modify(fake)
			r := NewSemanticReranker(fake, WithRerankerLogger(logging.Discard()))
			items := []string{"weak", "good", "best"}

			// When: reranking
			out := Rerank(context.Background(), r, "query", items, textOf, RerankOptions{TopK: 1})

			// Then: same result as the skip guard
			require.Len(t, out, 3)
			assert.Equal(t, items, Items(out))
			for i, rr := range out {
				assert.Equal(t, i, rr.OriginalRank)
				assert.Equal(t, 1.0, rr.Score)
			}
		})
	}
}

func TestRerank_NilRerankerFallsBack(t *testing.T) {
	out := Rerank(context.Background(), nil, "query", []string{"a", "b"}, textOf, RerankOptions{})

	assert.Equal(t, []string{"a", "b"}, Items(out))
}

func TestRerank_EmptyInput(t *testing.T) {
	out := Rerank(context.Background(), NewSemanticReranker(newFake()), "query", nil, textOf, RerankOptions{})

	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestRerankChunks_KeepsProvenance(t *testing.T) {
	r := NewSemanticReranker(newFake(), WithRerankerLogger(logging.Discard()))
	chunks := []evidence.Chunk{
		{ID: "1:S:0", SourceID: "1", Index: 0, Text: "weak"},
		{ID: "2:S:3", SourceID: "2", Index: 3, Text: "best", Citation: evidence.Citation{Title: "Trial"}},
	}

	out := RerankChunks(context.Background(), r, "query", chunks, RerankOptions{})

	require.Len(t, out, 2)
	assert.Equal(t, "2:S:3", out[0].Item.ID)
	assert.Equal(t, "Trial", out[0].Item.Citation.Title)
	assert.Equal(t, 1, out[0].OriginalRank)
}

func TestRerankRecordsBySentence(t *testing.T) {
	// Given: records whose best sentences differ in similarity
	fake := newFake()
	fake.vectors["Weak."] = []float32{0.6, 0.8}
	fake.vectors["Best."] = []float32{1, 0}
	fake.vectors["Good."] = []float32{0.8, 0.6}
	fake.vectors["Only title"] = []float32{0, 1}
	r := NewSemanticReranker(fake, WithRerankerLogger(logging.Discard()))

	records := []*evidence.Record{
		{ID: "A", Abstract: "Weak. Good."},
		{ID: "B", Abstract: "Weak. Best."},
		{ID: "C", Title: "Only title"},
	}

	// When: reranking by sentence
	out := RerankRecordsBySentence(context.Background(), r, "query", records, RerankOptions{})

	// Then: each record is scored by its best sentence
	require.Len(t, out, 3)
	assert.Equal(t, "B", out[0].Record.ID)
	assert.Equal(t, "Best.", out[0].BestSentence)
	assert.Equal(t, 1, out[0].OriginalRank)
	assert.Equal(t, "A", out[1].Record.ID)
	assert.Equal(t, "Good.", out[1].BestSentence)
	assert.InDelta(t, 0.8, out[1].Score, 1e-6)
	assert.Equal(t, "C", out[2].Record.ID)
}

func TestRerankRecordsBySentence_SkipGuardAndTopK(t *testing.T) {
	r := NewSemanticReranker(newFake(), WithRerankerLogger(logging.Discard()))
	records := []*evidence.Record{{ID: "A"}, {ID: "B"}}

	skipped := RerankRecordsBySentence(context.Background(), r, "query", records, RerankOptions{SkipIfFewResults: 5})
	require.Len(t, skipped, 2)
	assert.Equal(t, "A", skipped[0].Record.ID)
	assert.Equal(t, 1.0, skipped[0].Score)

	limited := RerankRecordsBySentence(context.Background(), r, "query", records, RerankOptions{TopK: 1})
	assert.Len(t, limited, 1)
}

func TestSemanticReranker_UseCache(t *testing.T) {
	// Given: a reranker with an embedding cache
	fake := newFake()
	r := NewSemanticReranker(fake, WithEmbeddingCache(16), WithRerankerLogger(logging.Discard()))
	items := []string{"best", "good"}

	// When: reranking twice through the cache
	Rerank(context.Background(), r, "query", items, textOf, RerankOptions{UseCache: true})
	Rerank(context.Background(), r, "query", items, textOf, RerankOptions{UseCache: true})

	// Then: the second call never reaches the inner embedder
	assert.Equal(t, 1, fake.batches)

	cached, ok := r.cached.(*embed.CachedEmbedder)
	require.True(t, ok)
	hits, _ := cached.CacheStats()
	assert.Equal(t, int64(3), hits)
	assert.True(t, strings.HasPrefix(r.pick(false).ModelName(), "fake"))
}
