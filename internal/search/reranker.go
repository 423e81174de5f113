package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Aman-CERP/evidencemcp/internal/chunk"
	"github.com/Aman-CERP/evidencemcp/internal/embed"
	"github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// SemanticReranker orders items by cosine similarity between the query
// embedding and each item's text embedding.
//
// Reranking never fails: when embedding goes wrong the input order is
// returned unchanged and the failure is logged.
type SemanticReranker struct {
	embedder embed.Embedder
	cached   embed.Embedder
	logger   *slog.Logger
}

// RerankerOption configures a SemanticReranker.
type RerankerOption func(*SemanticReranker)

// WithRerankerLogger sets the logger for fallback warnings.
func WithRerankerLogger(l *slog.Logger) RerankerOption {
	return func(r *SemanticReranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithEmbeddingCache routes RerankOptions.UseCache calls through an LRU
// of the given size.
func WithEmbeddingCache(size int) RerankerOption {
	return func(r *SemanticReranker) {
		r.cached = embed.NewCachedEmbedder(r.embedder, size)
	}
}

// NewSemanticReranker creates a reranker over embedder. If the embedder is
// already cached it also serves UseCache calls.
func NewSemanticReranker(embedder embed.Embedder, opts ...RerankerOption) *SemanticReranker {
	r := &SemanticReranker{
		embedder: embedder,
		logger:   slog.Default(),
	}
	if c, ok := embedder.(*embed.CachedEmbedder); ok {
		r.cached = c
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *SemanticReranker) pick(useCache bool) embed.Embedder {
	if useCache && r.cached != nil {
		return r.cached
	}
	return r.embedder
}

// similarities embeds the query once and all texts in one batch.
func (r *SemanticReranker) similarities(ctx context.Context, query string, texts []string, useCache bool) ([]float64, error) {
	if r == nil || r.embedder == nil {
		return nil, errors.New(errors.ErrCodeRerankFailed, "no embedder configured", nil)
	}
	e := r.pick(useCache)

	qv, err := e.Embed(ctx, query)
	if err != nil {
		return nil, errors.New(errors.ErrCodeRerankFailed, "failed to embed query", err)
	}
	vecs, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, errors.New(errors.ErrCodeRerankFailed, "failed to embed items", err)
	}
	if len(vecs) != len(texts) {
		return nil, errors.New(errors.ErrCodeRerankFailed,
			fmt.Sprintf("embedder returned %d vectors for %d items", len(vecs), len(texts)), nil)
	}

	sims := make([]float64, len(vecs))
	for i, v := range vecs {
		sim, err := embed.CosineSimilarity(qv, v)
		if err != nil {
			return nil, errors.New(errors.ErrCodeRerankFailed, "failed to score item", err)
		}
		sims[i] = sim
	}
	return sims, nil
}

func (r *SemanticReranker) logFallback(query string, n int, err error) {
	logger := slog.Default()
	if r != nil && r.logger != nil {
		logger = r.logger
	}
	attrs := append([]any{slog.Int("items", n), slog.Int("query_len", len(query))}, errors.LogAttrs(err)...)
	logger.Warn("rerank_fallback", attrs...)
}

// passthrough returns items in input order with similarity 1.0.
func passthrough[T any](items []T) []RankedResult[T] {
	out := make([]RankedResult[T], len(items))
	for i, item := range items {
		out[i] = RankedResult[T]{Item: item, Score: 1.0, OriginalRank: i}
	}
	return out
}

// Rerank orders items by semantic similarity of text(item) to query.
//
// With fewer than opts.SkipIfFewResults items the input order is returned
// with similarity 1.0. Otherwise items below opts.MinSimilarity are
// dropped, the rest sorted by similarity (ties keep input order) and cut
// to opts.TopK. Negative similarities that pass the filter score 0.
func Rerank[T any](ctx context.Context, r *SemanticReranker, query string, items []T, text func(T) string, opts RerankOptions) []RankedResult[T] {
	if len(items) == 0 {
		return []RankedResult[T]{}
	}
	if len(items) < opts.SkipIfFewResults {
		return passthrough(items)
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = text(item)
	}

	sims, err := r.similarities(ctx, query, texts, opts.UseCache)
	if err != nil {
		r.logFallback(query, len(items), err)
		return passthrough(items)
	}

	out := make([]RankedResult[T], 0, len(items))
	for i, item := range items {
		if sims[i] < opts.MinSimilarity {
			continue
		}
		out = append(out, RankedResult[T]{
			Item:         item,
			Score:        max(sims[i], 0),
			OriginalRank: i,
		})
	}

	slices.SortStableFunc(out, func(a, b RankedResult[T]) int {
		return compareScoreDesc(a.Score, b.Score)
	})
	if opts.TopK > 0 && len(out) > opts.TopK {
		out = out[:opts.TopK]
	}
	return out
}

// RerankChunks reranks sentence chunks, keeping each chunk's provenance.
func RerankChunks(ctx context.Context, r *SemanticReranker, query string, chunks []evidence.Chunk, opts RerankOptions) []RankedResult[evidence.Chunk] {
	return Rerank(ctx, r, query, chunks, func(c evidence.Chunk) string { return c.Text }, opts)
}

// SentenceMatch is a record scored by its best-matching sentence.
type SentenceMatch struct {
	Record       *evidence.Record
	Score        float64
	OriginalRank int
	BestSentence string
}

// RerankRecordsBySentence scores each record by the similarity of its best
// sentence to the query. Records without body text are scored on their
// title. opts.TopK and opts.SkipIfFewResults apply to records;
// opts.MinSimilarity applies to sentences, so a record with no sentence
// above it is dropped.
func RerankRecordsBySentence(ctx context.Context, r *SemanticReranker, query string, records []*evidence.Record, opts RerankOptions) []SentenceMatch {
	if len(records) == 0 {
		return []SentenceMatch{}
	}
	if len(records) < opts.SkipIfFewResults {
		out := make([]SentenceMatch, len(records))
		for i, rec := range records {
			out[i] = SentenceMatch{Record: rec, Score: 1.0, OriginalRank: i}
		}
		return out
	}

	var sentences []string
	var owners []int
	for i, rec := range records {
		chunks := chunk.CreateChunks(rec, false)
		if len(chunks) == 0 && rec != nil {
			sentences = append(sentences, rec.Title)
			owners = append(owners, i)
			continue
		}
		for _, c := range chunks {
			sentences = append(sentences, c.Text)
			owners = append(owners, i)
		}
	}

	positions := make([]int, len(sentences))
	for i := range positions {
		positions[i] = i
	}
	ranked := Rerank(ctx, r, query, positions, func(p int) string { return sentences[p] }, RerankOptions{
		MinSimilarity: opts.MinSimilarity,
		UseCache:      opts.UseCache,
	})

	out := make([]SentenceMatch, 0, len(records))
	seen := make(map[int]bool, len(records))
	for _, rr := range ranked {
		owner := owners[rr.Item]
		if seen[owner] {
			continue
		}
		seen[owner] = true
		out = append(out, SentenceMatch{
			Record:       records[owner],
			Score:        rr.Score,
			OriginalRank: owner,
			BestSentence: sentences[rr.Item],
		})
	}

	if opts.TopK > 0 && len(out) > opts.TopK {
		out = out[:opts.TopK]
	}
	return out
}
