package embed

import (
	"context"
	"sync/atomic"
)

// countingEmbedder wraps the static embedder and counts calls.
type countingEmbedder struct {
	*StaticEmbedder
	embedCalls atomic.Int64
	batchCalls atomic.Int64
	batchTexts atomic.Int64
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{StaticEmbedder: NewStaticEmbedder(64)}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls.Add(1)
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls.Add(1)
	c.batchTexts.Add(int64(len(texts)))
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}
