// Package embed turns text into unit-length vectors and compares them.
package embed

import (
	"context"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/Aman-CERP/evidencemcp/internal/errors"
)

const (
	// DefaultDimensions is the vector size of the static embedder.
	DefaultDimensions = 256

	// DefaultMaxInputChars bounds the text sent to a provider. Longer input
	// is truncated, never rejected.
	DefaultMaxInputChars = 8000

	// DefaultBatchSize is the number of texts per provider request.
	DefaultBatchSize = 32
)

// Embedder generates vector embeddings for text.
//
// Every vector an Embedder returns has length Dimensions() and unit L2
// norm. Empty or whitespace-only text yields the zero vector.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in one call; result i belongs to texts[i].
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length are an error; a zero vector has similarity 0
// with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("vector dimensions differ: %d != %d", len(a), len(b)), nil)
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding can push unit vectors slightly past the bounds
	return math.Max(-1, math.Min(1, sim)), nil
}

// Truncate shortens text to at most maxChars runes.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars])
}

// normalizeVector scales v to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
