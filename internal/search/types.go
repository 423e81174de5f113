// Package search ranks evidence: reciprocal rank fusion across result
// lists, embedding-based semantic reranking and PICO-driven query expansion.
package search

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search, OpenSearch, etc.).
const DefaultRRFConstant = 60

// Default list names used by Fuse.
const (
	DefaultNameA = "a"
	DefaultNameB = "b"
)

// RankedResult is one item of a ranked list.
//
// Lists of RankedResult are sorted by Score descending; items with equal
// scores keep their order of first appearance.
type RankedResult[T any] struct {
	Item T
	// Score is finite and non-negative. Higher is better.
	Score float64
	// OriginalRank is the input index for reranked lists, -1 for fused lists.
	OriginalRank int
	// Ranks maps each contributing list name to the zero-based rank of the item in it.
	Ranks map[string]int
	// Sources names the lists that held the item, in list order.
	Sources []string
}

// NamedList is one input of FuseMultiple.
type NamedList[T any] struct {
	Name  string
	Items []T
	// Weight scales the list's contribution. Zero or negative means 1.0.
	Weight float64
}

// FuseOptions configures two-list fusion.
type FuseOptions struct {
	K       int     // RRF smoothing constant (default: 60)
	WeightA float64 // weight of the first list (default: 1.0)
	WeightB float64 // weight of the second list (default: 1.0)
	NameA   string  // source name of the first list (default: "a")
	NameB   string  // source name of the second list (default: "b")
}

// DefaultFuseOptions returns k=60 with equal weights.
func DefaultFuseOptions() FuseOptions {
	return FuseOptions{
		K:       DefaultRRFConstant,
		WeightA: 1.0,
		WeightB: 1.0,
		NameA:   DefaultNameA,
		NameB:   DefaultNameB,
	}
}

// RerankOptions configures semantic reranking.
type RerankOptions struct {
	// TopK limits the output; 0 keeps every item.
	TopK int
	// MinSimilarity drops items scoring below it.
	MinSimilarity float64
	// SkipIfFewResults returns the input order unchanged when there are
	// fewer items than this.
	SkipIfFewResults int
	// UseCache embeds through the reranker's cached embedder.
	UseCache bool
}
