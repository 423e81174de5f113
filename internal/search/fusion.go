package search

import (
	"slices"
)

// Fuse combines two ranked lists with Reciprocal Rank Fusion.
//
// Algorithm: RRF_score(d) = Σ weight_i / (k + rank_i + 1)
//
// Where:
//   - k = smoothing constant (default: 60)
//   - rank_i = zero-based position in list i
//   - weight_i = weight of list i (default: 1.0)
//
// An item at the top of both lists scores 2/61 with the defaults. Scores
// are raw sums, not normalized.
func Fuse[T any](listA, listB []T, key func(T) string, opts FuseOptions) []RankedResult[T] {
	def := DefaultFuseOptions()
	if opts.NameA == "" {
		opts.NameA = def.NameA
	}
	if opts.NameB == "" {
		opts.NameB = def.NameB
	}
	return FuseMultiple([]NamedList[T]{
		{Name: opts.NameA, Items: listA, Weight: opts.WeightA},
		{Name: opts.NameB, Items: listB, Weight: opts.WeightB},
	}, key, opts.K)
}

// FuseMultiple combines any number of ranked lists with Reciprocal Rank
// Fusion. Items are deduplicated by key; the first occurrence supplies the
// item. Items with an empty key are dropped. A repeated item within one
// list counts only at its first rank. k <= 0 uses DefaultRRFConstant.
//
// The result is sorted by score descending; ties keep first-appearance
// order across the lists.
func FuseMultiple[T any](lists []NamedList[T], key func(T) string, k int) []RankedResult[T] {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	index := make(map[string]int)
	results := []RankedResult[T]{}

	for _, list := range lists {
		weight := list.Weight
		if weight <= 0 {
			weight = 1.0
		}

		for rank, item := range list.Items {
			id := key(item)
			if id == "" {
				continue
			}

			pos, ok := index[id]
			if !ok {
				pos = len(results)
				index[id] = pos
				results = append(results, RankedResult[T]{
					Item:         item,
					OriginalRank: -1,
					Ranks:        make(map[string]int, len(lists)),
				})
			}

			r := &results[pos]
			if _, seen := r.Ranks[list.Name]; seen {
				continue
			}
			r.Ranks[list.Name] = rank
			r.Sources = append(r.Sources, list.Name)
			r.Score += weight / float64(k+rank+1)
		}
	}

	slices.SortStableFunc(results, func(a, b RankedResult[T]) int {
		return compareScoreDesc(a.Score, b.Score)
	})
	return results
}

// Deduplicate keeps the first occurrence of each key, preserving order.
func Deduplicate[T any](list []T, key func(T) string) []T {
	seen := make(map[string]bool, len(list))
	out := make([]T, 0, len(list))
	for _, item := range list {
		id := key(item)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, item)
	}
	return out
}

// Items returns the items of a ranked list in order.
func Items[T any](ranked []RankedResult[T]) []T {
	out := make([]T, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	return out
}

func compareScoreDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}
