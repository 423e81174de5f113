package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(s string) string { return s }

func TestFuse_ItemFirstInBothLists(t *testing.T) {
	tests := []struct {
		name string
		opts FuseOptions
		want float64
	}{
		{"default k", FuseOptions{K: 60, WeightA: 1, WeightB: 1}, 2.0 / 61.0},
		{"k=30", FuseOptions{K: 30, WeightA: 1, WeightB: 1}, 2.0 / 31.0},
		{"weighted", FuseOptions{K: 60, WeightA: 2, WeightB: 1}, 3.0 / 61.0},
		{"zero k uses default", FuseOptions{}, 2.0 / 61.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: X ranked first in both lists
			a := []string{"X", "Y"}
			b := []string{"X", "Z"}

			// When: fusing
			fused := Fuse(a, b, identity, tt.opts)

			// Then: X leads with the expected raw RRF sum
			require.Len(t, fused, 3)
			assert.Equal(t, "X", fused[0].Item)
			assert.InDelta(t, tt.want, fused[0].Score, 1e-12)
			assert.Equal(t, []string{"a", "b"}, fused[0].Sources)
			assert.Equal(t, map[string]int{"a": 0, "b": 0}, fused[0].Ranks)
			assert.Equal(t, -1, fused[0].OriginalRank)
		})
	}
}

func TestFuse_TiesKeepFirstAppearance(t *testing.T) {
	// Given: Y and Z both at rank 1 in one list each
	fused := Fuse([]string{"X", "Y"}, []string{"X", "Z"}, identity, DefaultFuseOptions())

	// Then: Y (seen first) precedes Z
	require.Len(t, fused, 3)
	assert.Equal(t, "Y", fused[1].Item)
	assert.Equal(t, "Z", fused[2].Item)
	assert.InDelta(t, 1.0/62.0, fused[1].Score, 1e-12)
	assert.Equal(t, []string{"a"}, fused[1].Sources)
	assert.Equal(t, []string{"b"}, fused[2].Sources)
}

func TestFuse_CustomNames(t *testing.T) {
	fused := Fuse([]string{"X"}, []string{"X"}, identity, FuseOptions{NameA: "openalex", NameB: "europepmc"})

	require.Len(t, fused, 1)
	assert.Equal(t, []string{"openalex", "europepmc"}, fused[0].Sources)
}

func TestFuse_EmptyLists(t *testing.T) {
	fused := Fuse(nil, nil, identity, DefaultFuseOptions())

	assert.NotNil(t, fused)
	assert.Empty(t, fused)
}

type doc struct {
	id    string
	title string
}

func TestFuseMultiple_DedupKeepsFirstOccurrence(t *testing.T) {
	// Given: the same key with different payloads in two lists
	lists := []NamedList[doc]{
		{Name: "one", Items: []doc{{"1", "first"}, {"2", "two"}}},
		{Name: "two", Items: []doc{{"1", "second"}, {"3", "three"}}},
		{Name: "three", Items: []doc{{"", "no key"}, {"1", "third"}}, Weight: 0.5},
	}

	// When: fusing
	fused := FuseMultiple(lists, func(d doc) string { return d.id }, 60)

	// Then: metadata comes from the first list
	require.Len(t, fused, 3)
	assert.Equal(t, "first", fused[0].Item.title)
	assert.Equal(t, []string{"one", "two", "three"}, fused[0].Sources)
	assert.Equal(t, 1, fused[0].Ranks["three"])
	assert.InDelta(t, 1.0/61+1.0/61+0.5/62, fused[0].Score, 1e-12)
}

func TestFuseMultiple_RepeatWithinListCountsOnce(t *testing.T) {
	fused := FuseMultiple([]NamedList[string]{
		{Name: "l", Items: []string{"A", "A", "B"}},
	}, identity, 60)

	require.Len(t, fused, 2)
	assert.InDelta(t, 1.0/61, fused[0].Score, 1e-12)
	assert.InDelta(t, 1.0/63, fused[1].Score, 1e-12)
}

func TestFuseMultiple_ScoresAreSortedAndNonNegative(t *testing.T) {
	fused := FuseMultiple([]NamedList[string]{
		{Name: "a", Items: []string{"C", "B", "A"}},
		{Name: "b", Items: []string{"A", "B", "C"}},
		{Name: "c", Items: []string{"B"}},
	}, identity, 60)

	require.Len(t, fused, 3)
	assert.Equal(t, "B", fused[0].Item)
	for i := 1; i < len(fused); i++ {
		assert.GreaterOrEqual(t, fused[i-1].Score, fused[i].Score)
		assert.GreaterOrEqual(t, fused[i].Score, 0.0)
	}
}

func TestDeduplicate(t *testing.T) {
	in := []doc{{"1", "a"}, {"2", "b"}, {"1", "c"}, {"3", "d"}, {"2", "e"}}

	out := Deduplicate(in, func(d doc) string { return d.id })

	assert.Equal(t, []doc{{"1", "a"}, {"2", "b"}, {"3", "d"}}, out)
	assert.NotNil(t, Deduplicate([]doc(nil), func(d doc) string { return d.id }))
}

func TestItems(t *testing.T) {
	fused := Fuse([]string{"X", "Y"}, []string{"Y"}, identity, DefaultFuseOptions())

	assert.Equal(t, []string{"Y", "X"}, Items(fused))
}
