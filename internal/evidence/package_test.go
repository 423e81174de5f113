package evidence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPackage_CompleteShape(t *testing.T) {
	// Given: a fresh package
	pkg := NewPackage("statins for primary prevention")

	// When: serialized
	data, err := json.Marshal(pkg)
	require.NoError(t, err)

	// Then: no collection serializes as null
	assert.NotContains(t, string(data), "null")
	assert.Equal(t, LevelInsufficient, pkg.Sufficiency.Level)
}

func TestPackage_SetCollection(t *testing.T) {
	pkg := NewPackage("q")
	rec := &Record{ID: "PMID:1"}

	pkg.SetCollection(CategoryGuidelines, []ScoredRecord{{Record: rec, Score: 1}})
	pkg.SetCollection(CategoryLiterature, nil)

	assert.Len(t, pkg.Collection(CategoryGuidelines), 1)
	assert.NotNil(t, pkg.Literature)
	assert.Equal(t, []*Record{rec}, pkg.Records())
}

func TestRecord_TypeHelpers(t *testing.T) {
	tests := []struct {
		name   string
		types  []string
		review bool
		rct    bool
	}{
		{"systematic review", []string{"Systematic Review"}, true, false},
		{"meta-analysis", []string{"meta-analysis"}, true, false},
		{"rct", []string{" Randomized Controlled Trial "}, false, true},
		{"plain", []string{"article"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{Types: tt.types}
			assert.Equal(t, tt.review, r.IsSystematicReview())
			assert.Equal(t, tt.rct, r.IsRandomizedTrial())
		})
	}

	var nilRecord *Record
	assert.False(t, nilRecord.HasType(TypeGuideline))
	assert.Equal(t, "", nilRecord.Body())
}

func TestRecord_BodyFallsBackToRecommendation(t *testing.T) {
	r := &Record{Recommendation: "Offer statins."}
	assert.Equal(t, "Offer statins.", r.Body())

	r.Abstract = "Background."
	assert.Equal(t, "Background.", r.Body())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("guidelines")
	require.NoError(t, err)
	assert.Equal(t, CategoryGuidelines, c)

	_, err = ParseCategory("blogs")
	assert.Error(t, err)
}

func TestPICO_IsClinicalQuestion(t *testing.T) {
	assert.False(t, PICO{Population: []string{"adults"}}.IsClinicalQuestion())
	assert.True(t, PICO{Outcome: []string{"mortality"}}.IsClinicalQuestion())
	assert.True(t, PICO{Intervention: []string{"metformin"}}.IsClinicalQuestion())
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "PMID:123:S:4", ChunkID("PMID:123", 4))
}
