package sufficiency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/logging"
)

var fixedNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	return NewDefault(WithClock(func() time.Time { return fixedNow }), WithLogger(logging.Discard()))
}

func scored(recs ...*evidence.Record) []evidence.ScoredRecord {
	out := make([]evidence.ScoredRecord, len(recs))
	for i, r := range recs {
		out[i] = evidence.ScoredRecord{Record: r}
	}
	return out
}

func recentArticles(n int) []*evidence.Record {
	out := make([]*evidence.Record, n)
	for i := range out {
		out[i] = &evidence.Record{ID: string(rune('a' + i)), Published: fixedNow.AddDate(-1, 0, 0)}
	}
	return out
}

func TestScore_NilPackage(t *testing.T) {
	got := newTestScorer().Score(nil)

	assert.Equal(t, 0, got.Score)
	assert.Equal(t, evidence.LevelInsufficient, got.Level)
	assert.Equal(t, []string{ReasonNoEvidence}, got.Reasoning)
	assert.NotNil(t, got.Breakdown)
}

func TestScore_EmptyPackage(t *testing.T) {
	got := newTestScorer().Score(evidence.NewPackage("q"))

	assert.Equal(t, 0, got.Score)
	assert.Equal(t, evidence.LevelInsufficient, got.Level)
	assert.Equal(t, []string{ReasonNoHighQuality}, got.Reasoning)
	assert.Len(t, got.Breakdown, 5)
}

func TestScore_OneGoldStandardReviewIsLimited(t *testing.T) {
	// Given: exactly one gold-standard review and nothing else
	pkg := evidence.NewPackage("q")
	pkg.GoldStandardReviews = scored(&evidence.Record{ID: "CD000001", Organization: "Cochrane"})

	// When: scoring
	got := newTestScorer().Score(pkg)

	// Then: 30 points, "limited"
	assert.Equal(t, 30, got.Score)
	assert.Equal(t, evidence.LevelLimited, got.Level)
	assert.Equal(t, 30, got.Breakdown[KeyGoldStandardReviews])
	assert.Len(t, got.Reasoning, 1)
}

func TestScore_RulesCombine(t *testing.T) {
	tests := []struct {
		name      string
		build     func(p *evidence.Package)
		wantScore int
		wantLevel string
	}{
		{
			name: "authority guideline",
			build: func(p *evidence.Package) {
				p.Guidelines = scored(&evidence.Record{ID: "NG136", Organization: "NICE"})
			},
			wantScore: 25, wantLevel: evidence.LevelInsufficient,
		},
		{
			name: "guideline from unknown body does not count",
			build: func(p *evidence.Package) {
				p.Guidelines = scored(&evidence.Record{ID: "G1", Organization: "Nicety Society"})
			},
			wantScore: 0, wantLevel: evidence.LevelInsufficient,
		},
		{
			name: "trial with results",
			build: func(p *evidence.Package) {
				p.ClinicalTrials = scored(&evidence.Record{ID: "NCT1", Types: []string{evidence.TypeRCT}, HasResults: true})
			},
			wantScore: 20, wantLevel: evidence.LevelInsufficient,
		},
		{
			name: "registered trial without results does not count",
			build: func(p *evidence.Package) {
				p.ClinicalTrials = scored(&evidence.Record{ID: "NCT2", Types: []string{evidence.TypeRCT}})
			},
			wantScore: 0, wantLevel: evidence.LevelInsufficient,
		},
		{
			name: "recent articles",
			build: func(p *evidence.Package) {
				p.Literature = scored(recentArticles(5)...)
			},
			wantScore: 15, wantLevel: evidence.LevelInsufficient,
		},
		{
			name: "four recent articles are not enough",
			build: func(p *evidence.Package) {
				p.Literature = scored(recentArticles(4)...)
			},
			wantScore: 0, wantLevel: evidence.LevelInsufficient,
		},
		{
			name: "non-gold review bonus",
			build: func(p *evidence.Package) {
				p.SystematicReviews = scored(&evidence.Record{ID: "SR1"})
			},
			wantScore: 10, wantLevel: evidence.LevelInsufficient,
		},
		{
			name: "bonus withheld when gold counted",
			build: func(p *evidence.Package) {
				p.GoldStandardReviews = scored(&evidence.Record{ID: "CD1"})
				p.SystematicReviews = scored(&evidence.Record{ID: "SR1"})
			},
			wantScore: 30, wantLevel: evidence.LevelLimited,
		},
		{
			name: "cochrane review in systematic reviews counts as gold",
			build: func(p *evidence.Package) {
				p.SystematicReviews = scored(&evidence.Record{ID: "CD2", Source: "europepmc", Title: "Statins (Cochrane Review)"})
			},
			wantScore: 30, wantLevel: evidence.LevelLimited,
		},
		{
			name: "everything",
			build: func(p *evidence.Package) {
				p.GoldStandardReviews = scored(&evidence.Record{ID: "CD1"})
				p.Guidelines = scored(&evidence.Record{ID: "G", Organization: "World Health Organization"})
				p.ClinicalTrials = scored(&evidence.Record{ID: "NCT1", Types: []string{"RCT"}, HasResults: true})
				p.Literature = scored(recentArticles(6)...)
			},
			wantScore: 90, wantLevel: evidence.LevelExcellent,
		},
		{
			name: "guideline and trial",
			build: func(p *evidence.Package) {
				p.Guidelines = scored(&evidence.Record{ID: "G", Organization: "AHA/ACC"})
				p.Literature = scored(&evidence.Record{ID: "P1", Types: []string{"Randomized Controlled Trial"}})
				p.SystematicReviews = scored(&evidence.Record{ID: "SR1"})
			},
			wantScore: 55, wantLevel: evidence.LevelGood,
		},
	}

	s := newTestScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := evidence.NewPackage("q")
			tt.build(pkg)

			got := s.Score(pkg)

			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.NotEmpty(t, got.Reasoning)
		})
	}
}

func TestScore_MalformedCollectionIsolated(t *testing.T) {
	// Given: a nil entry in guidelines next to a valid gold review
	pkg := evidence.NewPackage("q")
	pkg.GoldStandardReviews = scored(&evidence.Record{ID: "CD1"})
	pkg.Guidelines = []evidence.ScoredRecord{{Record: nil}, {Record: &evidence.Record{ID: "G", Organization: "NICE"}}}

	// When: scoring
	got := newTestScorer().Score(pkg)

	// Then: only the guideline rule is lost
	assert.Equal(t, 30, got.Score)
	assert.Equal(t, 0, got.Breakdown[KeyGuidelines])
	require.Len(t, got.Reasoning, 2)
	assert.Contains(t, got.Reasoning[1], KeyGuidelines)
}

func TestScore_ClampsAndUsesConfiguredWeights(t *testing.T) {
	cfg := config.NewConfig().Sufficiency
	cfg.Weights.GoldStandardReview = 80
	cfg.Weights.AuthorityGuideline = 80
	s := New(cfg, WithClock(func() time.Time { return fixedNow }))

	pkg := evidence.NewPackage("q")
	pkg.GoldStandardReviews = scored(&evidence.Record{ID: "CD1"})
	pkg.Guidelines = scored(&evidence.Record{ID: "G", Organization: "CDC"})

	got := s.Score(pkg)

	assert.Equal(t, 100, got.Score)
	assert.Equal(t, evidence.LevelExcellent, got.Level)
}

func TestScore_RecencyUsesClock(t *testing.T) {
	pkg := evidence.NewPackage("q")
	pkg.Literature = scored(recentArticles(5)...)

	later := NewDefault(WithClock(func() time.Time { return fixedNow.AddDate(10, 0, 0) }))

	assert.Equal(t, 0, later.Score(pkg).Score)
	assert.Equal(t, 15, newTestScorer().Score(pkg).Score)
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, evidence.LevelExcellent},
		{70, evidence.LevelExcellent},
		{69, evidence.LevelGood},
		{50, evidence.LevelGood},
		{49, evidence.LevelLimited},
		{30, evidence.LevelLimited},
		{29, evidence.LevelInsufficient},
		{0, evidence.LevelInsufficient},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.score), "score %d", tt.score)
	}
}
