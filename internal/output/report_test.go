package output

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

func samplePackage() *evidence.Package {
	pkg := evidence.NewPackage("statins for primary prevention")
	pkg.RequestID = "req-1"
	pkg.Variants = []string{"statins for primary prevention", "hmg-coa reductase inhibitors for primary prevention"}
	pkg.SystematicReviews = []evidence.ScoredRecord{{
		Record: &evidence.Record{
			ID:           "30000001",
			Title:        "Statins for the primary prevention of cardiovascular disease",
			Organization: "Cochrane",
			Types:        []string{evidence.TypeSystematicReview},
			Published:    time.Date(2013, 1, 31, 0, 0, 0, 0, time.UTC),
			URL:          "https://europepmc.org/article/MED/30000001",
		},
		Score:        0.0328,
		Sources:      []string{"cochrane"},
		BestSentence: "Statins reduced all-cause mortality.",
	}}
	pkg.Sufficiency = evidence.SufficiencyScore{Score: 40, Level: evidence.LevelLimited, Reasoning: []string{"Gold-standard review found"}}
	pkg.Conflicts = []evidence.Conflict{{SourceA: "a", SourceB: "b", Topic: "aspirin", Description: "a recommends aspirin; b advises against"}}
	pkg.SourceErrors = map[string]string{"openalex": "timeout", "europepmc": "503"}
	return pkg
}

func TestFormatPackage_RendersSections(t *testing.T) {
	// Given: a populated package
	pkg := samplePackage()

	// When: rendering
	out := FormatPackage(pkg)

	// Then: every populated section appears and empty categories are omitted
	assert.Contains(t, out, `## Evidence for "statins for primary prevention"`)
	assert.Contains(t, out, "**Sufficiency:** 40/100 (limited)")
	assert.Contains(t, out, "**Variants:** hmg-coa reductase inhibitors for primary prevention")
	assert.Contains(t, out, "### Systematic Reviews (1)")
	assert.NotContains(t, out, "### Literature")
	assert.Contains(t, out, "1. **Statins for the primary prevention of cardiovascular disease** [30000001] (2013)")
	assert.Contains(t, out, "Cochrane | systematic review | score 0.0328 | via cochrane")
	assert.Contains(t, out, "> Statins reduced all-cause mortality.")
	assert.Contains(t, out, "- **aspirin**: a recommends aspirin; b advises against")
	assert.Contains(t, out, "- Gold-standard review found")
}

func TestFormatPackage_SourceErrorsSorted(t *testing.T) {
	out := FormatPackage(samplePackage())

	assert.Less(t, strings.Index(out, "`europepmc`"), strings.Index(out, "`openalex`"))
}

func TestFormatPackage_EmptyAndNil(t *testing.T) {
	assert.Contains(t, FormatPackage(evidence.NewPackage("q")), "No evidence found.")
	assert.Equal(t, "No evidence package.\n", FormatPackage(nil))
}

func TestFormatValidation(t *testing.T) {
	tests := []struct {
		name string
		res  evidence.CitationValidationResult
		want string
	}{
		{
			name: "no citations",
			res:  evidence.CitationValidationResult{},
			want: "No citations found.",
		},
		{
			name: "all valid",
			res:  evidence.CitationValidationResult{Total: 2, Valid: 2, Precision: 1},
			want: "All citations resolve",
		},
		{
			name: "unresolved listed",
			res: evidence.CitationValidationResult{
				Total: 2, Valid: 1, Precision: 0.5,
				Invalid: []evidence.InvalidCitation{{Citation: "[999]", ID: "999", Index: -1, Reason: "not in evidence corpus"}},
			},
			want: "- `[999]`: not in evidence corpus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FormatValidation(tt.res), tt.want)
		})
	}
}

func TestCategoryTitle(t *testing.T) {
	assert.Equal(t, "Gold-Standard Reviews", CategoryTitle(evidence.CategoryGoldStandardReviews))
	assert.Equal(t, "other", CategoryTitle(evidence.Category("other")))
}
