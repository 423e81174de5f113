package evidence

import (
	"fmt"
	"time"
)

// Chunk is one sentence of a record's body, carrying enough provenance to
// cite it back to its parent.
type Chunk struct {
	// ID is "<SOURCE_ID>:S:<index>".
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	// Index is the zero-based sentence position within the parent body.
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`

	Citation Citation `json:"citation"`
}

// Citation is the parent-record metadata copied onto every chunk.
type Citation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Authors   []string  `json:"authors,omitempty"`
	Source    string    `json:"source"`
	Published time.Time `json:"published,omitempty"`
}

// ChunkID builds the identifier of the index-th sentence of sourceID.
func ChunkID(sourceID string, index int) string {
	return fmt.Sprintf("%s:S:%d", sourceID, index)
}

// ScoredRecord is a record in a consolidated, ranked category list.
type ScoredRecord struct {
	Record *Record `json:"record"`
	Score  float64 `json:"score"`
	// Sources names the evidence sources that returned the record.
	Sources []string `json:"sources,omitempty"`
	// BestSentence is set when the record was reranked by its best sentence.
	BestSentence string `json:"best_sentence,omitempty"`
}

// Sufficiency levels.
const (
	LevelExcellent    = "excellent"
	LevelGood         = "good"
	LevelLimited      = "limited"
	LevelInsufficient = "insufficient"
)

// SufficiencyScore grades how much high-quality evidence a package holds.
type SufficiencyScore struct {
	Score     int            `json:"score"`
	Level     string         `json:"level"`
	Breakdown map[string]int `json:"breakdown"`
	Reasoning []string       `json:"reasoning"`
}

// Conflict flags two guideline-like records that appear to disagree.
type Conflict struct {
	SourceA     string `json:"source_a"`
	SourceB     string `json:"source_b"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

// InvalidCitation describes one citation that could not be resolved.
type InvalidCitation struct {
	Citation string `json:"citation"`
	ID       string `json:"id"`
	// Index is the sentence index for chunk-specific citations, -1 otherwise.
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// CitationValidationResult reports how many citations in a text resolve
// against the evidence corpus.
type CitationValidationResult struct {
	Total     int               `json:"total"`
	Valid     int               `json:"valid"`
	Invalid   []InvalidCitation `json:"invalid"`
	Precision float64           `json:"precision"`
}

// PICO holds clinical question elements extracted from a query.
type PICO struct {
	Population   []string `json:"population"`
	Intervention []string `json:"intervention"`
	Comparison   []string `json:"comparison"`
	Outcome      []string `json:"outcome"`
}

// IsClinicalQuestion reports whether an intervention or outcome was found.
func (p PICO) IsClinicalQuestion() bool {
	return len(p.Intervention) > 0 || len(p.Outcome) > 0
}

// Package is the consolidated result of one aggregation.
// Every slice and map is non-nil so consumers never branch on missing fields.
type Package struct {
	RequestID string    `json:"request_id"`
	Query     string    `json:"query"`
	Variants  []string  `json:"variants"`
	PICO      PICO      `json:"pico"`
	CreatedAt time.Time `json:"created_at"`

	Literature          []ScoredRecord `json:"literature"`
	SystematicReviews   []ScoredRecord `json:"systematic_reviews"`
	GoldStandardReviews []ScoredRecord `json:"gold_standard_reviews"`
	Guidelines          []ScoredRecord `json:"guidelines"`
	ClinicalTrials      []ScoredRecord `json:"clinical_trials"`

	// Chunks is the sentence corpus that citations are validated against.
	Chunks []Chunk `json:"chunks"`

	Sufficiency  SufficiencyScore  `json:"sufficiency"`
	Conflicts    []Conflict        `json:"conflicts"`
	SourceErrors map[string]string `json:"source_errors"`
}

// NewPackage returns a package with every collection initialized.
func NewPackage(query string) *Package {
	return &Package{
		Query:               query,
		Variants:            []string{},
		PICO:                PICO{Population: []string{}, Intervention: []string{}, Comparison: []string{}, Outcome: []string{}},
		Literature:          []ScoredRecord{},
		SystematicReviews:   []ScoredRecord{},
		GoldStandardReviews: []ScoredRecord{},
		Guidelines:          []ScoredRecord{},
		ClinicalTrials:      []ScoredRecord{},
		Chunks:              []Chunk{},
		Sufficiency: SufficiencyScore{
			Level:     LevelInsufficient,
			Breakdown: map[string]int{},
			Reasoning: []string{},
		},
		Conflicts:    []Conflict{},
		SourceErrors: map[string]string{},
	}
}

// Collection returns the list for a category.
func (p *Package) Collection(c Category) []ScoredRecord {
	if p == nil {
		return nil
	}
	switch c {
	case CategoryLiterature:
		return p.Literature
	case CategorySystematicReviews:
		return p.SystematicReviews
	case CategoryGoldStandardReviews:
		return p.GoldStandardReviews
	case CategoryGuidelines:
		return p.Guidelines
	case CategoryClinicalTrials:
		return p.ClinicalTrials
	}
	return nil
}

// SetCollection replaces the list for a category. A nil list is stored as empty.
func (p *Package) SetCollection(c Category, list []ScoredRecord) {
	if list == nil {
		list = []ScoredRecord{}
	}
	switch c {
	case CategoryLiterature:
		p.Literature = list
	case CategorySystematicReviews:
		p.SystematicReviews = list
	case CategoryGoldStandardReviews:
		p.GoldStandardReviews = list
	case CategoryGuidelines:
		p.Guidelines = list
	case CategoryClinicalTrials:
		p.ClinicalTrials = list
	}
}

// Records returns every record across all categories in package order,
// without deduplication.
func (p *Package) Records() []*Record {
	if p == nil {
		return nil
	}
	var out []*Record
	for _, c := range Categories {
		for _, sr := range p.Collection(c) {
			out = append(out, sr.Record)
		}
	}
	return out
}
