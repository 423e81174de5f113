package mcp

import (
	"time"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// SearchEvidenceInput defines the input schema for the search_evidence tool.
type SearchEvidenceInput struct {
	Query string   `json:"query" jsonschema:"the clinical question or search query"`
	Aux   []string `json:"aux,omitempty" jsonschema:"extra search terms appended to the query variants"`
	Limit int      `json:"limit,omitempty" jsonschema:"maximum records per category in the response, default 10"`
}

// SearchEvidenceOutput defines the output schema for the search_evidence tool.
type SearchEvidenceOutput struct {
	RequestID    string            `json:"request_id" jsonschema:"pass to validate_citations to check an answer against this evidence"`
	Query        string            `json:"query"`
	Variants     []string          `json:"variants"`
	Sufficiency  SufficiencyOutput `json:"sufficiency"`
	Categories   []CategoryOutput  `json:"categories"`
	Conflicts    []ConflictOutput  `json:"conflicts"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
	ChunkCount   int               `json:"chunk_count" jsonschema:"number of citable sentences in the evidence corpus"`
}

// SufficiencyOutput summarizes how well the evidence supports an answer.
type SufficiencyOutput struct {
	Score     int      `json:"score" jsonschema:"0 to 100"`
	Level     string   `json:"level" jsonschema:"excellent, good, limited or insufficient"`
	Reasoning []string `json:"reasoning"`
}

// CategoryOutput is one ranked evidence category.
type CategoryOutput struct {
	Name    string         `json:"name"`
	Total   int            `json:"total"`
	Records []RecordOutput `json:"records"`
}

// RecordOutput is a ranked record with the fields a client cites.
type RecordOutput struct {
	ID           string   `json:"id" jsonschema:"cite as [ID] or [ID:S:n] for sentence n"`
	Title        string   `json:"title"`
	Year         int      `json:"year,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Types        []string `json:"types,omitempty"`
	Score        float64  `json:"score"`
	Sources      []string `json:"sources,omitempty"`
	BestSentence string   `json:"best_sentence,omitempty"`
	URL          string   `json:"url,omitempty"`
}

// ConflictOutput describes two records that appear to disagree.
type ConflictOutput struct {
	SourceA     string `json:"source_a"`
	SourceB     string `json:"source_b"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

// ValidateCitationsInput defines the input schema for the validate_citations tool.
type ValidateCitationsInput struct {
	RequestID string `json:"request_id" jsonschema:"request_id returned by search_evidence"`
	Answer    string `json:"answer" jsonschema:"answer text containing bracketed citations"`
}

// ValidateCitationsOutput defines the output schema for the validate_citations tool.
type ValidateCitationsOutput struct {
	Total     int                     `json:"total"`
	Valid     int                     `json:"valid"`
	Precision float64                 `json:"precision"`
	Invalid   []InvalidCitationOutput `json:"invalid"`
}

// InvalidCitationOutput is one citation that does not resolve.
type InvalidCitationOutput struct {
	Citation string `json:"citation"`
	Reason   string `json:"reason"`
}

// toSearchOutput converts a package, keeping at most limit records per category.
func toSearchOutput(pkg *evidence.Package, limit int) SearchEvidenceOutput {
	out := SearchEvidenceOutput{
		RequestID: pkg.RequestID,
		Query:     pkg.Query,
		Variants:  pkg.Variants,
		Sufficiency: SufficiencyOutput{
			Score:     pkg.Sufficiency.Score,
			Level:     pkg.Sufficiency.Level,
			Reasoning: pkg.Sufficiency.Reasoning,
		},
		Categories: make([]CategoryOutput, 0, len(evidence.Categories)),
		Conflicts:  make([]ConflictOutput, 0, len(pkg.Conflicts)),
		ChunkCount: len(pkg.Chunks),
	}
	if len(pkg.SourceErrors) > 0 {
		out.SourceErrors = pkg.SourceErrors
	}

	for _, c := range evidence.Categories {
		list := pkg.Collection(c)
		if len(list) == 0 {
			continue
		}
		co := CategoryOutput{Name: string(c), Total: len(list)}
		if len(list) > limit {
			list = list[:limit]
		}
		co.Records = make([]RecordOutput, 0, len(list))
		for _, sr := range list {
			if sr.Record != nil {
				co.Records = append(co.Records, toRecordOutput(sr))
			}
		}
		out.Categories = append(out.Categories, co)
	}

	for _, c := range pkg.Conflicts {
		out.Conflicts = append(out.Conflicts, ConflictOutput(c))
	}
	return out
}

func toRecordOutput(sr evidence.ScoredRecord) RecordOutput {
	r := sr.Record
	ro := RecordOutput{
		ID:           r.ID,
		Title:        r.Title,
		Organization: r.Organization,
		Types:        r.Types,
		Score:        sr.Score,
		Sources:      sr.Sources,
		BestSentence: sr.BestSentence,
		URL:          r.URL,
	}
	if !r.Published.IsZero() {
		ro.Year = r.Published.In(time.UTC).Year()
	}
	return ro
}

func toValidateOutput(res evidence.CitationValidationResult) ValidateCitationsOutput {
	out := ValidateCitationsOutput{
		Total:     res.Total,
		Valid:     res.Valid,
		Precision: res.Precision,
		Invalid:   make([]InvalidCitationOutput, 0, len(res.Invalid)),
	}
	for _, inv := range res.Invalid {
		out.Invalid = append(out.Invalid, InvalidCitationOutput{Citation: inv.Citation, Reason: inv.Reason})
	}
	return out
}
