// Package evidence defines the records, categories and package shape shared
// by the retrieval, ranking and scoring stages.
package evidence

import (
	"strings"
	"time"
)

// Publication type tags carried in Record.Types. Sources normalize their
// native vocabularies onto these.
const (
	TypeSystematicReview = "systematic review"
	TypeMetaAnalysis     = "meta-analysis"
	TypeGuideline        = "guideline"
	TypeRCT              = "randomized controlled trial"
	TypeClinicalTrial    = "clinical trial"
	TypeReview           = "review"
	TypeArticle          = "article"
)

// Record is one retrieved piece of evidence. Records are treated as
// immutable once a source returns them.
type Record struct {
	// ID is the primary identifier: PMID, DOI or NCT number.
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Abstract  string    `json:"abstract,omitempty" yaml:"abstract"`
	Authors   []string  `json:"authors,omitempty" yaml:"authors"`
	Source    string    `json:"source" yaml:"source"`
	Published time.Time `json:"published,omitempty" yaml:"published"`
	Types     []string  `json:"types,omitempty" yaml:"types"`

	// Organization is the issuing body for guidelines and reviews.
	Organization string `json:"organization,omitempty" yaml:"organization"`
	// Recommendation is the recommendation text of a guideline-like record.
	Recommendation string `json:"recommendation,omitempty" yaml:"recommendation"`
	// HasResults is set for trials that have posted results.
	HasResults bool `json:"has_results,omitempty" yaml:"has_results"`

	URL string `json:"url,omitempty" yaml:"url"`
}

// HasType reports whether the record carries the tag, ignoring case.
func (r *Record) HasType(tag string) bool {
	if r == nil {
		return false
	}
	for _, t := range r.Types {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// IsSystematicReview reports whether the record is a systematic review or
// meta-analysis.
func (r *Record) IsSystematicReview() bool {
	return r.HasType(TypeSystematicReview) || r.HasType(TypeMetaAnalysis)
}

// IsRandomizedTrial reports whether the record describes a randomized trial.
func (r *Record) IsRandomizedTrial() bool {
	return r.HasType(TypeRCT) || r.HasType("rct") || r.HasType("randomized trial")
}

// Body returns the text used for sentence chunking: the abstract, or the
// recommendation when there is no abstract.
func (r *Record) Body() string {
	if r == nil {
		return ""
	}
	if strings.TrimSpace(r.Abstract) != "" {
		return r.Abstract
	}
	return r.Recommendation
}

// Key returns the identity used for deduplication across sources.
func Key(r *Record) string {
	if r == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(r.ID))
}
