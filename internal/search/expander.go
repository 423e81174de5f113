package search

import (
	"regexp"
	"strings"
)

// DefaultMaxVariants caps the number of query variants, original included.
const DefaultMaxVariants = 5

type compiledSynonym struct {
	pattern  *regexp.Regexp
	synonyms []string
}

// QueryExpander rewrites a query into variants that swap lay terms for
// clinical ones and back, so sources indexed with either vocabulary match.
//
// Example:
//
//	Input:  "aspirin after heart attack"
//	Output: ["aspirin after heart attack",
//	         "aspirin after myocardial infarction",
//	         "acetylsalicylic acid after heart attack"]
type QueryExpander struct {
	entries     []compiledSynonym
	maxVariants int
}

// QueryExpanderOption configures the query expander.
type QueryExpanderOption func(*QueryExpander)

// WithMaxVariants sets the variant cap. n <= 0 keeps the default.
func WithMaxVariants(n int) QueryExpanderOption {
	return func(e *QueryExpander) {
		if n > 0 {
			e.maxVariants = n
		}
	}
}

// WithCustomSynonyms appends synonym entries after the defaults.
func WithCustomSynonyms(entries []SynonymEntry) QueryExpanderOption {
	return func(e *QueryExpander) {
		e.entries = append(e.entries, compileSynonyms(entries)...)
	}
}

// NewQueryExpander creates a query expander with the default medical synonyms.
func NewQueryExpander(opts ...QueryExpanderOption) *QueryExpander {
	e := &QueryExpander{
		entries:     compileSynonyms(MedicalSynonyms),
		maxVariants: DefaultMaxVariants,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func compileSynonyms(entries []SynonymEntry) []compiledSynonym {
	out := make([]compiledSynonym, 0, len(entries))
	for _, entry := range entries {
		term := strings.TrimSpace(entry.Term)
		if term == "" || len(entry.Synonyms) == 0 {
			continue
		}
		out = append(out, compiledSynonym{
			pattern:  regexp.MustCompile(`(?i)(^|[^\w-])` + regexp.QuoteMeta(term) + `($|[^\w-])`),
			synonyms: entry.Synonyms,
		})
	}
	return out
}

// MaxVariants returns the variant cap.
func (e *QueryExpander) MaxVariants() int {
	return e.maxVariants
}

// Expand returns the query followed by one variant per synonym of every
// table term present in it, in table order. Variants are deduplicated
// case-insensitively and capped at MaxVariants. An empty query yields no
// variants.
func (e *QueryExpander) Expand(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}
	}

	variants := []string{query}
	seen := map[string]bool{variantKey(query): true}

	for _, entry := range e.entries {
		if !entry.pattern.MatchString(query) {
			continue
		}
		for _, syn := range entry.synonyms {
			if len(variants) >= e.maxVariants {
				return variants
			}
			v := entry.pattern.ReplaceAllString(query, "${1}"+escapeReplacement(syn)+"${2}")
			k := variantKey(v)
			if seen[k] {
				continue
			}
			seen[k] = true
			variants = append(variants, v)
		}
	}
	return variants
}

// AppendVariants adds extra terms as variants within the cap, skipping
// blanks and duplicates.
func (e *QueryExpander) AppendVariants(variants []string, extra []string) []string {
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		seen[variantKey(v)] = true
	}
	for _, x := range extra {
		x = strings.TrimSpace(x)
		if x == "" || seen[variantKey(x)] {
			continue
		}
		if len(variants) >= e.maxVariants {
			break
		}
		seen[variantKey(x)] = true
		variants = append(variants, x)
	}
	return variants
}

func variantKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
