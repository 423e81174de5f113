package search

import (
	"regexp"
	"strings"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// PICO element names.
const (
	PICOPopulation   = "population"
	PICOIntervention = "intervention"
	PICOComparison   = "comparison"
	PICOOutcome      = "outcome"
)

// PICORule extracts one PICO element. The first capture group is the term.
type PICORule struct {
	Category string
	Pattern  *regexp.Regexp
}

const termWords = `[a-z][\w-]*(?:\s+[a-z][\w-]*)?`

// Compiled at package init.
var defaultPICORules = []PICORule{
	// Population
	{PICOPopulation, regexp.MustCompile(`(?i)\b(?:in|among|for)\s+((?:[a-z][\w-]*\s+){0,2}(?:adults?|children|adolescents?|infants?|neonates|women|men|patients?|people|elderly|smokers))\b`)},
	{PICOPopulation, regexp.MustCompile(`(?i)\b(?:patients?|people|adults?|children|women|men)\s+with\s+(` + termWords + `)`)},

	// Intervention
	{PICOIntervention, regexp.MustCompile(`(?i)\b(?:does|do|is|are|can|should|will)\s+(` + termWords + `)\s+(?:reduce|prevent|improve|increase|decrease|lower|help|work|treat|cause|affect)\b`)},
	{PICOIntervention, regexp.MustCompile(`(?i)\b(?:effect|effects|efficacy|effectiveness|safety|benefits?|role|use)\s+of\s+(` + termWords + `)`)},
	{PICOIntervention, regexp.MustCompile(`(?i)\b([a-z][\w-]*\s+(?:therapy|treatment|supplementation|vaccination|screening))\b`)},

	// Comparison
	{PICOComparison, regexp.MustCompile(`(?i)\b(?:versus|vs\.?|compared\s+(?:with|to)|rather\s+than|instead\s+of)\s+(` + termWords + `)`)},

	// Outcome
	{PICOOutcome, regexp.MustCompile(`(?i)\b(?:reduces?|prevents?|improves?|increases?|decreases?|lowers?|affects?)\s+(?:the\s+)?(?:risk\s+of\s+)?(` + termWords + `)`)},
	{PICOOutcome, regexp.MustCompile(`(?i)\b(mortality|death|survival|hospitali[sz]ation|quality\s+of\s+life|pain|recurrence|relapse|adverse\s+events?)\b`)},
}

// edgeWords are trimmed from both ends of an extracted term.
var edgeWords = map[string]bool{
	"a": true, "an": true, "the": true, "in": true, "for": true, "among": true,
	"with": true, "of": true, "and": true, "or": true, "at": true, "to": true,
	"vs": true, "versus": true, "compared": true, "than": true, "on": true,
	"is": true, "are": true, "does": true, "do": true,
}

// PICOExtractor extracts population, intervention, comparison and outcome
// terms with an ordered rule list. Every matching rule contributes.
type PICOExtractor struct {
	rules []PICORule
}

// NewPICOExtractor creates an extractor with the default rules.
func NewPICOExtractor() *PICOExtractor {
	return &PICOExtractor{rules: defaultPICORules}
}

// NewPICOExtractorWithRules creates an extractor with custom rules.
func NewPICOExtractorWithRules(rules []PICORule) *PICOExtractor {
	return &PICOExtractor{rules: rules}
}

// Extract applies every rule to the query. Terms are deduplicated
// case-insensitively per element in order of discovery.
func (p *PICOExtractor) Extract(query string) evidence.PICO {
	pico := evidence.PICO{
		Population:   []string{},
		Intervention: []string{},
		Comparison:   []string{},
		Outcome:      []string{},
	}
	seen := make(map[string]bool)

	for _, rule := range p.rules {
		for _, m := range rule.Pattern.FindAllStringSubmatch(query, -1) {
			if len(m) < 2 {
				continue
			}
			term := cleanTerm(m[1])
			if term == "" {
				continue
			}
			key := rule.Category + "\x00" + strings.ToLower(term)
			if seen[key] {
				continue
			}
			seen[key] = true

			switch rule.Category {
			case PICOPopulation:
				pico.Population = append(pico.Population, term)
			case PICOIntervention:
				pico.Intervention = append(pico.Intervention, term)
			case PICOComparison:
				pico.Comparison = append(pico.Comparison, term)
			case PICOOutcome:
				pico.Outcome = append(pico.Outcome, term)
			}
		}
	}
	return pico
}

func cleanTerm(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for len(words) > 0 && edgeWords[words[0]] {
		words = words[1:]
	}
	for len(words) > 0 && edgeWords[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}
