// Package citation checks that identifiers cited in generated text resolve
// to chunks of the evidence corpus the text was generated from.
package citation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Aman-CERP/evidencemcp/internal/chunk"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// Invalid citation reasons.
const (
	ReasonNotFound = "identifier not found in supplied evidence"
	reasonSentence = "sentence %d not found for identifier %s"
)

var (
	bracketRegex   = regexp.MustCompile(`\[([^\[\]]+)\]`)
	separatorRegex = regexp.MustCompile(`[,;]`)
	prefixRegex    = regexp.MustCompile(`(?i)^(?:pmid|pmcid|doi|nct\s*id|id)\s*:\s*`)
)

// Marker is one citation token found in text.
type Marker struct {
	// Raw is the token as written, e.g. "PMID: 123" or "123:S:2".
	Raw string
	ID  string
	// Index is the cited sentence, -1 when the whole record is cited.
	Index int
}

// Extract returns the distinct citation tokens in text in order of first
// appearance. Bracket groups may hold several identifiers separated by
// commas or semicolons; tokens that read as prose (several words, or no
// digit) are not citations.
func Extract(text string) []Marker {
	var markers []Marker
	seen := make(map[string]bool)

	for _, group := range bracketRegex.FindAllStringSubmatch(text, -1) {
		for _, raw := range separatorRegex.Split(group[1], -1) {
			raw = strings.TrimSpace(raw)
			m, ok := parseToken(raw)
			if !ok {
				continue
			}
			key := normalizeID(m.ID) + "#" + fmt.Sprint(m.Index)
			if seen[key] {
				continue
			}
			seen[key] = true
			markers = append(markers, m)
		}
	}
	return markers
}

func parseToken(raw string) (Marker, bool) {
	token := strings.TrimSpace(prefixRegex.ReplaceAllString(raw, ""))
	if token == "" || strings.ContainsFunc(token, unicode.IsSpace) || !strings.ContainsFunc(token, unicode.IsDigit) {
		return Marker{}, false
	}
	if id, idx, ok := chunk.ParseID(token); ok {
		return Marker{Raw: raw, ID: id, Index: idx}, true
	}
	return Marker{Raw: raw, ID: token, Index: -1}, true
}

// normalizeID case-folds and strips identifier prefixes so "PMID:123"
// and "123" match.
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(prefixRegex.ReplaceAllString(strings.TrimSpace(id), "")))
}

// corpusIndex maps normalized source IDs to their sentence indexes.
type corpusIndex map[string]map[int]bool

func indexCorpus(corpus []evidence.Chunk) corpusIndex {
	idx := make(corpusIndex)
	for _, c := range corpus {
		id := normalizeID(c.SourceID)
		if id == "" {
			if parsed, _, ok := chunk.ParseID(c.ID); ok {
				id = normalizeID(parsed)
			}
		}
		if id == "" {
			continue
		}
		if idx[id] == nil {
			idx[id] = make(map[int]bool)
		}
		idx[id][c.Index] = true
	}
	return idx
}

// Validate resolves every citation in text against corpus. A citation is
// valid iff a chunk with its identifier, and its sentence index when it
// names one, is in corpus. Precision is 1.0 when there are no citations.
func Validate(text string, corpus []evidence.Chunk) evidence.CitationValidationResult {
	result := evidence.CitationValidationResult{
		Invalid:   []evidence.InvalidCitation{},
		Precision: 1.0,
	}

	markers := Extract(text)
	if len(markers) == 0 {
		return result
	}
	index := indexCorpus(corpus)

	for _, m := range markers {
		result.Total++
		sentences, ok := index[normalizeID(m.ID)]
		switch {
		case !ok:
			result.Invalid = append(result.Invalid, evidence.InvalidCitation{
				Citation: m.Raw, ID: m.ID, Index: m.Index, Reason: ReasonNotFound,
			})
		case m.Index >= 0 && !sentences[m.Index]:
			result.Invalid = append(result.Invalid, evidence.InvalidCitation{
				Citation: m.Raw, ID: m.ID, Index: m.Index, Reason: fmt.Sprintf(reasonSentence, m.Index, m.ID),
			})
		default:
			result.Valid++
		}
	}

	result.Precision = float64(result.Valid) / float64(result.Total)
	return result
}
