// Package chunk splits evidence text into sentence chunks that keep their
// provenance, and reassembles them.
package chunk

import (
	"strings"
	"unicode"
)

// abbreviations never end a sentence. Matching is on the lowercased word
// that carries the period.
var abbreviations = map[string]bool{
	"dr.":     true,
	"mr.":     true,
	"mrs.":    true,
	"ms.":     true,
	"prof.":   true,
	"e.g.":    true,
	"i.e.":    true,
	"vs.":     true,
	"fig.":    true,
	"approx.": true,
	"st.":     true,
	"jr.":     true,
	"sr.":     true,
}

// contextual abbreviations hold only when the next word qualifies:
// "No. 5" but not "the answer was no. Further".
var contextual = map[string]func(next rune) bool{
	"no.":  unicode.IsDigit,
	"etc.": unicode.IsLower,
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»':
		return true
	}
	return false
}

func isOpener(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '{', '“', '‘', '«':
		return true
	}
	return false
}

// SplitSentences splits text after '.', '!' or '?' (and any closing quotes
// or brackets) when followed by whitespace or the end of text.
// Whitespace-only text has no sentences; text without terminal
// punctuation is a single sentence.
func SplitSentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}

		end := i + 1
		for end < len(runes) && isTerminator(runes[end]) {
			end++
		}
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			// "3.5", "e.g.," and similar
			i = end - 1
			continue
		}
		if end == i+1 && runes[i] == '.' && endsWithAbbreviation(runes[start:end], nextRune(runes, end)) {
			continue
		}

		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}

	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// nextRune returns the first non-space rune at or after i, or 0.
func nextRune(runes []rune, i int) rune {
	for ; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			return runes[i]
		}
	}
	return 0
}

// endsWithAbbreviation reports whether the final word of span, which ends
// in a period, is a known abbreviation given the rune that follows it.
func endsWithAbbreviation(span []rune, next rune) bool {
	words := strings.Fields(string(span))
	if len(words) == 0 {
		return false
	}
	last := strings.ToLower(strings.TrimLeftFunc(words[len(words)-1], isOpener))
	if last == "al." {
		return len(words) > 1 && strings.ToLower(strings.TrimLeftFunc(words[len(words)-2], isOpener)) == "et"
	}
	if fits, ok := contextual[last]; ok {
		return fits(next)
	}
	return abbreviations[last]
}
