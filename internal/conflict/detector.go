// Package conflict flags guideline-like records whose recommendations
// point in opposite directions on the same topic.
package conflict

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/Aman-CERP/evidencemcp/internal/chunk"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

const minFallbackWordLen = 5

var wordRegex = regexp.MustCompile(`[a-z0-9][a-z0-9-]*`)

var errNoText = errors.New("record has no recommendation or abstract text")

// statement is one classified sentence of a record.
type statement struct {
	polarity Polarity
	topics   []string
	words    []string
}

type compiledTopic struct {
	name    string
	pattern *regexp.Regexp
}

// Detector compares guideline-like records pairwise. It is safe for
// concurrent use.
type Detector struct {
	markers []Marker
	topics  []compiledTopic
	logger  *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger for skipped pairs.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithTopics replaces the topic table.
func WithTopics(topics []Topic) Option {
	return func(d *Detector) {
		d.topics = compileTopics(topics)
	}
}

// New creates a detector with the default marker and topic tables.
func New(opts ...Option) *Detector {
	d := &Detector{
		markers: DefaultMarkers,
		topics:  compileTopics(DefaultTopics),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func compileTopics(topics []Topic) []compiledTopic {
	out := make([]compiledTopic, 0, len(topics))
	for _, t := range topics {
		if len(t.Keywords) == 0 {
			continue
		}
		quoted := make([]string, len(t.Keywords))
		for i, k := range t.Keywords {
			quoted[i] = regexp.QuoteMeta(k)
		}
		out = append(out, compiledTopic{
			name:    t.Name,
			pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
		})
	}
	return out
}

type entry struct {
	record     *evidence.Record
	statements []statement
	err        error
}

// Detect returns one conflict per record pair and shared topic where the
// records hold opposite-polarity statements. Records come from the
// guideline, gold-standard review and systematic review collections. A
// nil package yields an empty list. Malformed records are skipped pair by
// pair.
func (d *Detector) Detect(pkg *evidence.Package) []evidence.Conflict {
	conflicts := []evidence.Conflict{}
	if pkg == nil {
		return conflicts
	}

	var entries []entry
	for _, list := range [][]evidence.ScoredRecord{pkg.Guidelines, pkg.GoldStandardReviews, pkg.SystematicReviews} {
		for _, sr := range list {
			stmts, err := d.classify(sr.Record)
			entries = append(entries, entry{record: sr.Record, statements: stmts, err: err})
		}
	}

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			found, err := d.comparePair(entries[i], entries[j])
			if err != nil {
				d.logger.Debug("conflict_pair_skipped",
					slog.String("source_a", recordID(entries[i].record)),
					slog.String("source_b", recordID(entries[j].record)),
					slog.String("error", err.Error()))
				continue
			}
			conflicts = append(conflicts, found...)
		}
	}
	return conflicts
}

func recordID(r *evidence.Record) string {
	if r == nil {
		return ""
	}
	return r.ID
}

// comparePair isolates failures of a single comparison.
func (d *Detector) comparePair(a, b entry) (found []evidence.Conflict, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("comparison panicked: %v", p)
		}
	}()

	if a.err != nil {
		return nil, a.err
	}
	if b.err != nil {
		return nil, b.err
	}
	if evidence.Key(a.record) == evidence.Key(b.record) {
		return nil, nil
	}

	seen := make(map[string]bool)
	for _, sa := range a.statements {
		for _, sb := range b.statements {
			if sa.polarity == Neutral || sb.polarity == Neutral || sa.polarity == sb.polarity {
				continue
			}
			for _, topic := range sharedTopics(sa, sb) {
				if seen[topic] {
					continue
				}
				seen[topic] = true
				found = append(found, evidence.Conflict{
					SourceA:     a.record.ID,
					SourceB:     b.record.ID,
					Topic:       topic,
					Description: describe(a.record.ID, sa.polarity, b.record.ID, topic),
				})
			}
		}
	}
	return found, nil
}

// sharedTopics returns the table topics both statements mention or, when
// neither mentions one, their first shared content word.
func sharedTopics(a, b statement) []string {
	if len(a.topics) > 0 || len(b.topics) > 0 {
		var shared []string
		for _, t := range a.topics {
			if slices.Contains(b.topics, t) {
				shared = append(shared, t)
			}
		}
		return shared
	}
	for _, w := range a.words {
		if slices.Contains(b.words, w) {
			return []string{w}
		}
	}
	return nil
}

func describe(idA string, polA Polarity, idB, topic string) string {
	if polA == Positive {
		return fmt.Sprintf("%s supports %s while %s advises against it", idA, topic, idB)
	}
	return fmt.Sprintf("%s advises against %s while %s supports it", idA, topic, idB)
}

// classify splits a record's recommendation (or abstract) into statements.
func (d *Detector) classify(r *evidence.Record) ([]statement, error) {
	if r == nil {
		return nil, errors.New("nil record")
	}
	text := r.Recommendation
	if strings.TrimSpace(text) == "" {
		text = r.Abstract
	}
	if strings.TrimSpace(text) == "" {
		return nil, errNoText
	}

	sentences := chunk.SplitSentences(text)
	stmts := make([]statement, 0, len(sentences))
	for _, s := range sentences {
		stmts = append(stmts, statement{
			polarity: d.polarity(s),
			topics:   d.topicsOf(s),
			words:    contentWords(s),
		})
	}
	return stmts, nil
}

func (d *Detector) polarity(sentence string) Polarity {
	for _, m := range d.markers {
		if m.Pattern.MatchString(sentence) {
			return m.Polarity
		}
	}
	return Neutral
}

func (d *Detector) topicsOf(sentence string) []string {
	var topics []string
	for _, t := range d.topics {
		if t.pattern.MatchString(sentence) {
			topics = append(topics, t.name)
		}
	}
	return topics
}

func contentWords(sentence string) []string {
	var words []string
	for _, w := range wordRegex.FindAllString(strings.ToLower(sentence), -1) {
		if len(w) < minFallbackWordLen || stopWords[w] || slices.Contains(words, w) {
			continue
		}
		words = append(words, w)
	}
	return words
}
