// Package sufficiency grades how well an evidence package supports a
// confident answer, on a 0-100 scale.
package sufficiency

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
)

// Breakdown keys, one per rule.
const (
	KeyGoldStandardReviews = "gold_standard_reviews"
	KeyGuidelines          = "guidelines"
	KeyRandomizedTrials    = "randomized_trials"
	KeyRecentArticles      = "recent_articles"
	KeySystematicReviews   = "systematic_reviews"
)

// Fixed reasoning messages.
const (
	ReasonNoEvidence    = "no evidence set supplied"
	ReasonNoHighQuality = "no high-quality evidence found"
)

const (
	maxScore              = 100
	defaultRecentYears    = 5
	defaultMinRecentCount = 5
)

// errMalformed marks a collection holding nil records.
var errMalformed = errors.New("collection contains nil records")

// Scorer computes sufficiency scores. It holds no per-call state and is
// safe for concurrent use.
type Scorer struct {
	weights     config.SufficiencyWeights
	recentYears int
	minRecent   int
	authorities []*regexp.Regexp
	goldNames   []*regexp.Regexp
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock sets the time source used by the recency rule.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger for malformed-collection notes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a scorer from configuration.
func New(cfg config.SufficiencyConfig, opts ...Option) *Scorer {
	s := &Scorer{
		weights:     cfg.Weights,
		recentYears: cfg.RecentYears,
		minRecent:   cfg.MinRecentArticles,
		authorities: wordPatterns(cfg.Authorities),
		goldNames:   wordPatterns(cfg.GoldStandardProducers),
		now:         time.Now,
		logger:      slog.Default(),
	}
	if s.recentYears <= 0 {
		s.recentYears = defaultRecentYears
	}
	if s.minRecent <= 0 {
		s.minRecent = defaultMinRecentCount
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDefault creates a scorer with the default weights and authority lists.
func NewDefault(opts ...Option) *Scorer {
	return New(config.NewConfig().Sufficiency, opts...)
}

func wordPatterns(names []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(n)+`\b`))
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, texts ...string) bool {
	for _, p := range patterns {
		for _, t := range texts {
			if t != "" && p.MatchString(t) {
				return true
			}
		}
	}
	return false
}

// LevelFor maps a score to its qualitative level.
func LevelFor(score int) string {
	switch {
	case score >= 70:
		return evidence.LevelExcellent
	case score >= 50:
		return evidence.LevelGood
	case score >= 30:
		return evidence.LevelLimited
	default:
		return evidence.LevelInsufficient
	}
}

// ruleResult is the outcome of one rule.
type ruleResult struct {
	satisfied bool
	reason    string
}

type rule struct {
	key    string
	weight func(w config.SufficiencyWeights) int
	eval   func(s *Scorer, pkg *evidence.Package, goldCounted bool) (ruleResult, error)
}

// rules run in order; the systematic review bonus depends on the gold
// standard rule before it.
var rules = []rule{
	{KeyGoldStandardReviews, func(w config.SufficiencyWeights) int { return w.GoldStandardReview }, (*Scorer).goldStandardRule},
	{KeyGuidelines, func(w config.SufficiencyWeights) int { return w.AuthorityGuideline }, (*Scorer).guidelineRule},
	{KeyRandomizedTrials, func(w config.SufficiencyWeights) int { return w.RandomizedTrial }, (*Scorer).randomizedTrialRule},
	{KeyRecentArticles, func(w config.SufficiencyWeights) int { return w.RecentArticles }, (*Scorer).recentArticlesRule},
	{KeySystematicReviews, func(w config.SufficiencyWeights) int { return w.SystematicReview }, (*Scorer).systematicReviewRule},
}

// Score grades pkg. A nil package scores 0. Each rule is isolated: a
// malformed collection zeroes only the rules that read it.
func (s *Scorer) Score(pkg *evidence.Package) evidence.SufficiencyScore {
	result := evidence.SufficiencyScore{
		Level:     evidence.LevelInsufficient,
		Breakdown: make(map[string]int, len(rules)),
		Reasoning: []string{},
	}
	if pkg == nil {
		result.Reasoning = append(result.Reasoning, ReasonNoEvidence)
		return result
	}

	total := 0
	satisfied := 0
	goldCounted := false
	for _, r := range rules {
		result.Breakdown[r.key] = 0

		res, err := s.evalRule(r, pkg, goldCounted)
		if err != nil {
			s.logger.Debug("sufficiency_rule_skipped",
				slog.String("rule", r.key),
				slog.String("error", err.Error()))
			result.Reasoning = append(result.Reasoning, fmt.Sprintf("%s not scored: %v", r.key, err))
			continue
		}
		if !res.satisfied {
			continue
		}

		points := r.weight(s.weights)
		result.Breakdown[r.key] = points
		total += points
		satisfied++
		result.Reasoning = append(result.Reasoning, res.reason)
		if r.key == KeyGoldStandardReviews {
			goldCounted = true
		}
	}

	if satisfied == 0 {
		result.Reasoning = append(result.Reasoning, ReasonNoHighQuality)
	}

	result.Score = max(0, min(total, maxScore))
	result.Level = LevelFor(result.Score)
	return result
}

// evalRule runs one rule, converting a panic into an error so a single
// bad record cannot abort scoring.
func (s *Scorer) evalRule(r rule, pkg *evidence.Package, goldCounted bool) (res ruleResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("rule panicked: %v", p)
		}
	}()
	return r.eval(s, pkg, goldCounted)
}

func records(list []evidence.ScoredRecord) ([]*evidence.Record, error) {
	out := make([]*evidence.Record, 0, len(list))
	for _, sr := range list {
		if sr.Record == nil {
			return nil, errMalformed
		}
		out = append(out, sr.Record)
	}
	return out, nil
}

func (s *Scorer) isGold(r *evidence.Record) bool {
	return matchesAny(s.goldNames, r.Organization, r.Source, r.Title)
}

func (s *Scorer) goldStandardRule(pkg *evidence.Package, _ bool) (ruleResult, error) {
	gold, err := records(pkg.GoldStandardReviews)
	if err != nil {
		return ruleResult{}, err
	}
	if len(gold) > 0 {
		return ruleResult{true, fmt.Sprintf("%d gold-standard systematic review(s) found", len(gold))}, nil
	}

	reviews, err := records(pkg.SystematicReviews)
	if err != nil {
		return ruleResult{}, err
	}
	for _, r := range reviews {
		if s.isGold(r) {
			return ruleResult{true, fmt.Sprintf("gold-standard systematic review found: %s", r.ID)}, nil
		}
	}
	return ruleResult{}, nil
}

func (s *Scorer) guidelineRule(pkg *evidence.Package, _ bool) (ruleResult, error) {
	guidelines, err := records(pkg.Guidelines)
	if err != nil {
		return ruleResult{}, err
	}
	for _, r := range guidelines {
		if matchesAny(s.authorities, r.Organization, r.Title) {
			name := r.Organization
			if name == "" {
				name = r.Title
			}
			return ruleResult{true, fmt.Sprintf("clinical practice guideline from a recognized authority: %s", name)}, nil
		}
	}
	return ruleResult{}, nil
}

func (s *Scorer) randomizedTrialRule(pkg *evidence.Package, _ bool) (ruleResult, error) {
	trials, err := records(pkg.ClinicalTrials)
	if err != nil {
		return ruleResult{}, err
	}
	for _, r := range trials {
		if r.IsRandomizedTrial() && r.HasResults {
			return ruleResult{true, fmt.Sprintf("randomized trial with posted results: %s", r.ID)}, nil
		}
	}

	literature, err := records(pkg.Literature)
	if err != nil {
		return ruleResult{}, err
	}
	for _, r := range literature {
		if r.IsRandomizedTrial() {
			return ruleResult{true, fmt.Sprintf("published randomized controlled trial: %s", r.ID)}, nil
		}
	}
	return ruleResult{}, nil
}

func (s *Scorer) recentArticlesRule(pkg *evidence.Package, _ bool) (ruleResult, error) {
	literature, err := records(pkg.Literature)
	if err != nil {
		return ruleResult{}, err
	}
	cutoff := s.now().AddDate(-s.recentYears, 0, 0)
	recent := 0
	for _, r := range literature {
		if !r.Published.IsZero() && !r.Published.Before(cutoff) {
			recent++
		}
	}
	if recent >= s.minRecent {
		return ruleResult{true, fmt.Sprintf("%d articles published in the last %d years", recent, s.recentYears)}, nil
	}
	return ruleResult{}, nil
}

func (s *Scorer) systematicReviewRule(pkg *evidence.Package, goldCounted bool) (ruleResult, error) {
	if goldCounted {
		return ruleResult{}, nil
	}
	reviews, err := records(pkg.SystematicReviews)
	if err != nil {
		return ruleResult{}, err
	}
	for _, r := range reviews {
		if !s.isGold(r) {
			return ruleResult{true, fmt.Sprintf("systematic review found: %s", r.ID)}, nil
		}
	}

	literature, err := records(pkg.Literature)
	if err != nil {
		return ruleResult{}, err
	}
	for _, r := range literature {
		if r.IsSystematicReview() && !s.isGold(r) {
			return ruleResult{true, fmt.Sprintf("systematic review found: %s", r.ID)}, nil
		}
	}
	return ruleResult{}, nil
}
