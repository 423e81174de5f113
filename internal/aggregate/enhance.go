package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/evidencemcp/internal/conflict"
	"github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/sufficiency"
)

// Enhancement derives extra analysis from a ranked package. Apply must
// only write to pkg once it has a complete result, so a failure leaves the
// field at its empty default.
type Enhancement interface {
	Name() string
	Apply(ctx context.Context, pkg *evidence.Package) error
}

// runOrSkip runs e, logging and swallowing errors and panics.
func (a *Aggregator) runOrSkip(ctx context.Context, e Enhancement, pkg *evidence.Package) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.New(errors.ErrCodeEnhancementFailed, fmt.Sprintf("%s panicked: %v", e.Name(), r), nil)
			}
		}()
		return e.Apply(ctx, pkg)
	}()
	if err != nil {
		attrs := append([]any{slog.String("enhancement", e.Name()), slog.String("request_id", pkg.RequestID)}, errors.LogAttrs(err)...)
		a.logger.Warn("enhancement_skipped", attrs...)
	}
}

// SufficiencyEnhancement scores the package.
type SufficiencyEnhancement struct {
	Scorer *sufficiency.Scorer
}

func (SufficiencyEnhancement) Name() string { return "sufficiency" }

func (s SufficiencyEnhancement) Apply(_ context.Context, pkg *evidence.Package) error {
	if s.Scorer == nil {
		return errors.New(errors.ErrCodeEnhancementFailed, "no sufficiency scorer", nil)
	}
	pkg.Sufficiency = s.Scorer.Score(pkg)
	return nil
}

// ConflictEnhancement finds contradicting high-quality records.
type ConflictEnhancement struct {
	Detector *conflict.Detector
}

func (ConflictEnhancement) Name() string { return "conflicts" }

func (c ConflictEnhancement) Apply(_ context.Context, pkg *evidence.Package) error {
	if c.Detector == nil {
		return errors.New(errors.ErrCodeEnhancementFailed, "no conflict detector", nil)
	}
	found := c.Detector.Detect(pkg)
	if found == nil {
		found = []evidence.Conflict{}
	}
	pkg.Conflicts = found
	return nil
}
