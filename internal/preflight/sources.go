package preflight

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/source"
)

// CheckSources builds and probes every enabled source concurrently. A
// local corpus that fails to load is critical because the server refuses
// to start without it; an unreachable network source only degrades
// results.
func (c *Checker) CheckSources(ctx context.Context, cfg *config.Config) []CheckResult {
	enabled := cfg.EnabledSources()
	if len(enabled) == 0 {
		return []CheckResult{{
			Name:     "sources",
			Status:   StatusFail,
			Message:  "no sources enabled",
			Details:  "Pass --corpus with --offline, or enable a network source.",
			Required: true,
		}}
	}

	results := make([]CheckResult, len(enabled))
	var g errgroup.Group
	for i, sc := range enabled {
		g.Go(func() error {
			results[i] = c.checkSource(ctx, cfg, sc)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Checker) checkSource(ctx context.Context, cfg *config.Config, sc config.SourceConfig) CheckResult {
	local := sc.Kind == config.KindLocal
	result := CheckResult{
		Name:     "source/" + sc.Name,
		Required: local,
		Details:  fmt.Sprintf("kind=%s category=%s", sc.Kind, sc.Category),
	}
	if local {
		result.Details += " path=" + sc.Path
	}

	if c.offline && !local {
		result.Status = StatusSkip
		result.Message = "network probe skipped (offline)"
		return result
	}

	one := *cfg
	one.Sources = []config.SourceConfig{sc}
	set, err := source.Build(ctx, &one, c.client, c.logger)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	defer func() { _ = set.Close() }()

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	recs, err := set.Sources[0].Querier.Query(probeCtx, c.probe, 1)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		result.Status = StatusFail
		if !local {
			result.Status = StatusWarn
		}
		result.Message = fmt.Sprintf("probe failed after %s: %v", elapsed, err)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d result(s) for %q in %s", len(recs), c.probe, elapsed)
	return result
}
