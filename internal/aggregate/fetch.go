package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/metrics"
	"github.com/Aman-CERP/evidencemcp/internal/source"
)

// call is one (source, variant) request and its outcome.
type call struct {
	variant string
	records []*evidence.Record
	err     error
}

// fetched holds every call result, indexed by source then variant, so
// downstream ordering never depends on goroutine scheduling.
type fetched struct {
	sources []source.Source
	calls   [][]call
}

type failure struct {
	source  string
	message string
}

// failures returns the first failed call of each source, in source order.
func (f *fetched) failures() []failure {
	var out []failure
	for i, s := range f.sources {
		for _, c := range f.calls[i] {
			if c.err != nil {
				out = append(out, failure{source: s.Name, message: c.err.Error()})
				break
			}
		}
	}
	return out
}

// fetchAll queries every source in parallel. Expandable sources receive
// every variant; the others receive only the original query.
func (a *Aggregator) fetchAll(ctx context.Context, variants []string) *fetched {
	f := &fetched{sources: a.sources, calls: make([][]call, len(a.sources))}

	var g errgroup.Group
	g.SetLimit(a.opts.MaxConcurrency)

	for i, src := range a.sources {
		queries := variants[:1]
		if src.Expand {
			queries = variants
		}
		f.calls[i] = make([]call, len(queries))
		for j, q := range queries {
			f.calls[i][j].variant = q
			g.Go(func() error {
				records, err := a.fetch(ctx, src, q)
				f.calls[i][j].records = records
				f.calls[i][j].err = err
				return nil
			})
		}
	}
	_ = g.Wait()
	return f
}

// fetch serves one call from the cache or the source. It never panics and
// returns a nil slice on failure.
func (a *Aggregator) fetch(ctx context.Context, src source.Source, query string) ([]*evidence.Record, error) {
	if payload, ok := a.cache.Get(ctx, query, src.Name); ok {
		var cached []*evidence.Record
		if err := json.Unmarshal(payload, &cached); err == nil {
			return valid(cached), nil
		}
		a.logger.Warn("cache_entry_corrupt", slog.String("source", src.Name))
	}

	timeout := src.Timeout
	if timeout <= 0 {
		timeout = a.opts.SourceTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	breaker := a.breakers[src.Name]
	records, err := errors.RetryWithResult(callCtx, a.opts.Retry, func() ([]*evidence.Record, error) {
		if breaker == nil {
			return a.query(callCtx, src, query)
		}
		return errors.CircuitExecute(breaker, func() ([]*evidence.Record, error) {
			return a.query(callCtx, src, query)
		})
	})
	if err != nil && errors.GetCode(err) == "" && callCtx.Err() != nil {
		// the retry loop reports a bare context error once the deadline passes
		err = errors.SourceError(src.Name, callCtx.Err())
	}
	records = valid(records)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.GetCode(err) == errors.ErrCodeSourceTimeout {
			outcome = "timeout"
		}
		attrs := append([]any{slog.String("source", src.Name), slog.String("query", query)}, errors.LogAttrs(err)...)
		a.logger.Warn("source_query_failed", attrs...)
		records = nil
	}
	metrics.ObserveSource(src.Name, start, len(records), outcome)
	a.telemetry.RecordCall(src.Name, len(records), err)

	if err == nil {
		if payload, merr := json.Marshal(records); merr == nil {
			a.cache.Put(context.WithoutCancel(ctx), query, src.Name, payload, a.opts.CacheTTL)
		}
	}
	return records, err
}

// query calls the source, turning panics and bare errors into source errors.
func (a *Aggregator) query(ctx context.Context, src source.Source, text string) (records []*evidence.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeSourceResponse, fmt.Sprintf("source %s panicked: %v", src.Name, r), nil).
				WithDetail("source", src.Name)
		}
	}()
	if src.Querier == nil {
		return nil, errors.New(errors.ErrCodeSourceUnavailable, fmt.Sprintf("source %s has no querier", src.Name), nil)
	}

	records, err = src.Querier.Query(ctx, text, a.opts.PerSourceLimit)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.SourceError(src.Name, err)
		}
		return nil, err
	}
	return records, nil
}

// valid drops nil records and records without an identifier.
func valid(records []*evidence.Record) []*evidence.Record {
	out := make([]*evidence.Record, 0, len(records))
	for _, r := range records {
		if evidence.Key(r) != "" {
			out = append(out, r)
		}
	}
	return out
}
