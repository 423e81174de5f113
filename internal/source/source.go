// Package source holds the evidence source adapters queried by the
// aggregator: OpenAlex, Europe PMC, ClinicalTrials.gov and local YAML
// corpora.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/pkg/version"
)

// Querier returns up to limit records for a query. Implementations must
// honor ctx cancellation.
type Querier interface {
	Query(ctx context.Context, text string, limit int) ([]*evidence.Record, error)
}

// QuerierFunc adapts a plain function to Querier.
type QuerierFunc func(ctx context.Context, text string, limit int) ([]*evidence.Record, error)

// Query calls f.
func (f QuerierFunc) Query(ctx context.Context, text string, limit int) ([]*evidence.Record, error) {
	return f(ctx, text, limit)
}

// Source is a named querier feeding one category.
type Source struct {
	Name     string
	Category evidence.Category
	// Expand sends every query variant instead of only the original query.
	Expand bool
	// Timeout bounds a single call. Zero means the aggregator default.
	Timeout time.Duration
	Querier Querier
}

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 512
)

// DefaultHTTPClient is shared by the HTTP sources unless one is injected.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// getJSON fetches rawURL and decodes the body into out. Failures are
// mapped onto source error codes so the retry policy can tell transient
// failures from bad responses.
func getJSON(ctx context.Context, client *http.Client, name, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.New(errors.ErrCodeSourceResponse, fmt.Sprintf("building %s request", name), err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.SourceError(name, ctxErr)
		}
		return errors.SourceError(name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(name, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(errors.ErrCodeSourceResponse, fmt.Sprintf("decoding %s response", name), err).
			WithDetail("source", name)
	}
	return nil
}

func statusError(name string, status int, body string) *errors.EvidenceError {
	code := errors.ErrCodeSourceResponse
	switch {
	case status == http.StatusTooManyRequests:
		code = errors.ErrCodeSourceRateLimited
	case status >= 500:
		code = errors.ErrCodeSourceUnavailable
	}
	e := errors.New(code, fmt.Sprintf("%s returned HTTP %d", name, status), nil).
		WithDetail("source", name).
		WithDetail("status", fmt.Sprintf("%d", status))
	if body != "" {
		e.WithDetail("body", body)
	}
	return e
}

// clampLimit keeps a page size inside what an API accepts.
func clampLimit(limit, fallback, ceiling int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// parseDate accepts the date layouts the sources emit: full dates,
// year-month and bare years.
func parseDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// appendType adds tag unless the record already carries it.
func appendType(types []string, tag string) []string {
	for _, t := range types {
		if t == tag {
			return types
		}
	}
	return append(types, tag)
}
