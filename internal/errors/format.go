package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var ee *EvidenceError
	if !errors.As(err, &ee) {
		ee = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ee.Message))
	if ee.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ee.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ee.Code))

	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error, used for MCP tool
// error payloads.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	var ee *EvidenceError
	if !errors.As(err, &ee) {
		ee = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       ee.Code,
		Message:    ee.Message,
		Category:   string(ee.Category),
		Severity:   string(ee.Severity),
		Details:    ee.Details,
		Suggestion: ee.Suggestion,
		Retryable:  ee.Retryable,
	}
	if ee.Cause != nil {
		je.Cause = ee.Cause.Error()
	}

	return json.Marshal(je)
}

// LogAttrs returns slog attributes describing err.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	var ee *EvidenceError
	if !errors.As(err, &ee) {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error_code", ee.Code),
		slog.String("error", ee.Message),
		slog.String("category", string(ee.Category)),
		slog.Bool("retryable", ee.Retryable),
	}
	if ee.Cause != nil {
		attrs = append(attrs, slog.String("cause", ee.Cause.Error()))
	}
	for _, k := range sortedKeys(ee.Details) {
		attrs = append(attrs, slog.String("detail_"+k, ee.Details[k]))
	}
	return attrs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
