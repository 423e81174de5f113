// Package output provides consistent CLI output: status lines, JSON
// encoding and markdown rendering of evidence packages.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Writer provides formatted output for the CLI.
type Writer struct {
	out    io.Writer
	pretty bool
}

// New creates a Writer. Pretty enables indented JSON.
func New(out io.Writer, pretty bool) *Writer {
	return &Writer{out: out, pretty: pretty}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Text writes s verbatim.
func (w *Writer) Text(s string) {
	_, _ = io.WriteString(w.out, s)
}

// JSON encodes v, indented when the writer is pretty.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	if w.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
