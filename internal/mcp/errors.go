// Package mcp implements the Model Context Protocol (MCP) server for evidencemcp.
package mcp

import (
	"context"
	"errors"
	"fmt"

	everr "github.com/Aman-CERP/evidencemcp/internal/errors"
)

// Custom MCP error codes for evidencemcp.
const (
	// ErrCodeSourceFailed indicates every evidence source failed.
	ErrCodeSourceFailed = -32001

	// ErrCodePackageNotFound indicates a request ID that is no longer held.
	ErrCodePackageNotFound = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrPackageNotFound indicates the evidence package has been evicted or never existed.
	ErrPackageNotFound = errors.New("evidence package not found")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var evErr *everr.EvidenceError
	if errors.As(err, &evErr) {
		return mapEvidenceError(evErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrPackageNotFound):
		return &MCPError{
			Code:    ErrCodePackageNotFound,
			Message: "Evidence package not found. Run search_evidence again and use the new request_id.",
		}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

func mapEvidenceError(e *everr.EvidenceError) *MCPError {
	message := e.Message
	if e.Suggestion != "" {
		message = fmt.Sprintf("%s %s", e.Message, e.Suggestion)
	}

	switch e.Category {
	case everr.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case everr.CategorySource:
		if e.Code == everr.ErrCodeSourceTimeout {
			return &MCPError{Code: ErrCodeTimeout, Message: message}
		}
		return &MCPError{Code: ErrCodeSourceFailed, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
