package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/evidencemcp/internal/citation"
	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/output"
	"github.com/Aman-CERP/evidencemcp/internal/telemetry"
	"github.com/Aman-CERP/evidencemcp/pkg/version"
)

// Tool names.
const (
	ToolSearchEvidence    = "search_evidence"
	ToolValidateCitations = "validate_citations"
)

// DefaultPackageCacheSize is how many recent evidence packages the server
// keeps for citation validation.
const DefaultPackageCacheSize = 32

const (
	defaultLimit = 10
	maxLimit     = 50
)

// Searcher produces evidence packages. *aggregate.Aggregator implements it.
type Searcher interface {
	Aggregate(ctx context.Context, query string, aux []string) (*evidence.Package, error)
}

// Server is the MCP server for evidencemcp.
// It exposes evidence search and citation validation to AI clients.
type Server struct {
	mcp      *mcp.Server
	searcher Searcher
	config   *config.Config
	logger   *slog.Logger

	// packages holds recent search results by request ID.
	packages *lru.Cache[string, *evidence.Package]

	telemetry *telemetry.Recorder

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name: ToolSearchEvidence,
		Description: "Search literature, systematic reviews, guidelines and clinical trials for a clinical question. " +
			"Returns ranked evidence per category, a sufficiency score, detected conflicts and a request_id. " +
			"Cite records as [ID] or sentences as [ID:S:n].",
	},
	{
		Name: ToolValidateCitations,
		Description: "Check that every bracketed citation in an answer resolves against the evidence returned by " +
			"search_evidence. Pass the request_id from that search.",
	},
}

// NewServer creates a new MCP server backed by searcher.
func NewServer(searcher Searcher, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	packages, err := lru.New[string, *evidence.Package](DefaultPackageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create package cache: %w", err)
	}

	s := &Server{
		searcher: searcher,
		config:   cfg,
		logger:   logger,
		packages: packages,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    version.Name,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// SetTelemetry attaches the call counters and registers the telemetry resource.
func (s *Server) SetTelemetry(rec *telemetry.Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry = rec

	if rec != nil {
		s.registerTelemetryResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return version.Name, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-style arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearchEvidence:
		var in SearchEvidenceInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, _, err := s.searchEvidence(ctx, in)
		if err != nil {
			return nil, err
		}
		return out, nil
	case ToolValidateCitations:
		var in ValidateCitationsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		out, _, err := s.validateCitations(in)
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, dst any) error {
	if args == nil {
		return nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

// searchEvidence runs one aggregation and remembers the package for
// later citation validation.
func (s *Server) searchEvidence(ctx context.Context, in SearchEvidenceInput) (SearchEvidenceOutput, *evidence.Package, error) {
	if strings.TrimSpace(in.Query) == "" {
		return SearchEvidenceOutput{}, nil, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	limit := clampLimit(in.Limit, defaultLimit, 1, maxLimit)

	start := time.Now()
	s.logger.Info("tool_started",
		slog.String("tool", ToolSearchEvidence),
		slog.String("query", in.Query),
		slog.Int("aux_terms", len(in.Aux)))

	pkg, err := s.searcher.Aggregate(ctx, in.Query, in.Aux)
	if err != nil {
		s.logger.Error("tool_failed",
			slog.String("tool", ToolSearchEvidence),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return SearchEvidenceOutput{}, nil, MapError(err)
	}

	if pkg.RequestID != "" {
		s.packages.Add(pkg.RequestID, pkg)
	}

	s.logger.Info("tool_completed",
		slog.String("tool", ToolSearchEvidence),
		slog.String("request_id", pkg.RequestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("records", len(pkg.Records())),
		slog.Int("sufficiency", pkg.Sufficiency.Score))

	return toSearchOutput(pkg, limit), pkg, nil
}

func (s *Server) validateCitations(in ValidateCitationsInput) (ValidateCitationsOutput, evidence.CitationValidationResult, error) {
	if strings.TrimSpace(in.RequestID) == "" {
		return ValidateCitationsOutput{}, evidence.CitationValidationResult{}, NewInvalidParamsError("request_id parameter is required")
	}
	if strings.TrimSpace(in.Answer) == "" {
		return ValidateCitationsOutput{}, evidence.CitationValidationResult{}, NewInvalidParamsError("answer parameter is required")
	}

	pkg, ok := s.packages.Get(in.RequestID)
	if !ok {
		return ValidateCitationsOutput{}, evidence.CitationValidationResult{}, MapError(ErrPackageNotFound)
	}

	res := citation.Validate(in.Answer, pkg.Chunks)
	s.logger.Info("tool_completed",
		slog.String("tool", ToolValidateCitations),
		slog.String("request_id", in.RequestID),
		slog.Int("citations", res.Total),
		slog.Int("invalid", len(res.Invalid)))

	return toValidateOutput(res), res, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolSearchEvidence,
		Description: tools[0].Description,
	}, s.mcpSearchEvidenceHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolValidateCitations,
		Description: tools[1].Description,
	}, s.mcpValidateCitationsHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// mcpSearchEvidenceHandler returns a markdown report alongside the
// structured output.
func (s *Server) mcpSearchEvidenceHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchEvidenceInput) (
	*mcp.CallToolResult,
	SearchEvidenceOutput,
	error,
) {
	out, pkg, err := s.searchEvidence(ctx, input)
	if err != nil {
		return nil, SearchEvidenceOutput{}, err
	}
	return textResult(output.FormatPackage(pkg)), out, nil
}

func (s *Server) mcpValidateCitationsHandler(_ context.Context, _ *mcp.CallToolRequest, input ValidateCitationsInput) (
	*mcp.CallToolResult,
	ValidateCitationsOutput,
	error,
) {
	out, res, err := s.validateCitations(input)
	if err != nil {
		return nil, ValidateCitationsOutput{}, err
	}
	return textResult(output.FormatValidation(res)), out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp_server_stopped")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// clampLimit returns def for non-positive values and bounds the rest to [lo, hi].
func clampLimit(v, def, lo, hi int) int {
	if v <= 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
