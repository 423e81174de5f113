package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/evidencemcp/internal/telemetry"
)

// TelemetryURI identifies the telemetry resource.
const TelemetryURI = "evidencemcp://telemetry"

const topTerms = 20

// TelemetryOutput is the JSON structure of the telemetry resource.
type TelemetryOutput struct {
	Day     string                  `json:"day"`
	Sources []telemetry.SourceCount `json:"sources"`
	Queries telemetry.QuerySnapshot `json:"queries"`
}

func (s *Server) registerTelemetryResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "telemetry",
			URI:         TelemetryURI,
			Description: "Per-source call counts for today and recent query statistics",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return s.readTelemetry(ctx)
		},
	)
}

func (s *Server) readTelemetry(_ context.Context) (*mcp.ReadResourceResult, error) {
	s.mu.RLock()
	rec := s.telemetry
	s.mu.RUnlock()

	if rec == nil {
		return nil, NewInvalidParamsError("telemetry not available")
	}

	content, err := json.MarshalIndent(telemetrySnapshot(rec), "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      TelemetryURI,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}

func telemetrySnapshot(rec *telemetry.Recorder) TelemetryOutput {
	calls := rec.Calls.Snapshot()
	out := TelemetryOutput{
		Day:     calls.Day,
		Sources: calls.Sources,
		Queries: rec.Queries.Snapshot(topTerms),
	}
	if out.Sources == nil {
		out.Sources = []telemetry.SourceCount{}
	}
	return out
}
