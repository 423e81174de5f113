package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/logging"
	"github.com/Aman-CERP/evidencemcp/internal/telemetry"
)

func TestReadTelemetry_Unavailable(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{})

	_, err := srv.readTelemetry(context.Background())

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestReadTelemetry_ReportsCounts(t *testing.T) {
	// Given: a recorder with calls and one finished query
	rec := telemetry.NewRecorder(nil, logging.Discard())
	rec.RecordCall("openalex", 12, nil)
	rec.RecordCall("europepmc", 0, errors.New("timeout"))
	rec.RecordQuery(telemetry.QueryEvent{
		Query:   "statins primary prevention",
		Records: 12,
		Level:   evidence.LevelGood,
		Latency: 2 * time.Second,
	})

	srv := newTestServer(t, &stubSearcher{})
	srv.SetTelemetry(rec)

	// When: reading the resource
	res, err := srv.readTelemetry(context.Background())

	// Then: the JSON carries per-source counts and query stats
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, TelemetryURI, res.Contents[0].URI)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)

	var out TelemetryOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &out))
	require.Len(t, out.Sources, 2)
	assert.Equal(t, "europepmc", out.Sources[0].Source)
	assert.Equal(t, int64(1), out.Sources[0].Failures)
	assert.Equal(t, "openalex", out.Sources[1].Source)
	assert.Equal(t, int64(12), out.Sources[1].Results)
	assert.Equal(t, int64(1), out.Queries.Total)
	assert.Equal(t, int64(1), out.Queries.Latency[telemetry.BucketUnder3s])
}

func TestTelemetrySnapshot_EmptySourcesIsNonNil(t *testing.T) {
	rec := telemetry.NewRecorder(nil, logging.Discard())

	out := telemetrySnapshot(rec)

	assert.NotNil(t, out.Sources)
	assert.Empty(t, out.Sources)
}
