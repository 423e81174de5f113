package preflight

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/logging"
)

const corpusYAML = `records:
  - id: "1"
    title: Aspirin for secondary prevention
    abstract: Aspirin reduced recurrent vascular events.
    types: [systematic review]
`

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(corpusYAML), 0o644))
	return path
}

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.SetLocalCorpus(writeCorpus(t))
	cfg.OnlyLocal()
	cfg.Cache.Backend = "memory"
	cfg.Embeddings.Provider = "static"
	return cfg
}

func newTestChecker(t *testing.T, opts ...Option) (*Checker, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	base := []Option{
		WithOutput(buf),
		WithDataDir(t.TempDir()),
		WithLogger(logging.Discard()),
		WithProbe("", time.Second),
	}
	return New(append(base, opts...)...), buf
}

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
		{StatusSkip, "SKIP"},
		{CheckStatus(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestSummaryStatus(t *testing.T) {
	c, _ := newTestChecker(t)

	tests := []struct {
		name    string
		results []CheckResult
		want    string
	}{
		{"all pass", []CheckResult{{Status: StatusPass, Required: true}, {Status: StatusSkip}}, "ready"},
		{"optional failure", []CheckResult{{Status: StatusPass}, {Status: StatusFail}}, "ready_with_warnings"},
		{"warning", []CheckResult{{Status: StatusWarn}}, "ready_with_warnings"},
		{"critical", []CheckResult{{Status: StatusWarn}, {Status: StatusFail, Required: true}}, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.SummaryStatus(tt.results))
			assert.Equal(t, tt.want == "failed", c.HasCriticalFailures(tt.results))
		})
	}
}

func TestRunAll_OfflineLocalCorpus(t *testing.T) {
	// Given: an offline configuration with one local corpus
	c, buf := newTestChecker(t, WithOffline(true))
	cfg := offlineConfig(t)

	// When: running every check
	results := c.RunAll(context.Background(), cfg)

	// Then: nothing critical fails and the corpus answers the probe
	assert.False(t, c.HasCriticalFailures(results))
	byName := make(map[string]CheckResult, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	assert.Equal(t, StatusPass, byName["config"].Status)
	assert.Equal(t, StatusPass, byName["data_dir"].Status)
	assert.Equal(t, StatusPass, byName["source/local"].Status)
	assert.Contains(t, byName["source/local"].Message, `1 result(s) for "aspirin"`)
	assert.Equal(t, StatusPass, byName["cache"].Status)
	assert.Equal(t, StatusPass, byName["embeddings"].Status)

	// And: the printed report ends with the summary
	c.PrintResults(results)
	assert.Contains(t, buf.String(), "[PASS] source/local")
	assert.Contains(t, buf.String(), "Status: READY")
}

func TestCheckSources_NoneEnabled(t *testing.T) {
	c, _ := newTestChecker(t)
	cfg := config.NewConfig()
	cfg.OnlyLocal()

	results := c.CheckSources(context.Background(), cfg)

	require.Len(t, results, 1)
	assert.True(t, results[0].IsCritical())
}

func TestCheckSources_MissingCorpusIsCritical(t *testing.T) {
	c, _ := newTestChecker(t, WithOffline(true))
	cfg := config.NewConfig()
	cfg.SetLocalCorpus(filepath.Join(t.TempDir(), "missing.yaml"))
	cfg.OnlyLocal()

	results := c.CheckSources(context.Background(), cfg)

	require.Len(t, results, 1)
	assert.True(t, results[0].IsCritical())
}

func TestCheckSources_NetworkProbe(t *testing.T) {
	// Given: a Europe PMC source pointing at a failing server
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.NewConfig()
	cfg.Sources = []config.SourceConfig{{
		Name: "epmc", Kind: config.KindEuropePMC, Category: "literature", Enabled: true, BaseURL: srv.URL,
	}}

	t.Run("online warns", func(t *testing.T) {
		c, _ := newTestChecker(t, WithHTTPClient(srv.Client()))

		results := c.CheckSources(context.Background(), cfg)

		require.Len(t, results, 1)
		assert.Equal(t, StatusWarn, results[0].Status)
		assert.False(t, results[0].Required)
	})

	t.Run("offline skips", func(t *testing.T) {
		c, _ := newTestChecker(t, WithOffline(true))

		results := c.CheckSources(context.Background(), cfg)

		require.Len(t, results, 1)
		assert.Equal(t, StatusSkip, results[0].Status)
	})
}

func TestCheckCache(t *testing.T) {
	c, _ := newTestChecker(t)
	dir := t.TempDir()

	tests := []struct {
		name   string
		cfg    config.CacheConfig
		status CheckStatus
	}{
		{"memory", config.CacheConfig{Backend: "memory", MemoryEntries: 8, TTL: "1h"}, StatusPass},
		{"sqlite", config.CacheConfig{Backend: "sqlite", SQLitePath: filepath.Join(dir, "cache.db"), TTL: "1h"}, StatusPass},
		{"none", config.CacheConfig{Backend: "none"}, StatusPass},
		{"unknown", config.CacheConfig{Backend: "memcached"}, StatusWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := c.CheckCache(context.Background(), tt.cfg)

			assert.Equal(t, tt.status, r.Status, r.Message)
			assert.False(t, r.Required)
		})
	}
}

func TestCheckEmbedder(t *testing.T) {
	t.Run("unknown provider is critical", func(t *testing.T) {
		c, _ := newTestChecker(t)

		r := c.CheckEmbedder(context.Background(), config.EmbeddingsConfig{Provider: "bert"})

		assert.True(t, r.IsCritical())
	})

	t.Run("unreachable ollama warns", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c, _ := newTestChecker(t)

		r := c.CheckEmbedder(context.Background(), config.EmbeddingsConfig{Provider: "ollama", OllamaHost: srv.URL, Model: "m"})

		assert.Equal(t, StatusWarn, r.Status)
	})

	t.Run("ollama offline skips", func(t *testing.T) {
		c, _ := newTestChecker(t, WithOffline(true))

		r := c.CheckEmbedder(context.Background(), config.EmbeddingsConfig{Provider: "ollama"})

		assert.Equal(t, StatusSkip, r.Status)
	})
}

func TestCheckConfig_Invalid(t *testing.T) {
	c, _ := newTestChecker(t)
	cfg := config.NewConfig()
	cfg.Sources = append(cfg.Sources, cfg.Sources[0])

	r := c.CheckConfig(cfg)

	assert.True(t, r.IsCritical())
	assert.Contains(t, r.Message, "duplicate")
}

func TestCheckDataDir_NotWritable(t *testing.T) {
	c, _ := newTestChecker(t)
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	// When: the data dir path is a regular file
	r := c.CheckDataDir(filepath.Join(file, "sub"))

	assert.True(t, r.IsCritical())
}

func TestMarker(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	assert.Zero(t, MarkerAge(dir))
	require.NoError(t, MarkPassed(dir))
	age := MarkerAge(dir)
	assert.GreaterOrEqual(t, age, time.Duration(0))
	assert.Less(t, age, time.Minute)

	require.NoError(t, ClearMarker(dir))
	require.NoError(t, ClearMarker(dir))
	assert.Zero(t, MarkerAge(dir))
}
