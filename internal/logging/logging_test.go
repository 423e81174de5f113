package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()

	assert.True(t, strings.HasSuffix(path, filepath.Join(".evidencemcp", "logs", "server.log")))
	assert.Equal(t, DefaultLogDir(), filepath.Dir(path))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.False(t, MCPConfig("debug").WriteToStderr)
	assert.Equal(t, "debug", MCPConfig("debug").Level)
}

func TestSetup_WritesJSONLines(t *testing.T) {
	// Given: a logger writing to a temp file
	path := filepath.Join(t.TempDir(), "nested", "server.log")
	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	require.NoError(t, err)

	// When: logging an event
	logger.Info("source_query_failed", slog.String("source", "openalex"))
	cleanup()

	// Then: the file holds one JSON object with the attributes
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "source_query_failed", entry["msg"])
	assert.Equal(t, "openalex", entry["source"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestSetup_LevelFiltersDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Warn("shown")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromString(tt.in))
		})
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}

func newTinyWriter(t *testing.T, maxFiles int) (*RotatingWriter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rotate.log")
	w, err := NewRotatingWriter(path, 1, maxFiles)
	require.NoError(t, err)
	w.maxSize = 512
	t.Cleanup(func() { _ = w.Close() })
	return w, path
}

func TestRotatingWriter_Rotation(t *testing.T) {
	// Given: a writer that rotates after 512 bytes
	w, path := newTinyWriter(t, 3)
	chunk := bytes.Repeat([]byte("x"), 400)

	// When: writing past the limit twice
	_, err := w.Write(chunk)
	require.NoError(t, err)
	_, err = w.Write(chunk)
	require.NoError(t, err)

	// Then: the current file and one rotated file exist
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
}

func TestRotatingWriter_MaxFilesLimit(t *testing.T) {
	w, path := newTinyWriter(t, 2)
	chunk := bytes.Repeat([]byte("y"), 400)

	for i := 0; i < 6; i++ {
		_, _ = w.Write(chunk)
	}

	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	w, path := newTinyWriter(t, 50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, _ = w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Sync())

	assert.FileExists(t, path)
}

func TestRotatingWriter_CloseTwice(t *testing.T) {
	w, _ := newTinyWriter(t, 2)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
