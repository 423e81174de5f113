package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/evidencemcp/internal/mcp"
	"github.com/Aman-CERP/evidencemcp/internal/metrics"
	"github.com/Aman-CERP/evidencemcp/internal/telemetry"
)

// telemetryFlushInterval bounds how many counted calls a crash can lose.
const telemetryFlushInterval = time.Minute

func newServeCmd(flags *rootFlags) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server so AI clients can call
search_evidence and validate_citations.

Logs go to ~/.evidencemcp/logs; stdout carries only MCP messages.`,
		Example: `  evidencemcp serve
  evidencemcp serve --offline --corpus corpus.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, flags, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport protocol (stdio); defaults to server.transport")

	return cmd
}

func runServe(ctx context.Context, flags *rootFlags, transport string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if transport == "" {
		transport = cfg.Server.Transport
	}

	logger, cleanup, err := setupLogger(cfg, flags, true)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("app_close_failed", slog.String("error", cerr.Error()))
		}
	}()

	srv, err := mcp.NewServer(a.agg, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	srv.SetTelemetry(a.telemetry)

	if cfg.Server.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.Server.MetricsAddr, logger)
		defer stopMetrics()
	}

	if a.telemetry != nil {
		stopFlush := startTelemetryFlush(ctx, a.telemetry, logger, telemetryFlushInterval)
		defer stopFlush()
	}

	err = srv.Serve(ctx, transport)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveMetrics exposes Prometheus metrics on addr and returns a shutdown func.
func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics_listening", slog.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", slog.String("error", err.Error()))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = hs.Shutdown(ctx)
	}
}

// startTelemetryFlush flushes rec every interval until ctx ends or the
// returned stop func is called. stop waits for the flusher to exit, so the
// recorder can be closed right after it.
func startTelemetryFlush(ctx context.Context, rec *telemetry.Recorder, logger *slog.Logger, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := rec.Flush(); err != nil {
					logger.Warn("telemetry_flush_failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
