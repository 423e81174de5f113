package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/output"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	aux    []string
	format string // "text", "json"
	save   string // write the full package as JSON
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every enabled evidence source",
		Long: `Search every enabled evidence source in parallel and print the
consolidated evidence package.

Query variants are generated from a medical synonym table. Results are
fused per category with Reciprocal Rank Fusion, optionally reranked by
embedding similarity, then scored for sufficiency.

Examples:
  evidencemcp search "aspirin after heart attack"
  evidencemcp search "statins primary prevention" --aux elderly --format json
  evidencemcp search "blood pressure targets" --offline --corpus corpus.yaml
  evidencemcp search "sglt2 heart failure" --save package.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			query := strings.Join(args, " ")
			return runSearch(ctx, cmd, flags, query, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.aux, "aux", "a", nil, "Extra search term appended to the query variants (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.save, "save", "", "Also write the evidence package as JSON to this file")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, flags *rootFlags, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: use text or json", opts.format)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger, cleanup, err := setupLogger(cfg, flags, false)
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

	start := time.Now()
	pkg, err := a.agg.Aggregate(ctx, query, opts.aux)
	if err != nil {
		return err
	}
	logger.Info("search_complete",
		slog.String("request_id", pkg.RequestID),
		slog.Int("records", len(pkg.Records())),
		slog.Duration("duration", time.Since(start)))

	if opts.save != "" {
		if err := savePackage(opts.save, pkg); err != nil {
			return err
		}
	}

	stdout := cmd.OutOrStdout()
	out := output.New(stdout, isTerminal(stdout))
	if opts.format == "json" {
		return out.JSON(pkg)
	}

	out.Text(output.FormatPackage(pkg))
	if opts.save != "" {
		out.Successf("Saved evidence package to %s", opts.save)
	}
	return nil
}

func savePackage(path string, pkg *evidence.Package) error {
	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode evidence package: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
