package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	everr "github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/logging"
	"github.com/Aman-CERP/evidencemcp/internal/output"
	"github.com/Aman-CERP/evidencemcp/internal/preflight"
	"github.com/Aman-CERP/evidencemcp/internal/source"
)

func newDoctorCmd(flags *rootFlags) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		probe      string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, sources and backends",
		Long: `Run diagnostics to ensure evidencemcp can serve evidence.

Checks:
  - Configuration validity
  - Data directory writability and free disk space
  - Every enabled source, probed with one small query
  - Cache backend round-trip
  - Embedding provider availability

Unreachable network sources, caches and embedding servers are warnings:
searches still run without them. A broken local corpus or invalid
configuration fails the check.`,
		Example: `  evidencemcp doctor
  evidencemcp doctor --offline --corpus corpus.yaml
  evidencemcp doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runDoctor(ctx, cmd, flags, verbose, jsonOutput, probe, timeout)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&probe, "probe", preflight.DefaultProbeQuery, "Query sent to each source")
	cmd.Flags().DurationVar(&timeout, "timeout", preflight.DefaultProbeTimeout, "Timeout for each probe")

	return cmd
}

// doctorReport is the JSON shape of `doctor --json`.
type doctorReport struct {
	Status   string            `json:"status"`
	Checks   []doctorCheckJSON `json:"checks"`
	Warnings []string          `json:"warnings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

type doctorCheckJSON struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
	Details  string `json:"details,omitempty"`
}

func runDoctor(ctx context.Context, cmd *cobra.Command, flags *rootFlags, verbose, jsonOutput bool, probe string, timeout time.Duration) error {
	cfg, err := resolveConfig(flags)
	if err != nil {
		return err
	}

	checker := preflight.New(
		preflight.WithOffline(flags.offline),
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
		preflight.WithHTTPClient(source.DefaultHTTPClient()),
		preflight.WithProbe(probe, timeout),
		preflight.WithLogger(logging.Discard()),
	)

	results := checker.RunAll(ctx, cfg)

	if jsonOutput {
		if err := output.New(cmd.OutOrStdout(), true).JSON(toDoctorReport(checker, results)); err != nil {
			return err
		}
	} else {
		if age := preflight.MarkerAge(checker.DataDir()); age > 0 {
			defer func() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nLast passing check: %s ago\n", age.Round(time.Minute))
			}()
		}
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		_ = preflight.ClearMarker(checker.DataDir())
		return everr.New(everr.ErrCodeConfigInvalid, "system check failed", nil).
			WithSuggestion("Fix the failing checks above and run 'evidencemcp doctor' again.")
	}
	_ = preflight.MarkPassed(checker.DataDir())
	return nil
}

func toDoctorReport(checker *preflight.Checker, results []preflight.CheckResult) doctorReport {
	report := doctorReport{
		Status: checker.SummaryStatus(results),
		Checks: make([]doctorCheckJSON, len(results)),
	}
	for i, r := range results {
		report.Checks[i] = doctorCheckJSON{
			Name:     r.Name,
			Status:   r.Status.String(),
			Message:  r.Message,
			Required: r.Required,
			Details:  r.Details,
		}
		switch {
		case r.IsCritical():
			report.Errors = append(report.Errors, r.Name+": "+r.Message)
		case r.Status == preflight.StatusWarn || r.Status == preflight.StatusFail:
			report.Warnings = append(report.Warnings, r.Name+": "+r.Message)
		}
	}
	return report
}
