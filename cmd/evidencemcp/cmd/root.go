// Package cmd provides the CLI commands for evidencemcp.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/evidencemcp/internal/config"
	everr "github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/logging"
	"github.com/Aman-CERP/evidencemcp/internal/profiling"
	"github.com/Aman-CERP/evidencemcp/pkg/version"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	debug      bool
	configPath string
	offline    bool
	corpus     string

	profile  profiling.Options
	profiler *profiling.Profiler
}

// NewRootCmd creates the root command for the evidencemcp CLI.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "evidencemcp",
		Short: "Evidence retrieval and ranking for clinical questions",
		Long: `evidencemcp searches literature, systematic reviews, guidelines and
clinical trials in parallel, fuses and reranks the results, scores how
sufficient the evidence is and flags conflicting guidance.

Run 'evidencemcp serve' to expose it to AI clients over MCP, or
'evidencemcp search' to query from the terminal.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return flags.startProfiling()
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return flags.stopProfiling()
		},
	}

	cmd.SetVersionTemplate("evidencemcp version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging (also copied to stderr for CLI commands)")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Load configuration from this file instead of user and project config")
	cmd.PersistentFlags().BoolVar(&flags.offline, "offline", false, "Disable network sources and use local corpora only")
	cmd.PersistentFlags().StringVar(&flags.corpus, "corpus", "", "Add a local YAML corpus as a literature source")
	cmd.PersistentFlags().StringVar(&flags.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&flags.profile.Mem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&flags.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newSearchCmd(flags))
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newConfigCmd(flags))
	cmd.AddCommand(newDoctorCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints errors in CLI form.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), everr.FormatForCLI(err))
	}
	return err
}

func (f *rootFlags) startProfiling() error {
	if !f.profile.Enabled() {
		return nil
	}
	p, err := profiling.Start(f.profile)
	if err != nil {
		return err
	}
	f.profiler = p
	return nil
}

func (f *rootFlags) stopProfiling() error {
	if f.profiler == nil {
		return nil
	}
	err := f.profiler.Stop()
	f.profiler = nil
	return err
}

// resolveConfig loads configuration from --config or from the user and
// project files, then applies --corpus and --offline.
func resolveConfig(flags *rootFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cwd, cerr := os.Getwd()
		if cerr != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", cerr)
		}
		cfg, err = config.Load(cwd)
	}
	if err != nil {
		return nil, everr.ConfigError(fmt.Sprintf("failed to load configuration: %v", err), err).
			WithSuggestion("Run 'evidencemcp config show --source defaults' to compare with the defaults.")
	}

	if flags.corpus != "" {
		cfg.SetLocalCorpus(flags.corpus)
	}
	if flags.offline {
		cfg.OnlyLocal()
	}
	return cfg, nil
}

// loadConfig is resolveConfig for commands that query sources.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := resolveConfig(flags)
	if err != nil {
		return nil, err
	}
	if len(cfg.EnabledSources()) == 0 {
		return nil, everr.ConfigError("no evidence sources are enabled", nil).
			WithSuggestion("Pass --corpus with --offline, or enable a network source.")
	}
	return cfg, nil
}

// setupLogger builds the file logger. The MCP server never writes logs to
// stderr; CLI commands do when --debug is set.
func setupLogger(cfg *config.Config, flags *rootFlags, serving bool) (*slog.Logger, func(), error) {
	level := cfg.Server.LogLevel
	if flags.debug {
		level = "debug"
	}

	logCfg := logging.DefaultConfig()
	if serving {
		logCfg = logging.MCPConfig(level)
	}
	logCfg.Level = level
	logCfg.WriteToStderr = flags.debug && !serving

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
