package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/evidencemcp/configs"
	"github.com/Aman-CERP/evidencemcp/internal/config"
	"github.com/Aman-CERP/evidencemcp/internal/output"
)

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the evidencemcp configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/evidencemcp/config.yaml)
  3. Project config (.evidencemcp.yaml)
  4. Environment variables (EVIDENCEMCP_*)
  5. --corpus and --offline flags`,
		Example: `  # Create user config from template
  evidencemcp config init

  # Show effective configuration
  evidencemcp config show

  # Print user config file path
  evidencemcp config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(flags))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file from the built-in template.

The file is created at ~/.config/evidencemcp/config.yaml
(or $XDG_CONFIG_HOME/evidencemcp/config.yaml if XDG_CONFIG_HOME is set).`,
		Example: `  evidencemcp config init
  evidencemcp config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func newConfigShowCmd(flags *rootFlags) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the effective configuration after merging all sources.

Use --source defaults to print the hardcoded defaults only.`,
		Example: `  evidencemcp config show
  evidencemcp config show --json
  evidencemcp config show --source defaults`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, flags, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout(), false)
	configPath := config.GetUserConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		out.Warning("User configuration already exists")
		out.Statusf("📁", "Location: %s", configPath)
		out.Status("💡", "Use --force to overwrite it with the template")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(configs.ConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created user configuration")
	out.Statusf("📁", "Location: %s", configPath)
	out.Status("📋", "Next steps:")
	out.Status("", "1. Edit the file to enable sources or a cache backend")
	out.Status("", "2. Run 'evidencemcp config show' to verify")
	return nil
}

func runConfigShow(cmd *cobra.Command, flags *rootFlags, jsonOutput bool, source string) error {
	var cfg *config.Config

	switch source {
	case "merged":
		var err error
		if cfg, err = resolveConfig(flags); err != nil {
			return err
		}
	case "defaults":
		cfg = config.NewConfig()
	default:
		return fmt.Errorf("invalid source %q: use merged or defaults", source)
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		return output.New(w, true).JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}
