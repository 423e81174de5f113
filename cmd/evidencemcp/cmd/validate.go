package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/evidencemcp/internal/citation"
	everr "github.com/Aman-CERP/evidencemcp/internal/errors"
	"github.com/Aman-CERP/evidencemcp/internal/evidence"
	"github.com/Aman-CERP/evidencemcp/internal/output"
)

type validateOptions struct {
	packagePath string
	answerPath  string
	format      string
	strict      bool
}

func newValidateCmd() *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an answer's citations against a saved evidence package",
		Long: `Check that every bracketed citation in an answer resolves against the
sentence corpus of an evidence package saved with 'search --save'.

Citations may name a record, e.g. [30000001] or [PMID:30000001], or one
sentence of it, e.g. [30000001:S:2].

Examples:
  evidencemcp validate --package package.json --answer answer.md
  cat answer.md | evidencemcp validate --package package.json --answer -
  evidencemcp validate --package package.json --answer answer.md --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.packagePath, "package", "p", "", "Evidence package JSON written by 'search --save'")
	cmd.Flags().StringVarP(&opts.answerPath, "answer", "a", "", "Answer text file, or - for stdin")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit with an error when any citation is invalid")
	_ = cmd.MarkFlagRequired("package")
	_ = cmd.MarkFlagRequired("answer")

	return cmd
}

func runValidate(cmd *cobra.Command, opts validateOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: use text or json", opts.format)
	}

	pkg, err := readPackage(opts.packagePath)
	if err != nil {
		return err
	}
	answer, err := readAnswer(cmd.InOrStdin(), opts.answerPath)
	if err != nil {
		return err
	}

	res := citation.Validate(answer, pkg.Chunks)

	stdout := cmd.OutOrStdout()
	out := output.New(stdout, isTerminal(stdout))
	if opts.format == "json" {
		if err := out.JSON(res); err != nil {
			return err
		}
	} else {
		out.Text(output.FormatValidation(res))
	}

	if opts.strict && len(res.Invalid) > 0 {
		return everr.ValidationError(fmt.Sprintf("%d of %d citations do not resolve", len(res.Invalid), res.Total), nil)
	}
	return nil
}

func readPackage(path string) (*evidence.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, everr.New(everr.ErrCodeFileNotFound, fmt.Sprintf("evidence package not found: %s", path), err).
				WithSuggestion("Save one with 'evidencemcp search <query> --save " + path + "'.")
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var pkg evidence.Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, everr.ValidationError(fmt.Sprintf("invalid evidence package %s", path), err)
	}
	return &pkg, nil
}

func readAnswer(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return string(data), nil
}
