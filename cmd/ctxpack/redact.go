package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRedactCmd(a *app) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "redact [file|-]",
		Short: "Redact secrets from a file or stdin",
		Long: `Redact secrets from a file, or from stdin when no file (or "-") is given.
The redacted content goes to stdout and a count to stderr. Allowlists are
loaded from --root/.gitleaks.toml and secrets.user_allowlist.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			dir, err := absRoot(root)
			if err != nil {
				return err
			}
			redactor, err := a.newRedactor(dir)
			if err != nil {
				return err
			}

			res := redactor.Redact(string(data))
			if _, err := io.WriteString(cmd.OutOrStdout(), res.Content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d redactions", res.RedactionCount)
			if len(res.RedactedTypes) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), " (%s)", strings.Join(res.RedactedTypes, ", "))
			}
			fmt.Fprintln(cmd.ErrOrStderr())

			a.logger.Debug(cmd.Context(), "redacted input",
				zap.Int("bytes", len(data)),
				zap.Int("redactions", res.RedactionCount))
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "project root for .gitleaks.toml")
	return cmd
}
