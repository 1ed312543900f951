package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/ctxpack/internal/fsys"
	"github.com/fyrsmithlabs/ctxpack/internal/imports"
)

// depsReport is the structured output of the deps command.
type depsReport struct {
	File         string   `json:"file" yaml:"file"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
	Dependents   []string `json:"dependents,omitempty" yaml:"dependents,omitempty"`
}

func newDepsCmd(a *app) *cobra.Command {
	var (
		root       string
		dependents bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "deps <file>",
		Short: "Show the local imports of a file",
		Long: `Show the project files a source file imports. With --dependents the whole
project is scanned for files importing it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, formatText, formatJSON, formatYAML); err != nil {
				return err
			}
			dir, err := absRoot(root)
			if err != nil {
				return err
			}
			file := args[0]
			if !filepath.IsAbs(file) {
				file = filepath.Join(dir, file)
			}

			fs := fsys.OS{}
			ix, err := imports.New(fs, dir, a.importOptions()...)
			if err != nil {
				return err
			}
			resolved, err := fs.RealPath(file)
			if err != nil {
				return fmt.Errorf("cannot resolve %s: %w", args[0], err)
			}

			report := depsReport{File: resolved, Dependencies: ix.GetDependencies(resolved)}
			if dependents {
				index, err := ix.BuildIndex(cmd.Context())
				if err != nil {
					return err
				}
				report.Dependents = index.ImportedBy(resolved)
			}

			if format != formatText {
				return encode(cmd.OutOrStdout(), format, report)
			}
			w := cmd.OutOrStdout()
			for _, d := range report.Dependencies {
				fmt.Fprintln(w, d)
			}
			if dependents {
				fmt.Fprintln(w, dimStyle.Render("imported by:"))
				for _, d := range report.Dependents {
					fmt.Fprintln(w, d)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "project root")
	cmd.Flags().BoolVar(&dependents, "dependents", false, "also list files importing this one")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	return cmd
}
