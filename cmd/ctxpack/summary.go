package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/ctxpack/internal/budget"
	"github.com/fyrsmithlabs/ctxpack/internal/bundle"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// renderSummary renders a short human-readable report of b.
func renderSummary(b *bundle.ContextBundle, branch string) string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("ctxpack " + b.ID))
	s.WriteString("\n")

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label))
		s.WriteString(valueStyle.Render(value))
		s.WriteString("\n")
	}
	root := b.ProjectRoot
	if branch != "" {
		root += dimStyle.Render(" (" + branch + ")")
	}
	row("Project", root)
	row("Tokens", fmt.Sprintf("%d / %d", b.TotalTokens, b.TokenCeiling))
	row("Files", fmt.Sprintf("%d admitted, %d omitted", len(b.Files), len(b.OmittedFiles)))
	if b.RedactionStats.TotalRedactions > 0 {
		row("Redactions", fmt.Sprintf("%d in %d files (%s)",
			b.RedactionStats.TotalRedactions,
			b.RedactionStats.FilesRedacted,
			strings.Join(b.RedactionStats.RedactedTypes, ", ")))
	}

	for _, c := range budget.Categories {
		used, ok := b.Categories[c]
		if !ok {
			continue
		}
		s.WriteString(dimStyle.Render(fmt.Sprintf("  %-12s %d", c, used)))
		s.WriteString("\n")
	}

	for _, w := range b.BudgetWarnings {
		style := warningStyle
		if w.Severity == budget.SeverityHigh {
			style = errorStyle
		}
		s.WriteString(style.Render(fmt.Sprintf("! %s: %d files (%d tokens) over budget, try --ceiling %d",
			w.Category, w.OmittedCount, w.OmittedTokens, w.SuggestedBudget)))
		s.WriteString("\n")
	}
	return s.String()
}

func printSummary(w io.Writer, b *bundle.ContextBundle, branch string) {
	fmt.Fprint(w, renderSummary(b, branch))
}
