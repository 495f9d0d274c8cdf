// Package ui formats reports for the terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/klimeurt/repolens/internal/analyzer"
	"github.com/klimeurt/repolens/internal/scoring"
)

var (
	colorPrimary = lipgloss.Color("#7B6DF0")
	colorSuccess = lipgloss.Color("#4CAF50")
	colorWarning = lipgloss.Color("#E5C07B")
	colorError   = lipgloss.Color("#FF6B6B")
	colorMuted   = lipgloss.Color("#9C95B8")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(12)

	errorPrefix = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true).
			Render("[ERROR]")
)

// FormatScore colors a score by band
func FormatScore(score int) string {
	color := colorError
	switch {
	case score >= 80:
		color = colorSuccess
	case score >= 60:
		color = colorWarning
	}
	return lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		Render(fmt.Sprintf("%d / %d", score, scoring.MaxScore))
}

// FormatLabel formats a label
func FormatLabel(label string) string {
	return labelStyle.Render(label)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", errorPrefix, message)
}

// RenderReport writes a human readable report
func RenderReport(w io.Writer, report *analyzer.Report) {
	s := report.Signals
	lang := s.Language
	if lang == "" {
		lang = scoring.UnknownLanguageLabel
	}
	readme := "no"
	if s.ReadmeContent {
		readme = "yes"
	} else if s.Readme {
		readme = "too short"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(report.Repository.Owner+"/"+report.Repository.Name))
	fmt.Fprintf(&b, "%s %s\n", FormatLabel("Score"), FormatScore(report.Score))
	fmt.Fprintf(&b, "%s %s\n\n", FormatLabel("Summary"), report.Summary)

	fmt.Fprintf(&b, "%s\n", titleStyle.Render("Roadmap"))
	for _, item := range report.Roadmap {
		fmt.Fprintf(&b, "  - %s\n", item)
	}

	fmt.Fprintf(&b, "\n%s\n", titleStyle.Render("Signals"))
	fmt.Fprintf(&b, "%s %s\n", FormatLabel("Language"), lang)
	fmt.Fprintf(&b, "%s %s\n", FormatLabel("Structure"), s.Structure.Title())
	fmt.Fprintf(&b, "%s %d\n", FormatLabel("Files"), s.Files)
	fmt.Fprintf(&b, "%s %s\n", FormatLabel("README"), readme)
	fmt.Fprintf(&b, "%s %s\n", FormatLabel("Tests"), yesNo(s.Tests))
	fmt.Fprintf(&b, "%s %d\n", FormatLabel("Commits"), s.Commits)
	fmt.Fprintf(&b, "%s %d\n", FormatLabel("Stars"), s.Stars)

	fmt.Fprintf(&b, "\n%s\n", lipgloss.NewStyle().Foreground(colorMuted).Render(
		fmt.Sprintf("summary: %s, took %dms", report.SummarySource, report.DurationMS)))

	_, _ = io.WriteString(w, b.String())
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
