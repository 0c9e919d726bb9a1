package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

type summaryRow struct {
	Name     string
	Kind     string
	Duration time.Duration
	Skipped  bool
	Err      error
}

func renderSummary(rows []summaryRow) string {
	var b strings.Builder
	b.WriteString("\n" + headerStyle.Render("Results") + "\n\n")

	var passed, failed, skipped int
	for _, r := range rows {
		var badge string
		switch {
		case r.Skipped:
			skipped++
			badge = skipStyle.Render("SKIP")
		case r.Err != nil:
			failed++
			badge = failStyle.Render("FAIL")
		default:
			passed++
			badge = passStyle.Render("PASS")
		}
		fmt.Fprintf(&b, "  %s  %-32s %-5s %s\n", badge, r.Name, r.Kind, dimStyle.Render(r.Duration.Round(time.Millisecond).String()))
		if r.Err != nil && !r.Skipped {
			fmt.Fprintf(&b, "        %s\n", r.Err)
		}
	}

	b.WriteString("\n  ")
	b.WriteString(passStyle.Render(fmt.Sprintf("%d passed", passed)))
	if failed > 0 {
		b.WriteString(", " + failStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	if skipped > 0 {
		b.WriteString(", " + skipStyle.Render(fmt.Sprintf("%d skipped", skipped)))
	}
	b.WriteString("\n\n")
	return b.String()
}
