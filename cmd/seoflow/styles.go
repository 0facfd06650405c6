package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/seoflow/internal/orchestrator"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

func field(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// statusText colors a run or step status. Run and step states share the
// "completed" and "failed" spellings.
func statusText(status string) string {
	switch status {
	case string(orchestrator.StateCompleted):
		return okStyle.Render("✓ " + status)
	case string(orchestrator.StepDegraded), string(orchestrator.StepFallback), string(orchestrator.StateCancelled):
		return warnStyle.Render("! " + status)
	case string(orchestrator.StateFailed):
		return errStyle.Render("✗ " + status)
	default:
		return dimStyle.Render(status)
	}
}
