package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimColor       = lipgloss.Color("7")
	accentColor    = lipgloss.Color("12")
	successColor   = lipgloss.Color("10")
	warningColor   = lipgloss.Color("11")
	dangerColor    = lipgloss.Color("9")
	highlightColor = lipgloss.Color("13")

	// User message style
	UserStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	// Assistant message style
	AssistantStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	// System/timestamp style
	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	// Collapsible panel used by the reasoning and sources widgets.
	PanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(0, 1)

	TriggerStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	ApprovedStyle = lipgloss.NewStyle().
			Foreground(successColor)

	RejectedStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	// File chip inside a task item.
	ChipStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Padding(0, 1)
)

// FormatFooter formats a footer string with alternating keys and descriptions.
// Descriptions are rendered in accent blue+bold.
// Usage: FormatFooter("y", "Approve", "n", "Reject")
func FormatFooter(parts ...string) string {
	descStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	var result []string
	for i := 0; i < len(parts); i += 2 {
		if i+1 < len(parts) {
			result = append(result, parts[i]+" "+descStyle.Render(parts[i+1]))
		}
	}
	return strings.Join(result, "  ")
}

// panelWidth clamps a panel to the available width, leaving room for the
// border and padding.
func panelWidth(width int) int {
	w := width - 4
	if w < 10 {
		return 10
	}
	return w
}
