package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Send            key.Binding
	NextRoute       key.Binding
	PrevRoute       key.Binding
	ToggleReasoning key.Binding
	ToggleSources   key.Binding
	PickModel       key.Binding
	Copy            key.Binding
	Approve         key.Binding
	Reject          key.Binding
	Stop            key.Binding
	ScrollUp        key.Binding
	ScrollDown      key.Binding
	Help            key.Binding
	Quit            key.Binding
}

var keys = keyMap{
	Send:            key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "Send message")),
	NextRoute:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "Next route")),
	PrevRoute:       key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("S-Tab", "Previous route")),
	ToggleReasoning: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("C-r", "Toggle reasoning")),
	ToggleSources:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("C-s", "Toggle sources")),
	PickModel:       key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("C-o", "Reasoning model")),
	Copy:            key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("C-y", "Copy last answer")),
	Approve:         key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "Approve tool call")),
	Reject:          key.NewBinding(key.WithKeys("n", "N"), key.WithHelp("n", "Reject tool call")),
	Stop:            key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "Stop / close")),
	ScrollUp:        key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("PgUp", "Scroll up")),
	ScrollDown:      key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("PgDn", "Scroll down")),
	Help:            key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "Toggle this help")),
	Quit:            key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("C-c", "Quit")),
}

func helpLine(b key.Binding) string {
	h := b.Help()
	return fmt.Sprintf("• %-8s %s", h.Key, h.Desc)
}

func renderHelpModal(width, height int) string {
	green := lipgloss.NewStyle().Bold(true).Foreground(successColor)
	blue := lipgloss.NewStyle().Foreground(accentColor)

	chat := lipgloss.JoinVertical(lipgloss.Left,
		blue.Render("## Chat"),
		helpLine(keys.Send),
		"• Alt+Enter Newline",
		helpLine(keys.NextRoute),
		helpLine(keys.PrevRoute),
		helpLine(keys.PickModel),
		helpLine(keys.Copy),
		helpLine(keys.Stop),
	)

	widgets := lipgloss.JoinVertical(lipgloss.Left,
		blue.Render("## Responses"),
		helpLine(keys.ToggleReasoning),
		helpLine(keys.ToggleSources),
		helpLine(keys.Approve),
		helpLine(keys.Reject),
		helpLine(keys.ScrollUp),
		helpLine(keys.ScrollDown),
		helpLine(keys.Help),
		helpLine(keys.Quit),
	)

	columnStyle := lipgloss.NewStyle().Width(36).PaddingLeft(2)
	content := lipgloss.JoinVertical(lipgloss.Center,
		green.Render("chatgate - Keyboard Shortcuts"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, columnStyle.Render(chat), columnStyle.Render(widgets)),
		"",
		DimStyle.Render("Press F1 or Esc to close this help"),
	)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box.Render(content))
}
