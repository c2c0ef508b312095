package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"chatgate/config"
	"chatgate/provider"
)

var knownReasoningModels = []string{
	"openai/gpt-4o",
	"openai/gpt-4o-mini",
	"openai/o4-mini",
	"deepseek/deepseek-reasoner",
	"deepseek/deepseek-chat",
}

// ReasoningModels lists "provider/model" choices for the reasoning route:
// the configured default first, then well-known models, then each
// provider's default model. Only specs the gateway accepts from a client
// are listed.
func ReasoningModels(cfg *config.Config) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(spec string) {
		if spec == "" || seen[spec] || provider.ReasoningModel(spec) != spec {
			return
		}
		seen[spec] = true
		out = append(out, spec)
	}

	if cfg != nil {
		add(cfg.Routes.DefaultReasoningModel)
	}
	for _, spec := range knownReasoningModels {
		add(spec)
	}
	if cfg != nil {
		ids := make([]string, 0, len(cfg.Providers))
		for id := range cfg.Providers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if m := cfg.Providers[id].DefaultModel; m != "" {
				add(id + "/" + m)
			}
		}
	}
	return out
}

// modelPicker is a fuzzy-filtered list of model specs.
type modelPicker struct {
	choices  []string
	filter   textinput.Model
	matches  []int
	selected int
	current  string
}

func newModelPicker(choices []string, current string) modelPicker {
	in := textinput.New()
	in.Prompt = "Filter: "
	in.CharLimit = 64
	in.Focus()

	p := modelPicker{choices: choices, filter: in, current: current}
	p.refilter()
	for i, idx := range p.matches {
		if choices[idx] == current {
			p.selected = i
		}
	}
	return p
}

func (p *modelPicker) refilter() {
	query := strings.TrimSpace(p.filter.Value())
	p.matches = p.matches[:0]
	if query == "" {
		for i := range p.choices {
			p.matches = append(p.matches, i)
		}
	} else {
		for _, m := range fuzzy.Find(query, p.choices) {
			p.matches = append(p.matches, m.Index)
		}
	}
	if p.selected >= len(p.matches) {
		p.selected = len(p.matches) - 1
	}
	if p.selected < 0 {
		p.selected = 0
	}
}

// Selected returns the highlighted spec, or "" when nothing matches.
func (p modelPicker) Selected() string {
	if len(p.matches) == 0 {
		return ""
	}
	return p.choices[p.matches[p.selected]]
}

// Update handles a key. done is true when the picker should close; chosen is
// empty when it was cancelled.
func (p modelPicker) Update(msg tea.KeyMsg) (picker modelPicker, chosen string, done bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		return p, "", true, nil
	case "enter":
		return p, p.Selected(), true, nil
	case "up", "ctrl+p", "ctrl+k":
		if p.selected > 0 {
			p.selected--
		}
		return p, "", false, nil
	case "down", "ctrl+n", "ctrl+j":
		if p.selected < len(p.matches)-1 {
			p.selected++
		}
		return p, "", false, nil
	}

	p.filter, cmd = p.filter.Update(msg)
	p.refilter()
	return p, "", false, cmd
}

func (p modelPicker) View(width, height int) string {
	modalWidth := width - 10
	if modalWidth > 70 {
		modalWidth = 70
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("Reasoning Model")

	count := fmt.Sprintf("%d models", len(p.choices))
	if len(p.matches) != len(p.choices) {
		count = fmt.Sprintf("%d of %d models", len(p.matches), len(p.choices))
	}
	header := lipgloss.NewStyle().
		Foreground(dimColor).
		Width(modalWidth).
		BorderTop(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(p.filter.View() + "  " + count)

	var lines []string
	if len(p.matches) == 0 {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render("No matches found"))
	}

	maxLines := height - 10
	if maxLines < 3 {
		maxLines = 3
	}
	start := 0
	if p.selected >= maxLines {
		start = p.selected - maxLines + 1
	}
	for i := start; i < len(p.matches) && i < start+maxLines; i++ {
		spec := p.choices[p.matches[i]]
		indicator := "  "
		style := lipgloss.NewStyle()
		if i == p.selected {
			indicator = "▶ "
			style = style.Foreground(successColor).Bold(true)
		} else if spec == p.current {
			style = style.Foreground(accentColor).Bold(true)
		}
		line := indicator + spec
		if spec == p.current {
			line += " (current)"
		}
		lines = append(lines, style.Render(line))
	}

	footer := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(FormatFooter("Type", "Filter", "↑/↓", "Navigate", "Enter", "Select", "Esc", "Cancel"))

	content := strings.Join(append(append([]string{title, header}, lines...), footer), "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
