package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Reasoning is a collapsible panel showing a model's reasoning trace.
//
// Open state changes only through Toggle. Streaming is supplied by the
// caller and only affects the trigger. While closed the content is not
// rendered at all.
type Reasoning struct {
	content     string
	preRendered bool
	streaming   bool
	open        bool
	width       int
	spinner     spinner.Model
}

type ReasoningOptions struct {
	DefaultOpen bool
	Streaming   bool
	Width       int
}

func NewReasoning(opts ReasoningOptions) Reasoning {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = TriggerStyle
	return Reasoning{
		open:      opts.DefaultOpen,
		streaming: opts.Streaming,
		width:     opts.Width,
		spinner:   s,
	}
}

// SetContent sets markdown content.
func (r *Reasoning) SetContent(markdown string) {
	r.content = markdown
	r.preRendered = false
}

// SetRendered sets content that is already formatted for the terminal.
func (r *Reasoning) SetRendered(rendered string) {
	r.content = rendered
	r.preRendered = true
}

func (r *Reasoning) SetStreaming(streaming bool) { r.streaming = streaming }

func (r *Reasoning) SetWidth(width int) { r.width = width }

func (r *Reasoning) Toggle() { r.open = !r.open }

func (r Reasoning) Open() bool { return r.open }

func (r Reasoning) Streaming() bool { return r.streaming }

// ContentMounted reports whether View includes the content region.
func (r Reasoning) ContentMounted() bool { return r.open }

// Tick starts the trigger spinner.
func (r Reasoning) Tick() tea.Msg { return r.spinner.Tick() }

func (r Reasoning) Update(msg tea.Msg) (Reasoning, tea.Cmd) {
	if !r.streaming {
		return r, nil
	}
	var cmd tea.Cmd
	r.spinner, cmd = r.spinner.Update(msg)
	return r, cmd
}

// Trigger renders the header line.
func (r Reasoning) Trigger() string {
	chevron := "▸"
	if r.open {
		chevron = "▾"
	}
	label := "Reasoning"
	if r.streaming {
		label += " " + strings.TrimSpace(r.spinner.View())
	}
	return TriggerStyle.Render("✻ " + label + " " + chevron)
}

func (r Reasoning) View() string {
	if !r.ContentMounted() {
		return r.Trigger()
	}

	body := r.content
	if !r.preRendered && body != "" {
		body = RenderMarkdown(body, panelWidth(r.width))
	}
	if body == "" {
		return r.Trigger()
	}
	return r.Trigger() + "\n" + PanelStyle.Render(DimStyle.Render(body))
}
