// Package ui renders the gateway's streams in the terminal: the chat app and
// the widgets it is built from.
package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chatgate/client"
	appmodel "chatgate/model"
)

// tabs is the route switcher order.
var tabs = append(append([]appmodel.Route{}, appmodel.ChatRoutes...), appmodel.RouteTasks)

type AppView struct {
	dataModel *appmodel.Model
	client    *client.Client

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	showHelp bool
	picker   *modelPicker

	// Widget state per assistant message id. Widgets outlive re-renders so
	// their open state survives new events.
	reasoning map[string]*Reasoning
	sources   map[string]*Sources
	// Rendered markdown per "messageID/partIndex".
	rendered map[string]string

	stream      *client.EventReader
	tasksStream *client.TextReader
	cancel      context.CancelFunc

	flash   string
	lastErr string
}

// chatOpenedMsg and tasksOpenedMsg deliver a stream once the gateway has
// answered with 2xx.
type chatOpenedMsg struct {
	reader *client.EventReader
}

type tasksOpenedMsg struct {
	reader *client.TextReader
}

func NewAppView(dataModel *appmodel.Model, c *client.Client) AppView {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Alt+Enter for newline, Enter sends
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AssistantStyle

	return AppView{
		dataModel: dataModel,
		client:    c,
		viewport:  viewport.New(0, 0),
		textarea:  ta,
		spinner:   sp,
		reasoning: make(map[string]*Reasoning),
		sources:   make(map[string]*Sources),
		rendered:  make(map[string]string),
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, a.spinner.Tick)
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading chatgate..."
	}
	if a.showHelp {
		return renderHelpModal(a.width, a.height)
	}
	if a.picker != nil {
		return a.picker.View(a.width, a.height)
	}

	sections := []string{
		a.renderTitleBar(),
		a.viewport.View(),
		a.textarea.View(),
		a.renderStatusBar(),
	}
	return strings.Join(sections, "\n")
}

func (a AppView) renderTitleBar() string {
	parts := []string{TitleStyle.Render("chatgate")}
	for _, r := range tabs {
		if r == a.dataModel.Route {
			parts = append(parts, SelectedStyle.Render("["+r.Label()+"]"))
		} else {
			parts = append(parts, DimStyle.Render(r.Label()))
		}
	}
	return lipgloss.NewStyle().Width(a.width).Render(strings.Join(parts, "  "))
}

func (a AppView) renderStatusBar() string {
	var left string
	switch {
	case a.flash != "":
		left = HighlightStyle.Render(a.flash)
	case a.awaitingApproval():
		left = SelectedStyle.Render("Tool call needs approval: y approve, n reject")
	case a.dataModel.Streaming:
		left = StatusStyle.Render(a.spinner.View() + "Streaming... Esc to stop")
	case a.dataModel.Route == appmodel.RouteReasoning:
		left = StatusStyle.Render("model: " + a.dataModel.ReasoningModel)
	default:
		left = StatusStyle.Render(a.dataModel.Route.Label())
	}

	right := FormatFooter("F1", "Help", "Tab", "Route", "C-r", "Reasoning", "C-s", "Sources")
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

// awaitingApproval reports whether input is blocked on a tool approval.
func (a AppView) awaitingApproval() bool {
	return !a.dataModel.Streaming && len(a.dataModel.Conversation.PendingApprovals()) > 0
}

func (a *AppView) layout() {
	a.textarea.SetWidth(a.width)
	a.viewport.Width = a.width
	h := a.height - a.textarea.Height() - 2
	if h < 1 {
		h = 1
	}
	a.viewport.Height = h
}
