package ui

import (
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"chatgate/config"
	appmodel "chatgate/model"
)

var errNothingToCopy = errors.New("nothing to copy yet")

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.layout()
		a.ready = true
		clear(a.rendered)
		cmd := a.renderFinishedMarkdown()
		a.updateViewportContent(true)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		cmds = append(cmds, cmd)
		for _, r := range a.reasoning {
			updated, cmd := r.Update(msg)
			*r = updated
			cmds = append(cmds, cmd)
		}
		if a.dataModel.Streaming {
			a.updateViewportContent(false)
		}
		return a, tea.Batch(cmds...)

	case chatOpenedMsg, appmodel.StreamEventMsg, appmodel.StreamDoneMsg, appmodel.StreamErrorMsg,
		tasksOpenedMsg, appmodel.TasksChunkMsg, appmodel.TasksDoneMsg:
		return a.handleStreamingMessage(msg)

	case appmodel.MarkdownRenderedMsg:
		if msg.Width == a.width {
			a.rendered[partKey(msg.MessageID, msg.PartIndex)] = msg.Rendered
			a.updateViewportContent(false)
		}
		return a, nil

	case appmodel.ClipboardCopiedMsg:
		if msg.Err != nil {
			a.flash = "Copy failed: " + msg.Err.Error()
		} else {
			a.flash = "Copied last answer to clipboard"
		}
		return a, flashTimeout()

	case appmodel.FlashTickMsg:
		a.flash = ""
		return a, nil
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		if a.cancel != nil {
			a.cancel()
		}
		a.dataModel.Quitting = true
		return a, tea.Quit
	}

	if a.showHelp {
		if key.Matches(msg, keys.Help) || key.Matches(msg, keys.Stop) {
			a.showHelp = false
		}
		return a, nil
	}

	if a.picker != nil {
		p, chosen, done, cmd := a.picker.Update(msg)
		if !done {
			a.picker = &p
			return a, cmd
		}
		a.picker = nil
		if chosen != "" {
			a.dataModel.ReasoningModel = chosen
			a.flash = "Reasoning model: " + chosen
			return a, flashTimeout()
		}
		return a, nil
	}

	if a.awaitingApproval() {
		switch {
		case key.Matches(msg, keys.Approve):
			return a.decideApproval(ActionApprove)
		case key.Matches(msg, keys.Reject):
			return a.decideApproval(ActionReject)
		}
	}

	switch {
	case key.Matches(msg, keys.Help):
		a.showHelp = true
		return a, nil

	case key.Matches(msg, keys.Stop):
		if a.cancel != nil {
			a.cancel()
		}
		return a, nil

	case key.Matches(msg, keys.ToggleReasoning):
		if r := a.latestReasoning(); r != nil {
			r.Toggle()
			a.updateViewportContent(false)
		}
		return a, nil

	case key.Matches(msg, keys.ToggleSources):
		if s := a.latestSources(); s != nil {
			s.Toggle()
			a.updateViewportContent(false)
		}
		return a, nil

	case key.Matches(msg, keys.PickModel):
		if a.dataModel.Route == appmodel.RouteReasoning {
			p := newModelPicker(ReasoningModels(a.dataModel.Config), a.dataModel.ReasoningModel)
			a.picker = &p
		}
		return a, nil

	case key.Matches(msg, keys.Copy):
		return a, copyToClipboard(a.lastAnswer())

	case key.Matches(msg, keys.NextRoute), key.Matches(msg, keys.PrevRoute):
		if a.dataModel.Streaming {
			return a, nil
		}
		step := 1
		if key.Matches(msg, keys.PrevRoute) {
			step = len(tabs) - 1
		}
		a.dataModel.Route = tabs[(routeIndex(a.dataModel.Route)+step)%len(tabs)]
		a.updateViewportContent(true)
		return a, nil

	case key.Matches(msg, keys.ScrollUp):
		a.viewport.SetYOffset(a.viewport.YOffset - a.viewport.Height/2)
		return a, nil

	case key.Matches(msg, keys.ScrollDown):
		a.viewport.SetYOffset(a.viewport.YOffset + a.viewport.Height/2)
		return a, nil

	case key.Matches(msg, keys.Send):
		if a.dataModel.Streaming || a.awaitingApproval() {
			return a, nil
		}
		text := strings.TrimSpace(a.textarea.Value())
		if text == "" {
			return a, nil
		}
		a.textarea.Reset()
		var cmd tea.Cmd
		if a.dataModel.Route == appmodel.RouteTasks {
			cmd = a.startTasks(text)
		} else {
			a.dataModel.Conversation.AddUser(text)
			cmd = a.startChat()
		}
		return a, cmd
	}

	if a.awaitingApproval() {
		return a, nil
	}
	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

// decideApproval answers the oldest pending tool approval. The
// conversation is re-posted once nothing is left pending.
func (a AppView) decideApproval(action Action) (tea.Model, tea.Cmd) {
	conv := a.dataModel.Conversation
	pending := conv.PendingApprovals()
	if len(pending) == 0 {
		return a, nil
	}
	id := pending[0]

	respond := func(approved bool) func() {
		return func() {
			if err := conv.RespondToApproval(id, approved); err != nil {
				a.lastErr = err.Error()
			}
		}
	}
	c := Confirmation{
		State:    DecisionPending,
		Approval: Approval{OnApprove: respond(true), OnReject: respond(false)},
	}
	decision := c.Act(action)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Approval %s: %s", id, decision)
	}

	if len(conv.PendingApprovals()) > 0 {
		a.updateViewportContent(true)
		return a, nil
	}
	cmd := a.startChat()
	return a, cmd
}

func (a AppView) latestReasoning() *Reasoning {
	msgs := a.dataModel.Conversation.Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if r, ok := a.reasoning[msgs[i].ID]; ok {
			return r
		}
	}
	return nil
}

func (a AppView) latestSources() *Sources {
	msgs := a.dataModel.Conversation.Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if s, ok := a.sources[msgs[i].ID]; ok && s.Count() > 0 {
			return s
		}
	}
	return nil
}

func (a AppView) lastAnswer() string {
	if a.dataModel.Route == appmodel.RouteTasks {
		return a.dataModel.TasksText
	}
	msgs := a.dataModel.Conversation.Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == appmodel.RoleAssistant && msgs[i].Text() != "" {
			return msgs[i].Text()
		}
	}
	return ""
}

func routeIndex(r appmodel.Route) int {
	for i, t := range tabs {
		if t == r {
			return i
		}
	}
	return 0
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if text == "" {
			return appmodel.ClipboardCopiedMsg{Err: errNothingToCopy}
		}
		return appmodel.ClipboardCopiedMsg{Err: clipboard.WriteAll(text)}
	}
}

func flashTimeout() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return appmodel.FlashTickMsg{}
	})
}
