package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"chatgate/config"
	appmodel "chatgate/model"
)

// startChat posts the conversation to the current route.
func (a *AppView) startChat() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.dataModel.Streaming = true
	a.lastErr = ""

	c := a.client
	route := a.dataModel.Route
	req := a.dataModel.Request()
	a.updateViewportContent(true)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Sending %d messages to %s", len(req.Messages), route)
	}

	return func() tea.Msg {
		reader, err := c.Chat(ctx, route, req)
		if err != nil {
			return appmodel.StreamErrorMsg{Err: err}
		}
		return chatOpenedMsg{reader: reader}
	}
}

// startTasks asks the tasks route for a task list.
func (a *AppView) startTasks(prompt string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.dataModel.Streaming = true
	a.dataModel.TasksPrompt = prompt
	a.dataModel.TasksText = ""
	a.lastErr = ""
	a.updateViewportContent(true)

	c := a.client
	return func() tea.Msg {
		reader, err := c.Tasks(ctx, prompt)
		if err != nil {
			return appmodel.TasksDoneMsg{Err: err}
		}
		return tasksOpenedMsg{reader: reader}
	}
}

// The read commands pull one item per call so the update loop stays the
// only writer of conversation state.

func (a AppView) readEvent() tea.Cmd {
	r := a.stream
	return func() tea.Msg {
		if r.Next() {
			return appmodel.StreamEventMsg{Event: r.Current()}
		}
		r.Close()
		if err := r.Err(); err != nil {
			return appmodel.StreamErrorMsg{Err: err}
		}
		return appmodel.StreamDoneMsg{}
	}
}

func (a AppView) readTasks() tea.Cmd {
	r := a.tasksStream
	return func() tea.Msg {
		if r.Next() {
			return appmodel.TasksChunkMsg{Text: r.Text()}
		}
		r.Close()
		return appmodel.TasksDoneMsg{Err: r.Err()}
	}
}

func (a AppView) handleStreamingMessage(msg tea.Msg) (AppView, tea.Cmd) {
	switch msg := msg.(type) {
	case chatOpenedMsg:
		a.stream = msg.reader
		return a, a.readEvent()

	case appmodel.StreamEventMsg:
		if a.stream == nil {
			return a, nil
		}
		a.dataModel.Conversation.Apply(msg.Event)
		cmd := a.syncWidgets()
		a.updateViewportContent(true)
		return a, tea.Batch(cmd, a.readEvent())

	case appmodel.StreamDoneMsg:
		cmd := a.endChat(nil)
		return a, cmd

	case appmodel.StreamErrorMsg:
		cmd := a.endChat(msg.Err)
		return a, cmd

	case tasksOpenedMsg:
		a.tasksStream = msg.reader
		return a, a.readTasks()

	case appmodel.TasksChunkMsg:
		if a.tasksStream == nil {
			return a, nil
		}
		a.dataModel.TasksText += msg.Text
		a.updateViewportContent(true)
		return a, a.readTasks()

	case appmodel.TasksDoneMsg:
		a.tasksStream = nil
		a.dataModel.Streaming = false
		a.releaseContext()
		if msg.Err != nil {
			a.setError(msg.Err)
		}
		a.updateViewportContent(true)
		return a, nil
	}
	return a, nil
}

// endChat seals the streamed message and schedules markdown rendering for
// its text.
func (a *AppView) endChat(err error) tea.Cmd {
	a.stream = nil
	a.dataModel.Streaming = false
	a.dataModel.Conversation.Seal()
	a.releaseContext()
	if err != nil {
		a.setError(err)
	}

	cmd := a.syncWidgets()
	a.updateViewportContent(true)
	return tea.Batch(cmd, a.renderFinishedMarkdown())
}

func (a *AppView) releaseContext() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *AppView) setError(err error) {
	if errors.Is(err, context.Canceled) {
		a.flash = "Stopped"
		return
	}
	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Stream failed: %v", err)
	}
	a.lastErr = err.Error()
}

// syncWidgets brings the reasoning and sources widgets of the last
// assistant message up to date.
func (a *AppView) syncWidgets() tea.Cmd {
	msg, ok := a.dataModel.Conversation.Last()
	if !ok || msg.Role != appmodel.RoleAssistant {
		return nil
	}

	var cmd tea.Cmd
	if text := msg.Reasoning(); text != "" {
		streaming := a.dataModel.Conversation.Streaming() && reasoningStreaming(msg)
		r, exists := a.reasoning[msg.ID]
		if !exists {
			w := NewReasoning(ReasoningOptions{Streaming: streaming, Width: a.width})
			r = &w
			a.reasoning[msg.ID] = r
			if streaming {
				cmd = r.Tick
			}
		}
		r.SetContent(text)
		r.SetStreaming(streaming)
		r.SetWidth(a.width)
	}

	if len(msg.Sources()) > 0 {
		s, exists := a.sources[msg.ID]
		if !exists {
			s = &Sources{}
			a.sources[msg.ID] = s
		}
		s.Sync(msg.Parts)
		s.SetWidth(a.width)
	}
	return cmd
}

func reasoningStreaming(msg appmodel.Message) bool {
	for _, p := range msg.Parts {
		if p.Kind() == appmodel.PartReasoning && p.State == appmodel.PartStreaming {
			return true
		}
	}
	return false
}

// renderFinishedMarkdown renders every settled text part that has no
// rendering at the current width yet.
func (a AppView) renderFinishedMarkdown() tea.Cmd {
	if a.width == 0 {
		return nil
	}
	conv := a.dataModel.Conversation
	var cmds []tea.Cmd
	for i, msg := range conv.Messages {
		if msg.Role != appmodel.RoleAssistant {
			continue
		}
		if conv.Streaming() && i == len(conv.Messages)-1 {
			continue
		}
		for j, p := range msg.Parts {
			if p.Kind() != appmodel.PartText || p.Text == "" {
				continue
			}
			if _, ok := a.rendered[partKey(msg.ID, j)]; ok {
				continue
			}
			cmds = append(cmds, renderMarkdownAsync(msg.ID, j, p.Text, a.width))
		}
	}
	return tea.Batch(cmds...)
}
