package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	appmodel "chatgate/model"
	"chatgate/tasks"
)

func partKey(messageID string, partIndex int) string {
	return fmt.Sprintf("%s/%d", messageID, partIndex)
}

func (a *AppView) updateViewportContent(gotoBottom bool) {
	if a.dataModel.Route == appmodel.RouteTasks {
		a.viewport.SetContent(a.renderTasksView())
	} else {
		a.viewport.SetContent(a.renderConversation())
	}
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

func (a AppView) renderConversation() string {
	conv := a.dataModel.Conversation
	if len(conv.Messages) == 0 && !a.dataModel.Streaming {
		return DimStyle.Render("No messages yet. Start chatting on " + a.dataModel.Route.Label() + "!")
	}

	var content strings.Builder
	for i, msg := range conv.Messages {
		switch msg.Role {
		case appmodel.RoleUser:
			content.WriteString(formatUserMessage(UserStyle.Render("You"), msg.Text()))
		case appmodel.RoleAssistant:
			streaming := conv.Streaming() && i == len(conv.Messages)-1
			content.WriteString(a.renderAssistant(msg, streaming))
		}
	}

	last, ok := conv.Last()
	if a.dataModel.Streaming && (!ok || last.Role != appmodel.RoleAssistant || !conv.Streaming()) {
		content.WriteString(AssistantStyle.Render("Assistant") + "\n")
		content.WriteString(a.spinner.View() + DimStyle.Render("Waiting for response...") + "\n\n")
	}

	if conv.Err != "" {
		content.WriteString(ErrorStyle.Render("Error: "+conv.Err) + "\n\n")
	}
	if a.lastErr != "" {
		content.WriteString(ErrorStyle.Render("Error: "+a.lastErr) + "\n\n")
	}
	return content.String()
}

// renderAssistant renders parts in arrival order. The reasoning widget sits
// where the first reasoning part arrived; sources are collected at the end.
func (a AppView) renderAssistant(msg appmodel.Message, streaming bool) string {
	var blocks []string
	reasoningShown := false

	for j, p := range msg.Parts {
		switch p.Kind() {
		case appmodel.PartText:
			if rendered, ok := a.rendered[partKey(msg.ID, j)]; ok {
				blocks = append(blocks, rendered)
			} else if p.Text != "" {
				text := p.Text
				if streaming && p.State == appmodel.PartStreaming {
					text += "▋"
				}
				blocks = append(blocks, text)
			}
		case appmodel.PartReasoning:
			if r, ok := a.reasoning[msg.ID]; ok && !reasoningShown {
				blocks = append(blocks, r.View())
				reasoningShown = true
			}
		case appmodel.PartTool:
			blocks = append(blocks, a.renderToolPart(p))
		case appmodel.PartSourceURL, appmodel.PartStepStart:
		default:
			blocks = append(blocks, DimStyle.Render(fmt.Sprintf("[unsupported part: %s]", p.Type)))
		}
	}

	if s, ok := a.sources[msg.ID]; ok && s.Count() > 0 {
		blocks = append(blocks, s.View())
	}
	if len(blocks) == 0 && streaming {
		blocks = append(blocks, a.spinner.View())
	}

	return AssistantStyle.Render("Assistant") + "\n" + strings.Join(blocks, "\n") + "\n\n"
}

func (a AppView) renderToolPart(p appmodel.Part) string {
	header := DimStyle.Render(fmt.Sprintf("⚙ %s %s", p.ToolName(), compactJSON(p.Input)))

	if decision, ok := toolDecision(p); ok {
		c := Confirmation{
			State:    decision,
			Title:    "Tool approval",
			Request:  fmt.Sprintf("Run %s with %s?", p.ToolName(), compactJSON(p.Input)),
			Accepted: "Approved " + p.ToolName(),
			Rejected: "Rejected " + p.ToolName(),
			Width:    a.width,
		}
		view := c.View()
		if p.State == appmodel.ToolOutputAvailable {
			view += "\n" + DimStyle.Render("→ "+compactJSON(p.Output))
		}
		return view
	}

	switch p.State {
	case appmodel.ToolInputAvailable:
		return header + "\n" + a.spinner.View() + DimStyle.Render("Running...")
	case appmodel.ToolOutputAvailable:
		return header + "\n" + DimStyle.Render("→ "+compactJSON(p.Output))
	case appmodel.ToolOutputError:
		return header + "\n" + ErrorStyle.Render("✗ "+p.ErrorText)
	case appmodel.ToolOutputDenied:
		return header + "\n" + RejectedStyle.Render("✗ Denied")
	}
	return header
}

// toolDecision maps a tool part carrying an approval to a confirmation
// state.
func toolDecision(p appmodel.Part) (Decision, bool) {
	if p.Approval == nil {
		return "", false
	}
	switch {
	case p.State == appmodel.ToolApprovalRequested:
		return DecisionPending, true
	case p.State == appmodel.ToolOutputDenied:
		return DecisionRejected, true
	case p.Approval.Approved == nil:
		return DecisionPending, true
	case *p.Approval.Approved:
		return DecisionApproved, true
	default:
		return DecisionRejected, true
	}
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func (a AppView) renderTasksView() string {
	var content strings.Builder
	if a.dataModel.TasksPrompt == "" {
		content.WriteString(DimStyle.Render("Describe a project and get a task plan."))
	} else {
		content.WriteString(formatUserMessage(UserStyle.Render("You"), a.dataModel.TasksPrompt))
	}

	if a.dataModel.TasksText != "" {
		list, err := tasks.ParsePartial(a.dataModel.TasksText)
		if err != nil {
			content.WriteString(DimStyle.Render(a.dataModel.TasksText))
		} else {
			content.WriteString(RenderTaskList(list.Tasks, a.width))
		}
		content.WriteString("\n\n")
	} else if a.dataModel.Streaming {
		content.WriteString(a.spinner.View() + DimStyle.Render("Planning...") + "\n\n")
	}

	if a.lastErr != "" {
		content.WriteString(ErrorStyle.Render("Error: "+a.lastErr) + "\n")
	}
	return content.String()
}

func formatUserMessage(role, content string) string {
	bar := UserStyle.Render("┃")

	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s %s\n", bar, role))
	for _, line := range strings.Split(content, "\n") {
		result.WriteString(fmt.Sprintf("%s %s\n", bar, line))
	}
	result.WriteString("\n")
	return result.String()
}
