package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chatgate/tasks"
)

var iconTags = map[string]string{
	"react":      "jsx",
	"typescript": "ts",
	"javascript": "js",
	"css":        "css",
	"html":       "html",
	"json":       "json",
	"markdown":   "md",
}

func statusGlyph(s tasks.Status) string {
	switch s {
	case tasks.StatusCompleted:
		return ApprovedStyle.Render("✓")
	case tasks.StatusInProgress:
		return SelectedStyle.Render("◐")
	case tasks.StatusPending:
		return DimStyle.Render("○")
	default:
		return DimStyle.Render("?")
	}
}

// FileChip renders a file reference as "[tag] name".
func FileChip(f tasks.TaskFile) string {
	tag, ok := iconTags[f.Icon]
	if !ok {
		tag = f.Icon
	}
	style := ChipStyle
	if f.Color != "" && !strings.ContainsAny(f.Color, " -") {
		style = style.Foreground(lipgloss.Color(f.Color))
	}
	return style.Render("[" + tag + "] " + f.Name)
}

// RenderTaskList renders tasks with a status glyph per task and one line
// per item. It accepts partially streamed lists.
func RenderTaskList(list []tasks.Task, width int) string {
	if len(list) == 0 {
		return DimStyle.Render("No tasks yet")
	}

	done := 0
	for _, t := range list {
		if t.Status == tasks.StatusCompleted {
			done++
		}
	}

	itemStyle := lipgloss.NewStyle()
	if width > 6 {
		itemStyle = itemStyle.Width(width - 6)
	}

	lines := []string{TitleStyle.Render(fmt.Sprintf("Tasks (%d/%d completed)", done, len(list)))}
	for _, t := range list {
		title := t.Title
		if title == "" {
			title = "Untitled task"
		}
		lines = append(lines, "", statusGlyph(t.Status)+" "+TitleStyle.Render(title))
		for _, it := range t.Items {
			text := it.Text
			if it.Type == tasks.ItemFile && it.File != nil {
				text = strings.TrimSpace(text + " " + FileChip(*it.File))
			}
			lines = append(lines, "    "+itemStyle.Render("• "+text))
		}
	}
	return strings.Join(lines, "\n")
}
