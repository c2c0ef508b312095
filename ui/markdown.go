package ui

import (
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"chatgate/config"
	"chatgate/model"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
)

const codeBar = "┃"

// RenderMarkdown renders markdown for a terminal of the given width.
// Links are flattened to their URL so the terminal can detect them.
func RenderMarkdown(content string, width int) string {
	if width < 20 {
		width = 20
	}
	content = mdLinkRegex.ReplaceAllString(content, "$2")

	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(width, 0)
	rendered := string(gomarkdown.Render(p.Parse([]byte(content)), r))

	rendered = inlineCodeRegex.ReplaceAllString(rendered, "\x1b[31m$1\x1b[0m")
	rendered = frameCodeBlocks(rendered, width)
	return strings.TrimRight(rendered, "\n")
}

// frameCodeBlocks replaces the renderer's left bar on code lines with a
// labelled rule above and below each block.
func frameCodeBlocks(s string, width int) string {
	const darkGray = "\x1b[90m"
	const reset = "\x1b[0m"

	label := "[code]"
	ruleLen := width - 4
	if ruleLen < len(label) {
		ruleLen = len(label)
	}
	left := (ruleLen - len(label)) / 2
	top := darkGray + strings.Repeat("━", left) + reset + label + darkGray + strings.Repeat("━", ruleLen-len(label)-left) + reset
	bottom := darkGray + strings.Repeat("━", ruleLen) + reset

	var out []string
	inBlock := false
	for _, line := range strings.Split(s, "\n") {
		idx := strings.Index(line, codeBar)
		if idx >= 0 {
			if !inBlock {
				inBlock = true
				out = append(out, "", top)
			}
			rest := line[idx+len(codeBar):]
			out = append(out, strings.TrimPrefix(rest, " "))
			continue
		}
		if inBlock {
			out = append(out, bottom, "")
			inBlock = false
		}
		out = append(out, line)
	}
	if inBlock {
		out = append(out, bottom, "")
	}
	return strings.Join(out, "\n")
}

// renderMarkdownAsync renders one finished text part off the update loop
// for a view of the given width.
func renderMarkdownAsync(messageID string, partIndex int, content string, width int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		rendered := RenderMarkdown(content, width-4)
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Rendered markdown for %s/%d (%d chars) in %v", messageID, partIndex, len(content), time.Since(start))
		}
		return model.MarkdownRenderedMsg{
			MessageID: messageID,
			PartIndex: partIndex,
			Width:     width,
			Rendered:  rendered,
		}
	}
}
