package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"chatgate/model"
)

// Source is one cited link.
type Source struct {
	URL   string
	Title string
}

// Label is the title, or the URL when no distinct title was given.
func (s Source) Label() string {
	title := strings.TrimSpace(s.Title)
	if title == "" || title == s.URL {
		return s.URL
	}
	return title
}

// Sources is a collapsible list of cited links. It starts closed and the
// list is rendered only while open.
type Sources struct {
	entries []Source
	open    bool
	width   int
}

// NewSources collects the source-url parts of a message in arrival order.
func NewSources(parts []model.Part) Sources {
	var s Sources
	for _, p := range parts {
		if p.Kind() == model.PartSourceURL {
			s.Add(Source{URL: p.URL, Title: p.Title})
		}
	}
	return s
}

func (s *Sources) Add(src Source) { s.entries = append(s.entries, src) }

// Sync replaces the entries from a message's parts, keeping the open state.
func (s *Sources) Sync(parts []model.Part) {
	open, width := s.open, s.width
	*s = NewSources(parts)
	s.open, s.width = open, width
}

func (s *Sources) SetWidth(width int) { s.width = width }

func (s *Sources) Toggle() { s.open = !s.open }

func (s Sources) Open() bool { return s.open }

func (s Sources) Count() int { return len(s.entries) }

func (s Sources) Entries() []Source { return s.entries }

func (s Sources) ContentMounted() bool { return s.open }

func (s Sources) Trigger() string {
	chevron := "▸"
	if s.open {
		chevron = "▾"
	}
	return TriggerStyle.Render(fmt.Sprintf("Sources (%d) %s", len(s.entries), chevron))
}

func (s Sources) View() string {
	if !s.ContentMounted() || len(s.entries) == 0 {
		return s.Trigger()
	}

	maxLabel := 0
	if s.width > 0 {
		maxLabel = panelWidth(s.width) - 2
	}

	lines := []string{s.Trigger()}
	for _, src := range s.entries {
		label := src.Label()
		if maxLabel > 0 {
			label = runewidth.Truncate(label, maxLabel, "…")
		}
		lines = append(lines, "  "+Hyperlink(src.URL, label))
	}
	return strings.Join(lines, "\n")
}

// Hyperlink wraps label in an OSC 8 terminal hyperlink to url. Terminals
// open these externally without sending a referrer.
func Hyperlink(url, label string) string {
	return "\x1b]8;;" + url + "\x1b\\" + label + "\x1b]8;;\x1b\\"
}
