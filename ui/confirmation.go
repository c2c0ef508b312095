package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Decision is the state of a confirmation. Approved and rejected are
// terminal.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

type Action int

const (
	ActionApprove Action = iota
	ActionReject
)

type Region int

const (
	RegionRequest Region = iota
	RegionAccepted
	RegionRejected
	RegionActions
)

// Approval holds the callbacks invoked by the confirmation actions.
type Approval struct {
	OnApprove func()
	OnReject  func()
}

// Confirmation renders an approve/reject prompt. It keeps no state of its
// own: the caller supplies State and stores whatever Act returns.
type Confirmation struct {
	State    Decision
	Approval Approval

	Title    string
	Request  string
	Accepted string
	Rejected string
	Width    int
}

func (c Confirmation) state() Decision {
	if c.State == "" {
		return DecisionPending
	}
	return c.State
}

// Visible reports whether a region is rendered in the current state.
func (c Confirmation) Visible(r Region) bool {
	switch r {
	case RegionRequest, RegionActions:
		return c.state() == DecisionPending
	case RegionAccepted:
		return c.state() == DecisionApproved
	case RegionRejected:
		return c.state() == DecisionRejected
	}
	return false
}

// Act applies an action and returns the resulting state. The matching
// callback runs only on a transition out of pending.
func (c Confirmation) Act(a Action) Decision {
	if c.state() != DecisionPending {
		return c.state()
	}
	switch a {
	case ActionApprove:
		if c.Approval.OnApprove != nil {
			c.Approval.OnApprove()
		}
		return DecisionApproved
	case ActionReject:
		if c.Approval.OnReject != nil {
			c.Approval.OnReject()
		}
		return DecisionRejected
	}
	return DecisionPending
}

func (c Confirmation) View() string {
	width := 60
	if c.Width > 0 && c.Width-4 < width {
		width = c.Width - 4
	}
	if width < 20 {
		width = 20
	}

	var sections []string
	if c.Title != "" {
		sections = append(sections, lipgloss.NewStyle().
			Bold(true).
			Foreground(warningColor).
			Width(width).
			Render(c.Title))
	}

	body := lipgloss.NewStyle().Width(width)
	if c.Visible(RegionRequest) {
		var lines []string
		for _, line := range strings.Split(c.Request, "\n") {
			lines = append(lines, body.Render(line))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if c.Visible(RegionAccepted) {
		sections = append(sections, ApprovedStyle.Render("✓ "+orDefault(c.Accepted, "Approved")))
	}
	if c.Visible(RegionRejected) {
		sections = append(sections, RejectedStyle.Render("✗ "+orDefault(c.Rejected, "Rejected")))
	}
	if c.Visible(RegionActions) {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(dimColor).
			Width(width).
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(dimColor).
			Render(FormatFooter("y", "Approve", "n", "Reject")))
	}

	return PanelStyle.Render(strings.Join(sections, "\n"))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
