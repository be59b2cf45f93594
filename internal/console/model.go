// Package console provides the Bubble Tea operator console.
package console

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ayusman/ghostglove/internal/session"
)

const (
	// SentFlash is how long a sent key stays on screen.
	SentFlash = time.Second
	// maxEvents is how many recent events are listed.
	maxEvents = 5
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	idleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF"))
	recordingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	hoverStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	missStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#646464"))
	sentStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF4D4F"))
	eventStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// OutcomeMsg delivers one frame's Outcome to the model.
type OutcomeMsg struct {
	Outcome session.Outcome
}

type closedMsg struct{}

// ControlFunc forwards a parsed key to the frame loop.
type ControlFunc func(session.Control) bool

// Model implements the Bubble Tea console.
type Model struct {
	control  ControlFunc
	outcomes <-chan session.Outcome
	now      func() time.Time

	last   session.Outcome
	seen   bool
	sent   []string
	sentAt time.Time
	events []string
	width  int
}

// NewModel constructs a console model that renders outcomes and forwards
// key presses to control.
func NewModel(outcomes <-chan session.Outcome, control ControlFunc) *Model {
	return &Model{
		control:  control,
		outcomes: outcomes,
		now:      time.Now,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForOutcome()
}

func (m *Model) waitForOutcome() tea.Cmd {
	if m.outcomes == nil {
		return nil
	}
	ch := m.outcomes
	return func() tea.Msg {
		out, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return OutcomeMsg{Outcome: out}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		default:
			if ctl := session.ParseKey(msg.String()); ctl.Kind != session.ControlNone && m.control != nil {
				m.control(ctl)
			}
			return m, nil
		}
	case OutcomeMsg:
		m.apply(msg.Outcome)
		return m, m.waitForOutcome()
	case closedMsg:
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m *Model) apply(out session.Outcome) {
	m.last = out
	m.seen = true

	if out.Toggled {
		m.event(fmt.Sprintf("switched to %s mode", out.Mode))
	}
	for _, e := range out.Saved {
		m.event(fmt.Sprintf("saved key %q", e.Label))
	}
	if len(out.Emitted) > 0 {
		m.sent = out.Emitted
		m.sentAt = m.now()
		m.event("sent " + strings.Join(out.Emitted, " "))
	}
}

func (m *Model) event(s string) {
	m.events = append(m.events, s)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("MODE: " + m.last.Mode.String()))
	b.WriteString("\n")

	text, style := Status(m.last)
	if !m.seen {
		text, style = "Waiting for cameras...", idleStyle
	}
	b.WriteString(style.Render(text))
	b.WriteString("\n")

	if len(m.sent) > 0 && m.now().Sub(m.sentAt) < SentFlash {
		b.WriteString(sentStyle.Render("SENT! " + strings.Join(m.sent, " ")))
		b.WriteString("\n")
	}

	if len(m.events) > 0 {
		b.WriteString("\n")
		for _, e := range m.events {
			b.WriteString(eventStyle.Render("  " + e))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("tab switch mode · space send · other keys calibrate · esc quit"))
	return b.String()
}

// Status returns the status line for an Outcome and its style.
func Status(out session.Outcome) (string, lipgloss.Style) {
	if len(out.Positions) == 0 {
		return "No Finger", idleStyle
	}

	if out.Mode == session.ModeRecording {
		return fmt.Sprintf("Recording... (%d saved)", out.Stored), recordingStyle
	}

	var hovered []string
	for _, r := range out.Matches {
		if r.Hit {
			hovered = append(hovered, "[ "+strings.ToUpper(r.Label)+" ]")
		}
	}
	if len(hovered) == 0 {
		return "Hovering...", missStyle
	}
	return "HOVER: " + strings.Join(hovered, " "), hoverStyle
}
