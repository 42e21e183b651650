package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ringer/audio"
	"ringer/clipboard"
	"ringer/hotkey"
	"ringer/ring"
	"ringer/signals"
)

// TUI message types
type eventMsg ring.Event
type signalsMsg []signals.Signal
type editOffsetMsg struct{}
type tickMsg time.Time

// controller is what the terminal UI drives. The daemon implements it.
type controller interface {
	RingOff() int
	SetOffset(sec int) error
	Snapshot() ring.State
	Upcoming() []signals.Signal
}

const (
	tuiRefresh  = 100 * time.Millisecond
	maxUpcoming = 6
	flashFor    = 3 * time.Second
)

type tuiModel struct {
	ctl      controller
	state    ring.State
	upcoming []signals.Signal
	width    int

	editing bool
	draft   int

	flash      string
	flashUntil time.Time
	now        func() time.Time

	combo string // shown in the help line
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	ringingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 1)
	ackStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	editStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	flashStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func newTUIModel(ctl controller) tuiModel {
	return tuiModel{
		ctl:      ctl,
		state:    ctl.Snapshot(),
		upcoming: ctl.Upcoming(),
		now:      time.Now,
		combo:    hotkey.DefaultCombo,
	}
}

func NewTUIProgram(ctl controller, combo string) *tea.Program {
	m := newTUIModel(ctl)
	m.combo = combo
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(tuiRefresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		// polled so the short acknowledgement pulse is visible
		m.state = m.ctl.Snapshot()
		return m, tuiTick()

	case eventMsg:
		m.state = m.ctl.Snapshot()

	case signalsMsg:
		m.upcoming = []signals.Signal(msg)

	case editOffsetMsg:
		m.openEditor()
	}
	return m, nil
}

func (m *tuiModel) openEditor() {
	m.editing = true
	m.draft = m.state.Offset
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.editing {
		switch key {
		case "+", "=", "up", "k", "right", "l":
			if m.draft < ring.MaxOffset {
				m.draft++
			}
		case "-", "down", "j", "left", "h":
			if m.draft > 0 {
				m.draft--
			}
		case "enter":
			m.editing = false
			if err := m.ctl.SetOffset(m.draft); err != nil {
				m.setFlash(err.Error())
			} else {
				m.setFlash(fmt.Sprintf("offset set to %ds", m.draft))
			}
			m.state = m.ctl.Snapshot()
		case "esc", "o":
			m.editing = false
		}
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "r", " ", "enter":
		n := m.ctl.RingOff()
		m.state = m.ctl.Snapshot()
		if n > 0 {
			m.setFlash(fmt.Sprintf("silenced %d sound(s)", n))
		}
	case "o":
		m.openEditor()
	case "c":
		m.copySignal()
	}
	return m, nil
}

// copySignal copies the ringing signal, or the next upcoming one.
func (m *tuiModel) copySignal() {
	var sig *signals.Signal
	if m.state.Current != nil {
		sig = m.state.Current
	} else if len(m.upcoming) > 0 {
		sig = &m.upcoming[0]
	}
	if sig == nil {
		m.setFlash("nothing to copy")
		return
	}
	if err := clipboard.Copy(sig.Summary()); err != nil {
		m.setFlash("copy failed: " + err.Error())
		return
	}
	m.setFlash("copied " + sig.Summary())
}

func (m *tuiModel) setFlash(text string) {
	m.flash = text
	m.flashUntil = m.now().Add(flashFor)
}

func (m tuiModel) View() string {
	var b strings.Builder
	s := m.state

	b.WriteString(titleStyle.Render("ringer") + " " + helpStyle.Render(version) + "\n\n")

	switch {
	case s.Ringing && s.Current != nil:
		b.WriteString(ringingStyle.Render("● RINGING  "+s.Current.Summary()) + "\n")
	case s.Ringing:
		b.WriteString(ringingStyle.Render("● RINGING") + "\n")
	case s.Acknowledged:
		b.WriteString(ackStyle.Render("✓ RING-OFF") + "\n")
	case s.Monitoring:
		b.WriteString(idleStyle.Render(fmt.Sprintf("○ MONITORING %d signal(s)", s.Signals)) + "\n")
	default:
		b.WriteString(idleStyle.Render("○ IDLE, no pending signals") + "\n")
	}
	if s.Ringing {
		b.WriteString(infoStyle.Render(fmt.Sprintf("  %d loop(s), %d tone(s), wake lock %s", s.Loops, s.Tones, onOff(s.WakeLock))) + "\n")
	}
	b.WriteString("\n")

	if m.editing {
		b.WriteString(editStyle.Render(fmt.Sprintf("offset: < %2ds >", m.draft)) +
			helpStyle.Render("  +/- adjust, enter save, esc cancel") + "\n")
	} else {
		b.WriteString(infoStyle.Render(fmt.Sprintf("offset:   %ds before signal time", s.Offset)) + "\n")
	}
	b.WriteString(infoStyle.Render("ringtone: "+audio.Describe(s.Ringtone)) + "\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("fired %d, ring-offs %d", s.Fired, s.RingOffs)) + "\n\n")

	if len(m.upcoming) == 0 {
		b.WriteString(idleStyle.Render("No upcoming signals") + "\n")
	} else {
		b.WriteString(titleStyle.Render("Upcoming") + "\n")
		for i, sig := range m.upcoming {
			if i == maxUpcoming {
				b.WriteString(idleStyle.Render(fmt.Sprintf("  ... %d more", len(m.upcoming)-maxUpcoming)) + "\n")
				break
			}
			at := sig.Time.Add(-time.Duration(s.Offset) * time.Second).Local().Format("15:04:05")
			b.WriteString(infoStyle.Render(fmt.Sprintf("  %s  %s %s", at, sig.Asset, sig.Direction)) + "\n")
		}
	}

	if m.flash != "" && m.now().Before(m.flashUntil) {
		b.WriteString("\n" + flashStyle.Render(m.flash) + "\n")
	}

	b.WriteString("\n" + keyStyle.Render("r") + helpStyle.Render(" ring off  ") +
		keyStyle.Render(m.combo) + helpStyle.Render(" ring off (global)  ") +
		keyStyle.Render("o") + helpStyle.Render(" offset  ") +
		keyStyle.Render("c") + helpStyle.Render(" copy  ") +
		keyStyle.Render("q") + helpStyle.Render(" quit"))

	return b.String()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
