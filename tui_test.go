package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ringer/ring"
	"ringer/signals"
)

type fakeController struct {
	state    ring.State
	upcoming []signals.Signal
	ringOffs int
	offsets  []int
}

func (f *fakeController) RingOff() int {
	f.ringOffs++
	n := f.state.Tracked()
	f.state.Ringing = false
	f.state.Current = nil
	f.state.Loops, f.state.Tones = 0, 0
	f.state.Acknowledged = true
	return n
}

func (f *fakeController) SetOffset(sec int) error {
	if sec < 0 || sec > ring.MaxOffset {
		return fmt.Errorf("%w: %d", ring.ErrOffsetRange, sec)
	}
	f.offsets = append(f.offsets, sec)
	f.state.Offset = sec
	return nil
}

func (f *fakeController) Snapshot() ring.State       { return f.state }
func (f *fakeController) Upcoming() []signals.Signal { return f.upcoming }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m tuiModel, msgs ...tea.Msg) tuiModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(tuiModel)
	}
	return m
}

func TestTUIRingOffKey(t *testing.T) {
	sig := signals.Signal{Time: time.Now(), Asset: "EURUSD", Direction: "up"}
	ctl := &fakeController{state: ring.State{Ringing: true, Current: &sig, Tones: 1, Monitoring: true}}
	m := newTUIModel(ctl)
	m.width = 80

	if v := m.View(); !strings.Contains(v, "RINGING") || !strings.Contains(v, "EURUSD up") {
		t.Fatalf("ringing banner missing:\n%s", v)
	}

	m = update(t, m, runes("r"))
	if ctl.ringOffs != 1 {
		t.Fatalf("ring-offs = %d, want 1", ctl.ringOffs)
	}
	v := m.View()
	if strings.Contains(v, "RINGING") {
		t.Error("still shows RINGING after ring-off")
	}
	if !strings.Contains(v, "RING-OFF") {
		t.Error("acknowledgement not shown")
	}
	if !strings.Contains(v, "silenced 1 sound(s)") {
		t.Errorf("flash missing:\n%s", v)
	}
}

func TestTUIAckPulseFollowsEngine(t *testing.T) {
	ctl := &fakeController{state: ring.State{Acknowledged: true}}
	m := newTUIModel(ctl)
	if !strings.Contains(m.View(), "RING-OFF") {
		t.Fatal("ack not shown")
	}
	ctl.state.Acknowledged = false
	m = update(t, m, tickMsg(time.Now()))
	if strings.Contains(m.View(), "RING-OFF") {
		t.Error("ack still shown after the engine cleared it")
	}
}

func TestTUIOffsetEditor(t *testing.T) {
	ctl := &fakeController{state: ring.State{Offset: 10}}
	m := newTUIModel(ctl)

	m = update(t, m, runes("o"), runes("+"), runes("+"), tea.KeyMsg{Type: tea.KeyDown}, runes("+"))
	if !m.editing || m.draft != 12 {
		t.Fatalf("editing=%v draft=%d, want editing at 12", m.editing, m.draft)
	}
	if !strings.Contains(m.View(), "12s") {
		t.Error("draft not rendered")
	}
	// r edits nothing while the editor is open
	m = update(t, m, runes("r"))
	if ctl.ringOffs != 0 {
		t.Error("ring-off while editing")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.editing {
		t.Error("editor still open after enter")
	}
	if len(ctl.offsets) != 1 || ctl.offsets[0] != 12 {
		t.Errorf("SetOffset calls = %v, want [12]", ctl.offsets)
	}
	if m.state.Offset != 12 {
		t.Errorf("state offset = %d", m.state.Offset)
	}
}

func TestTUIOffsetEditorBounds(t *testing.T) {
	ctl := &fakeController{state: ring.State{Offset: ring.MaxOffset}}
	m := newTUIModel(ctl)

	m = update(t, m, editOffsetMsg{}, runes("+"))
	if m.draft != ring.MaxOffset {
		t.Errorf("draft = %d, want clamp at %d", m.draft, ring.MaxOffset)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.editing || len(ctl.offsets) != 0 {
		t.Error("esc should cancel without saving")
	}

	ctl.state.Offset = 0
	m = update(t, m, tickMsg(time.Now()), runes("o"), runes("-"))
	if m.draft != 0 {
		t.Errorf("draft = %d, want clamp at 0", m.draft)
	}
}

func TestTUISignalsMessage(t *testing.T) {
	ctl := &fakeController{}
	m := newTUIModel(ctl)
	if !strings.Contains(m.View(), "No upcoming signals") {
		t.Fatal("expected empty list")
	}

	var sigs []signals.Signal
	base := time.Date(2026, 3, 2, 14, 0, 0, 0, time.Local)
	for i := 0; i < maxUpcoming+2; i++ {
		sigs = append(sigs, signals.Signal{Time: base.Add(time.Duration(i) * time.Minute), Asset: "XAUUSD", Direction: "down"})
	}
	m = update(t, m, signalsMsg(sigs))
	v := m.View()
	if !strings.Contains(v, "14:00:00  XAUUSD down") {
		t.Errorf("first signal missing:\n%s", v)
	}
	if !strings.Contains(v, "... 2 more") {
		t.Errorf("overflow line missing:\n%s", v)
	}
}

func TestTUIFlashExpires(t *testing.T) {
	now := time.Now()
	ctl := &fakeController{}
	m := newTUIModel(ctl)
	m.now = func() time.Time { return now }

	m.setFlash("copy failed: " + errors.New("no xclip").Error())
	if !strings.Contains(m.View(), "no xclip") {
		t.Fatal("flash not shown")
	}
	now = now.Add(flashFor)
	if strings.Contains(m.View(), "no xclip") {
		t.Error("flash shown after it expired")
	}
}

func TestTUIQuit(t *testing.T) {
	m := newTUIModel(&fakeController{})
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
