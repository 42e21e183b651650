// Package status keeps a thread-safe view of the daemon for the HTTP
// server and the websocket stream.
package status

import (
	"sync"
	"time"

	"ringer/ring"
	"ringer/signals"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	WindowMs    int64
	Broker      string
	HTTPAddr    string
	SignalsFile string
}

// Counts are totals since startup, derived from ring events.
type Counts struct {
	Fires      int
	Suppressed int
	RingOffs   int
	Fallbacks  int
	Failures   int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Ring          ring.State
	Counts        Counts
	LastEvent     *ring.Event
	Upcoming      []signals.Signal
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. Ring state is read
// live from the engine on every Snapshot.
type Tracker struct {
	mu     sync.RWMutex
	snap   Snapshot
	engine func() ring.State
}

func NewTracker(startTime time.Time, cfg Config, engine func() ring.State) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		engine: engine,
	}
}

// Observe folds a ring event into the counts.
func (t *Tracker) Observe(ev ring.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch ev.Type {
	case ring.EventFired:
		t.snap.Counts.Fires++
	case ring.EventSuppressed:
		t.snap.Counts.Suppressed++
		// suppressions repeat every tick; keep LastEvent meaningful
		return
	case ring.EventRingOff:
		t.snap.Counts.RingOffs++
	case ring.EventPlayback:
		switch ev.Outcome {
		case "fell_back_to_tone":
			t.snap.Counts.Fallbacks++
		case "failed":
			t.snap.Counts.Failures++
		}
	}
	e := ev
	t.snap.LastEvent = &e
}

func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetUpcoming records the pending signals shown on the status page.
func (t *Tracker) SetUpcoming(pending []signals.Signal) {
	t.mu.Lock()
	t.snap.Upcoming = append([]signals.Signal(nil), pending...)
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Upcoming = append([]signals.Signal(nil), t.snap.Upcoming...)
	t.mu.RUnlock()
	if t.engine != nil {
		s.Ring = t.engine()
	}
	s.Now = time.Now()
	return s
}
