package ring

import (
	"time"

	"ringer/signals"
)

type EventType string

const (
	EventFired      EventType = "fired"
	EventSuppressed EventType = "suppressed"
	EventPlayback   EventType = "playback"
	EventRingOff    EventType = "ring_off"
	EventOffset     EventType = "offset"
	EventRingtone   EventType = "ringtone"
	EventMonitoring EventType = "monitoring"
)

// Event is a state change published to observers (TUI, web, MQTT, metrics).
// Fields not relevant to Type are zero.
type Event struct {
	Type   EventType       `json:"type"`
	At     time.Time       `json:"at"`
	RingID string          `json:"ring_id,omitempty"`
	Signal *signals.Signal `json:"signal,omitempty"`

	// playback
	Outcome string `json:"outcome,omitempty"`
	Err     string `json:"error,omitempty"`

	// ring-off
	Stopped    int  `json:"stopped,omitempty"`
	WasRinging bool `json:"was_ringing,omitempty"`

	Offset     int    `json:"offset,omitempty"`
	Ringtone   string `json:"ringtone,omitempty"`
	Monitoring bool   `json:"monitoring,omitempty"`
}

// State is a point-in-time view of the engine.
type State struct {
	Ringing      bool            `json:"ringing"`
	Current      *signals.Signal `json:"current,omitempty"`
	RingID       string          `json:"ring_id,omitempty"`
	Acknowledged bool            `json:"acknowledged"`
	Monitoring   bool            `json:"monitoring"`
	Signals      int             `json:"signals"`
	Offset       int             `json:"offset"`
	Ringtone     string          `json:"ringtone"`
	Loops        int             `json:"loops"`
	Tones        int             `json:"tones"`
	Dedup        int             `json:"dedup"`
	WakeLock     bool            `json:"wake_lock"`
	Fired        int             `json:"fired"`
	RingOffs     int             `json:"ring_offs"`
}

// Tracked is the number of streams ring-off would stop.
func (s State) Tracked() int { return s.Loops + s.Tones }
