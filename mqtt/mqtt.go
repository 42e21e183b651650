// Package mqtt publishes ring events with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"ringer/ring"
	"ringer/signals"
)

// Topic suffixes under the configured prefix.
const (
	TopicRing     = "ring"
	TopicSystem   = "system"
	TopicSchedule = "schedule"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a ring event. Errors are reported, never fatal.
	Publish(event ring.Event) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// PublishSchedule replaces the retained list of upcoming ring times.
	PublishSchedule(entries []ScheduleEntry) error

	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event: STARTUP, SHUTDOWN, RECONNECTED.
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Reason    string
}

// Publishable reports whether a ring event is sent to the broker. Suppressed
// ticks and settings changes stay local.
func Publishable(ev ring.Event) bool {
	switch ev.Type {
	case ring.EventFired, ring.EventPlayback, ring.EventRingOff:
		return true
	}
	return false
}

type RingPayload struct {
	Ring RingPayloadInner `json:"ring"`
}

type RingPayloadInner struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	RingID     string `json:"ring_id,omitempty"`
	Asset      string `json:"asset,omitempty"`
	Direction  string `json:"direction,omitempty"`
	SignalTime string `json:"signal_time,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Error      string `json:"error,omitempty"`
	Stopped    int    `json:"stopped,omitempty"`
}

// FormatPayload creates the JSON payload for a ring event.
func FormatPayload(ev ring.Event) ([]byte, error) {
	inner := RingPayloadInner{
		Timestamp: ev.At.UTC().Format(time.RFC3339),
		Event:     eventName(ev.Type),
		RingID:    ev.RingID,
		Outcome:   ev.Outcome,
		Error:     ev.Err,
		Stopped:   ev.Stopped,
	}
	if ev.Signal != nil {
		inner.Asset = ev.Signal.Asset
		inner.Direction = ev.Signal.Direction
		inner.SignalTime = ev.Signal.Time.UTC().Format(time.RFC3339)
	}
	return json.Marshal(RingPayload{Ring: inner})
}

func eventName(t ring.EventType) string {
	switch t {
	case ring.EventFired:
		return "FIRED"
	case ring.EventPlayback:
		return "PLAYBACK"
	case ring.EventRingOff:
		return "RING_OFF"
	}
	return string(t)
}

type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// ScheduleEntry is one pending signal and when it will ring.
type ScheduleEntry struct {
	Key        string `json:"key"`
	Asset      string `json:"asset"`
	Direction  string `json:"direction"`
	SignalTime string `json:"signal_time"`
	RingAt     string `json:"ring_at"`
}

// Schedule lists the pending signals with the offset applied.
func Schedule(pending []signals.Signal, offsetSeconds int) []ScheduleEntry {
	out := make([]ScheduleEntry, 0, len(pending))
	shift := time.Duration(offsetSeconds) * time.Second
	for _, s := range pending {
		out = append(out, ScheduleEntry{
			Key:        s.Key().String(),
			Asset:      s.Asset,
			Direction:  s.Direction,
			SignalTime: s.Time.UTC().Format(time.RFC3339),
			RingAt:     s.Time.Add(-shift).UTC().Format(time.RFC3339),
		})
	}
	return out
}

func FormatSchedulePayload(entries []ScheduleEntry) ([]byte, error) {
	return json.Marshal(struct {
		Schedule []ScheduleEntry `json:"schedule"`
	}{entries})
}
