package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ringer/ring"
	"ringer/signals"
)

var at = time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)

func TestFormatPayloadFired(t *testing.T) {
	sig := signals.Signal{Time: at.Add(10 * time.Second), Asset: "EURUSD", Direction: "up"}
	ev := ring.Event{Type: ring.EventFired, At: at, RingID: "abc", Signal: &sig}

	payload, err := FormatPayload(ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"ring":{"timestamp":"2026-02-10T08:30:00Z","event":"FIRED","ring_id":"abc","asset":"EURUSD","direction":"up","signal_time":"2026-02-10T08:30:10Z"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadEventNames(t *testing.T) {
	tests := []struct {
		typ  ring.EventType
		want string
	}{
		{ring.EventFired, "FIRED"},
		{ring.EventPlayback, "PLAYBACK"},
		{ring.EventRingOff, "RING_OFF"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			payload, err := FormatPayload(ring.Event{Type: tt.typ, At: at})
			if err != nil {
				t.Fatal(err)
			}
			var parsed RingPayload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Ring.Event != tt.want {
				t.Errorf("event = %s, want %s", parsed.Ring.Event, tt.want)
			}
		})
	}
}

func TestPublishable(t *testing.T) {
	for typ, want := range map[ring.EventType]bool{
		ring.EventFired:      true,
		ring.EventPlayback:   true,
		ring.EventRingOff:    true,
		ring.EventSuppressed: false,
		ring.EventOffset:     false,
		ring.EventMonitoring: false,
	} {
		if got := Publishable(ring.Event{Type: typ}); got != want {
			t.Errorf("Publishable(%s) = %v, want %v", typ, got, want)
		}
	}
}

func TestWillPayloadFormat(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: at, Event: "SHUTDOWN", Reason: "MQTT_DISCONNECT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestScheduleAppliesOffset(t *testing.T) {
	pending := []signals.Signal{
		{Time: at, Asset: "EURUSD", Direction: "up"},
		{Time: at.Add(time.Minute), Asset: "GBPUSD", Direction: "down"},
	}
	entries := Schedule(pending, 15)
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].RingAt != "2026-02-10T08:29:45Z" || entries[1].RingAt != "2026-02-10T08:30:45Z" {
		t.Errorf("ring times = %s, %s", entries[0].RingAt, entries[1].RingAt)
	}
	if entries[0].Key != "2026-02-10T08:30:00Z-EURUSD-up" {
		t.Errorf("key = %s", entries[0].Key)
	}

	payload, err := FormatSchedulePayload(nil)
	if err != nil || string(payload) != `{"schedule":null}` {
		t.Errorf("empty schedule payload = %s, %v", payload, err)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(ring.Event{Type: ring.EventRingOff, At: at})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.PublishSchedule([]ScheduleEntry{{Asset: "X"}})

	events, system, schedules := f.Snapshot()
	if len(events) != 1 || len(system) != 1 || len(schedules) != 1 {
		t.Errorf("recorded %d/%d/%d", len(events), len(system), len(schedules))
	}

	f.PublishError = errors.New("broker down")
	if err := f.Publish(ring.Event{Type: ring.EventFired}); err == nil {
		t.Error("expected scripted error")
	}
	f.Close()
	if !f.Closed {
		t.Error("not closed")
	}
}
