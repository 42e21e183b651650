package mqtt

import (
	"sync"

	"ringer/ring"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	Events        []ring.Event
	Payloads      [][]byte
	SystemEvents  []SystemEvent
	Schedules     [][]ScheduleEntry
	Closed        bool
	Connected     bool
	PublishError  error
	ScheduleError error
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

func (f *FakePublisher) Publish(event ring.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

func (f *FakePublisher) PublishSchedule(entries []ScheduleEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ScheduleError != nil {
		return f.ScheduleError
	}
	f.Schedules = append(f.Schedules, entries)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Snapshot returns copies of what was published so far.
func (f *FakePublisher) Snapshot() (events []ring.Event, system []SystemEvent, schedules [][]ScheduleEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ring.Event(nil), f.Events...),
		append([]SystemEvent(nil), f.SystemEvents...),
		append([][]ScheduleEntry(nil), f.Schedules...)
}
