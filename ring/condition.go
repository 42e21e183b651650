package ring

import (
	"time"

	"ringer/signals"
)

// DefaultWindow is how long after its adjusted time a signal keeps matching.
// It spans several ticks so a late or skipped tick still catches it.
const DefaultWindow = 5 * time.Second

// Condition decides whether a signal is due at now. offset moves the alert
// earlier than the signal's own time.
type Condition interface {
	Match(sig signals.Signal, offset time.Duration, now time.Time) bool
}

type ConditionFunc func(sig signals.Signal, offset time.Duration, now time.Time) bool

func (f ConditionFunc) Match(sig signals.Signal, offset time.Duration, now time.Time) bool {
	return f(sig, offset, now)
}

// Window matches during [time - offset, time - offset + Width).
type Window struct {
	Width time.Duration
}

func (w Window) Match(sig signals.Signal, offset time.Duration, now time.Time) bool {
	width := w.Width
	if width <= 0 {
		width = DefaultWindow
	}
	start := sig.Time.Add(-offset)
	return !now.Before(start) && now.Before(start.Add(width))
}
