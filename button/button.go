// Package button reads a physical ring-off button wired to a GPIO line.
// The real line uses the Linux GPIO character device; FakeLine drives tests.
package button

import (
	"context"
	"time"

	"ringer/log"
)

// Line reads the logical state of the button input.
type Line interface {
	// Pressed reports whether the button is held down.
	Pressed() (bool, error)
	Close() error
}

const (
	PollInterval = 20 * time.Millisecond
	// stable samples required before a state change counts
	debounceSamples = 3
)

// Button polls a Line and reports debounced edges as Keydown/Keyup, so it
// can feed hotkey.Presses like a keyboard hotkey.
type Button struct {
	line     Line
	interval time.Duration

	keydown chan struct{}
	keyup   chan struct{}
}

func New(line Line, interval time.Duration) *Button {
	if interval <= 0 {
		interval = PollInterval
	}
	return &Button{
		line:     line,
		interval: interval,
		keydown:  make(chan struct{}, 1),
		keyup:    make(chan struct{}, 1),
	}
}

func (b *Button) Keydown() <-chan struct{} { return b.keydown }
func (b *Button) Keyup() <-chan struct{}   { return b.keyup }

// Run polls until ctx is done, then closes the line.
func (b *Button) Run(ctx context.Context) {
	defer func() {
		if err := b.line.Close(); err != nil {
			log.Warnf("button close: %v", err)
		}
	}()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	var (
		pressed   bool
		candidate bool
		stable    int
		failing   bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v, err := b.line.Pressed()
		if err != nil {
			if !failing {
				log.Warnf("button read: %v", err)
				failing = true
			}
			continue
		}
		failing = false

		if v != candidate {
			candidate = v
			stable = 1
			continue
		}
		if stable < debounceSamples {
			stable++
		}
		if stable < debounceSamples || candidate == pressed {
			continue
		}
		pressed = candidate
		ch := b.keyup
		if pressed {
			ch = b.keydown
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
