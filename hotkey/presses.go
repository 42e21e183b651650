package hotkey

import (
	"sync"
	"time"
)

// Source is anything that reports key-like down/up edges: the keyboard
// hotkey or a physical button.
type Source interface {
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

type Press int

const (
	// Tap is a press released before the long-press threshold.
	Tap Press = iota
	// Hold is reported as soon as a press passes the threshold.
	Hold
)

func (p Press) String() string {
	if p == Hold {
		return "hold"
	}
	return "tap"
}

// Presses turns down/up edges into Tap and Hold gestures. A tap rings off,
// a hold opens the offset editor.
type Presses struct {
	ch   chan Press
	stop chan struct{}
	once sync.Once
}

func NewPresses(src Source, longPress time.Duration) *Presses {
	p := &Presses{
		ch:   make(chan Press, 1),
		stop: make(chan struct{}),
	}
	go p.run(src, longPress)
	return p
}

func (p *Presses) C() <-chan Press { return p.ch }

func (p *Presses) Stop() {
	p.once.Do(func() { close(p.stop) })
}

func (p *Presses) run(src Source, longPress time.Duration) {
	for {
		select {
		case <-p.stop:
			return
		case <-src.Keydown():
		}

		timer := time.NewTimer(longPress)
		select {
		case <-p.stop:
			timer.Stop()
			return
		case <-src.Keyup():
			timer.Stop()
			p.emit(Tap)
		case <-timer.C:
			p.emit(Hold)
			// swallow the release that ends the hold
			select {
			case <-p.stop:
				return
			case <-src.Keyup():
			}
		}
	}
}

func (p *Presses) emit(pr Press) {
	select {
	case p.ch <- pr:
	default:
	}
}
