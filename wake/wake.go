// Package wake keeps the display awake while an alert rings.
package wake

import (
	"errors"
	"sync"

	"ringer/log"
)

var ErrUnsupported = errors.New("wake lock not supported on this platform")

const reason = "Signal alert ringing"

// Inhibitor is the platform screen-sleep control.
type Inhibitor interface {
	// Inhibit blocks screen sleep until the returned release is called.
	Inhibit(reason string) (release func() error, err error)
	// Focus asks the OS to wake the display and bring attention to the user.
	Focus() error
	Close() error
}

// Handle is one acquired wake lock.
type Handle struct {
	release func() error
}

// Coordinator hands out at most one wake lock at a time. Acquire and Focus
// failures are logged and swallowed: an alert without a wake lock still rings.
type Coordinator struct {
	inh Inhibitor

	mu   sync.Mutex
	held *Handle

	unsupported sync.Once
}

func NewCoordinator(inh Inhibitor) *Coordinator {
	return &Coordinator{inh: inh}
}

// Acquire returns the held lock, taking one if none is outstanding.
// It returns nil when the platform refuses.
func (c *Coordinator) Acquire() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held != nil {
		return c.held
	}
	release, err := c.inh.Inhibit(reason)
	if err != nil {
		c.report("wake lock", err)
		return nil
	}
	c.held = &Handle{release: release}
	log.Info("wake lock acquired")
	return c.held
}

// Release drops h. Releasing nil or an already released handle is a no-op.
func (c *Coordinator) Release(h *Handle) {
	if h == nil {
		return
	}
	c.mu.Lock()
	if c.held != h {
		c.mu.Unlock()
		return
	}
	c.held = nil
	c.mu.Unlock()

	if err := h.release(); err != nil {
		log.Warnf("wake lock release: %v", err)
		return
	}
	log.Info("wake lock released")
}

func (c *Coordinator) Focus() {
	if err := c.inh.Focus(); err != nil {
		c.report("focus", err)
	}
}

func (c *Coordinator) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held != nil
}

// Close releases any held lock and shuts the inhibitor down.
func (c *Coordinator) Close() {
	c.mu.Lock()
	h := c.held
	c.mu.Unlock()
	c.Release(h)
	if err := c.inh.Close(); err != nil {
		log.Warnf("wake close: %v", err)
	}
}

func (c *Coordinator) report(what string, err error) {
	if errors.Is(err, ErrUnsupported) || errors.Is(err, ErrDisabled) {
		c.unsupported.Do(func() { log.Infof("%s: %v", what, err) })
		return
	}
	log.Warnf("%s: %v", what, err)
}
