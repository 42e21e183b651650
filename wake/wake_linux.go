package wake

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	screenSaverDest = "org.freedesktop.ScreenSaver"
	screenSaverPath = dbus.ObjectPath("/org/freedesktop/ScreenSaver")
)

type screenSaver struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

// New returns the session-bus ScreenSaver inhibitor. The bus is dialed on
// first use so a missing session bus only fails individual calls.
func New() Inhibitor {
	return &screenSaver{}
}

func (s *screenSaver) object() (dbus.BusObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		conn, err := dbus.ConnectSessionBus()
		if err != nil {
			return nil, fmt.Errorf("session bus: %w", err)
		}
		s.conn = conn
	}
	return s.conn.Object(screenSaverDest, screenSaverPath), nil
}

func (s *screenSaver) Inhibit(reason string) (func() error, error) {
	obj, err := s.object()
	if err != nil {
		return nil, err
	}
	var cookie uint32
	if err := obj.Call(screenSaverDest+".Inhibit", 0, "ringer", reason).Store(&cookie); err != nil {
		return nil, fmt.Errorf("inhibit: %w", err)
	}
	return func() error {
		return obj.Call(screenSaverDest+".UnInhibit", 0, cookie).Err
	}, nil
}

// Focus wakes the display when the screensaver is showing.
func (s *screenSaver) Focus() error {
	active, err := s.Active()
	if err != nil || !active {
		return err
	}
	obj, err := s.object()
	if err != nil {
		return err
	}
	return obj.Call(screenSaverDest+".SimulateUserActivity", 0).Err
}

// Active reports whether the screensaver is currently shown.
func (s *screenSaver) Active() (bool, error) {
	obj, err := s.object()
	if err != nil {
		return false, err
	}
	var active bool
	err = obj.Call(screenSaverDest+".GetActive", 0).Store(&active)
	return active, err
}

func (s *screenSaver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Probe checks the inhibitor can be reached, for doctor.
func Probe() error {
	s := &screenSaver{}
	defer s.Close()
	_, err := s.Active()
	return err
}
