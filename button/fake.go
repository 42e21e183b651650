package button

import "sync"

// FakeLine is a Line whose state tests set directly.
type FakeLine struct {
	mu      sync.Mutex
	pressed bool
	err     error
	closed  bool
}

func NewFakeLine() *FakeLine { return &FakeLine{} }

func (f *FakeLine) Set(pressed bool) {
	f.mu.Lock()
	f.pressed = pressed
	f.mu.Unlock()
}

func (f *FakeLine) SetErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *FakeLine) Pressed() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pressed, f.err
}

func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakeLine) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
