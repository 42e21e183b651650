package wake

import "sync"

// FakeInhibitor counts calls instead of talking to the OS.
type FakeInhibitor struct {
	mu sync.Mutex

	InhibitErr error
	FocusErr   error

	inhibits int
	releases int
	focuses  int
	active   int
}

func NewFakeInhibitor() *FakeInhibitor {
	return &FakeInhibitor{}
}

func (f *FakeInhibitor) Inhibit(string) (func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InhibitErr != nil {
		return nil, f.InhibitErr
	}
	f.inhibits++
	f.active++
	return func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.releases++
		f.active--
		return nil
	}, nil
}

func (f *FakeInhibitor) Focus() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focuses++
	return f.FocusErr
}

func (f *FakeInhibitor) Close() error { return nil }

func (f *FakeInhibitor) SetInhibitErr(err error) {
	f.mu.Lock()
	f.InhibitErr = err
	f.mu.Unlock()
}

// Counts returns inhibits, releases, focus calls and currently active locks.
func (f *FakeInhibitor) Counts() (inhibits, releases, focuses, active int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inhibits, f.releases, f.focuses, f.active
}
