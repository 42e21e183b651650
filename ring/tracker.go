package ring

import (
	"sync"

	"ringer/audio"
	"ringer/log"
)

type tracked struct {
	stream   audio.Stream
	kind     audio.Kind
	resource string
}

// Tracker owns every stream an alert creates so ring-off can stop all of
// them at once. Registrations go through a Scope tied to the current ring
// generation; once StopAll runs, older scopes refuse new streams.
type Tracker struct {
	mu      sync.Mutex
	entries []tracked
	epoch   uint64
	// bumped per resource change, refuses loops prepared for an old ringtone
	resEpoch uint64
	sweep    func() int
	swept    int
}

// NewTracker returns a tracker. sweep, if non-nil, stops streams the audio
// backend still has live after tracked ones are stopped, and reports how many.
func NewTracker(sweep func() int) *Tracker {
	return &Tracker{sweep: sweep}
}

type Scope struct {
	t        *Tracker
	epoch    uint64
	resEpoch uint64
}

func (t *Tracker) Scope() *Scope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Scope{t: t, epoch: t.epoch, resEpoch: t.resEpoch}
}

func (s *Scope) Register(st audio.Stream, kind audio.Kind, resource string) bool {
	t := s.t
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.epoch != s.epoch {
		return false
	}
	if kind == audio.KindLoop && t.resEpoch != s.resEpoch {
		return false
	}
	t.entries = append(t.entries, tracked{stream: st, kind: kind, resource: resource})
	return true
}

// Unregister forgets a stream that was registered but never started.
func (s *Scope) Unregister(st audio.Stream) {
	t := s.t
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e.stream == st {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// StopAll stops and forgets every tracked stream, then sweeps the backend.
// It is safe to call at any time and any number of times. A stream whose
// Stop fails or panics does not keep the others playing.
func (t *Tracker) StopAll() int {
	t.mu.Lock()
	entries := t.entries
	t.entries = nil
	t.epoch++
	sweep := t.sweep
	t.mu.Unlock()

	for _, e := range entries {
		stopTracked(e)
	}
	if sweep != nil {
		if n := safeSweep(sweep); n > 0 {
			log.Warnf("ring-off stopped %d untracked streams", n)
			t.mu.Lock()
			t.swept += n
			t.mu.Unlock()
		}
	}
	return len(entries)
}

// StopResource stops the loops playing resource and refuses loops still
// being prepared under the previous ringtone.
func (t *Tracker) StopResource(resource string) int {
	t.mu.Lock()
	t.resEpoch++
	var stop []tracked
	kept := t.entries[:0]
	for _, e := range t.entries {
		if e.kind == audio.KindLoop && e.resource == resource {
			stop = append(stop, e)
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
	t.mu.Unlock()

	for _, e := range stop {
		stopTracked(e)
	}
	return len(stop)
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Tracker) Counts() (loops, tones int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.kind == audio.KindLoop {
			loops++
		} else {
			tones++
		}
	}
	return loops, tones
}

// Swept is the total number of untracked streams found by sweeps.
func (t *Tracker) Swept() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.swept
}

func stopTracked(e tracked) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("stop %s stream: %v", e.kind, r)
		}
	}()
	if err := e.stream.Stop(); err != nil {
		log.Warnf("stop %s stream: %v", e.kind, err)
	}
}

func safeSweep(sweep func() int) (n int) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("audio sweep: %v", r)
		}
	}()
	return sweep()
}
