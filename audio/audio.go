// Package audio plays alert sounds: a caller-supplied ringtone looped until
// stopped, or the fixed fallback tone from package beep.
package audio

import (
	"errors"
	"sync"
	"time"
)

const WAVHeaderSize = 44

var (
	ErrStreamStopped     = errors.New("audio: stream stopped")
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
)

// PCM is decoded 16-bit audio, interleaved when Channels > 1.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

func (p PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

func (p PCM) Duration() time.Duration {
	if p.SampleRate == 0 {
		return 0
	}
	return time.Duration(p.Frames()) * time.Second / time.Duration(p.SampleRate)
}

// Stream is one playback handle. Stop is idempotent and safe to call before,
// during or after Start; once stopped a stream cannot be restarted.
type Stream interface {
	Start() error
	Stop() error
	Done() <-chan struct{}
}

type Backend interface {
	// NewStream prepares playback of pcm without starting it. Loop streams
	// repeat until stopped; one-shot streams stop themselves when drained.
	NewStream(pcm PCM, loop bool) (Stream, error)

	// Sweep stops every stream this backend created that is still live and
	// reports how many it found.
	Sweep() int

	Close()
}

// lifecycle is the state shared by every Stream implementation.
type lifecycle struct {
	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
}

func (l *lifecycle) open() {
	l.done = make(chan struct{})
}

// begin marks the stream started. It fails once the stream has been stopped.
func (l *lifecycle) begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return ErrStreamStopped
	}
	l.started = true
	return nil
}

// end marks the stream stopped and reports whether this call did it.
func (l *lifecycle) end() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	l.stopped = true
	close(l.done)
	return true
}

func (l *lifecycle) isStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}

func (l *lifecycle) Done() <-chan struct{} { return l.done }

// liveSet records the streams a backend has created and not yet stopped.
type liveSet struct {
	mu      sync.Mutex
	streams map[Stream]struct{}
}

func (s *liveSet) add(st Stream) {
	s.mu.Lock()
	if s.streams == nil {
		s.streams = make(map[Stream]struct{})
	}
	s.streams[st] = struct{}{}
	s.mu.Unlock()
}

func (s *liveSet) remove(st Stream) {
	s.mu.Lock()
	delete(s.streams, st)
	s.mu.Unlock()
}

func (s *liveSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

func (s *liveSet) sweep() int {
	s.mu.Lock()
	pending := make([]Stream, 0, len(s.streams))
	for st := range s.streams {
		pending = append(pending, st)
	}
	s.mu.Unlock()

	for _, st := range pending {
		st.Stop()
	}
	return len(pending)
}
