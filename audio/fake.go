package audio

import (
	"errors"
	"sync"
)

// FakeBackend records created streams without touching a sound device.
// Loop and tone start failures can be scripted.
type FakeBackend struct {
	mu sync.Mutex

	// LoopStartErr, if set, is returned by Start on loop streams.
	LoopStartErr error
	// ToneStartErr, if set, is returned by Start on one-shot streams.
	ToneStartErr error
	// NewStreamErr, if set, is returned by NewStream.
	NewStreamErr error

	Streams []*FakeStream
	Closed  bool

	live liveSet
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{}
}

func (f *FakeBackend) NewStream(pcm PCM, loop bool) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NewStreamErr != nil {
		return nil, f.NewStreamErr
	}
	startErr := f.ToneStartErr
	if loop {
		startErr = f.LoopStartErr
	}
	s := &FakeStream{PCM: pcm, Loop: loop, backend: f, startErr: startErr}
	s.open()
	f.Streams = append(f.Streams, s)
	f.live.add(s)
	return s, nil
}

// Orphan creates a live stream that nobody registers anywhere, the way a
// stray code path would. Only Sweep can find it.
func (f *FakeBackend) Orphan() *FakeStream {
	st, _ := f.NewStream(PCM{Samples: []int16{0}, SampleRate: 8000, Channels: 1}, true)
	s := st.(*FakeStream)
	s.Start()
	return s
}

func (f *FakeBackend) Sweep() int {
	return f.live.sweep()
}

func (f *FakeBackend) Close() {
	f.live.sweep()
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
}

// Live reports streams created and not yet stopped.
func (f *FakeBackend) Live() int {
	return f.live.len()
}

// Playing reports streams that started and have not stopped.
func (f *FakeBackend) Playing() (loops, tones int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.Streams {
		if !s.Playing() {
			continue
		}
		if s.Loop {
			loops++
		} else {
			tones++
		}
	}
	return loops, tones
}

func (f *FakeBackend) Created() (loops, tones int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.Streams {
		if s.Loop {
			loops++
		} else {
			tones++
		}
	}
	return loops, tones
}

var errFakeStopPanic = errors.New("fake: stop panic")

type FakeStream struct {
	lifecycle
	PCM  PCM
	Loop bool

	// PanicOnStop makes Stop panic once, after marking the stream stopped.
	PanicOnStop bool

	backend  *FakeBackend
	startErr error
}

func (s *FakeStream) Start() error {
	if err := s.begin(); err != nil {
		return err
	}
	if s.startErr != nil {
		s.Stop()
		return s.startErr
	}
	return nil
}

func (s *FakeStream) Stop() error {
	if !s.end() {
		return nil
	}
	s.backend.live.remove(s)
	if s.PanicOnStop {
		panic(errFakeStopPanic)
	}
	return nil
}

// Finish simulates a one-shot stream draining on its own.
func (s *FakeStream) Finish() { s.Stop() }

func (s *FakeStream) Playing() bool {
	select {
	case <-s.Done():
		return false
	default:
		return s.isStarted()
	}
}

func (s *FakeStream) Stopped() bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}
