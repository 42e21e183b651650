package audio

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingRegistrar struct {
	mu      sync.Mutex
	refuse  bool
	streams []Stream
	kinds   []Kind
}

func (r *recordingRegistrar) Register(s Stream, kind Kind, _ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refuse {
		return false
	}
	r.streams = append(r.streams, s)
	r.kinds = append(r.kinds, kind)
	return true
}

func (r *recordingRegistrar) Unregister(s Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, st := range r.streams {
		if st == s {
			r.streams = append(r.streams[:i], r.streams[i+1:]...)
			r.kinds = append(r.kinds[:i], r.kinds[i+1:]...)
			return
		}
	}
}

func (r *recordingRegistrar) count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback result")
		return Result{}
	}
}

func writeRingtone(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ring.wav")
	if err := os.WriteFile(path, wavBytes(ramp(400), 8000, 1), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlayAlertDefaultToneRegistersBeforeReturn(t *testing.T) {
	fb := NewFakeBackend()
	p := NewPlayer(fb)
	reg := &recordingRegistrar{}

	ch := p.PlayAlert(reg, "")
	// registration must already be visible without waiting on ch
	if reg.count(KindTone) != 1 {
		t.Fatalf("tone registrations = %d, want 1", reg.count(KindTone))
	}
	res := waitResult(t, ch)
	if res.Outcome != Tone {
		t.Errorf("Outcome = %v, want tone", res.Outcome)
	}
	if reg.count(KindLoop) != 0 {
		t.Errorf("loop registrations = %d, want 0", reg.count(KindLoop))
	}
	if _, tones := fb.Playing(); tones != 1 {
		t.Errorf("playing tones = %d, want 1", tones)
	}
}

func TestPlayAlertLoopsRingtone(t *testing.T) {
	fb := NewFakeBackend()
	p := NewPlayer(fb)
	reg := &recordingRegistrar{}

	res := waitResult(t, p.PlayAlert(reg, writeRingtone(t)))
	if res.Outcome != Started || res.Stream == nil {
		t.Fatalf("result = %+v, want started with stream", res)
	}
	if loops, tones := fb.Playing(); loops != 1 || tones != 0 {
		t.Errorf("playing = %d loops / %d tones, want 1/0", loops, tones)
	}
	if !fb.Streams[0].Loop {
		t.Error("ringtone stream is not looping")
	}
}

func TestPlayAlertFallsBackWhenStartFails(t *testing.T) {
	fb := NewFakeBackend()
	fb.LoopStartErr = errors.New("device busy")
	p := NewPlayer(fb)
	reg := &recordingRegistrar{}

	res := waitResult(t, p.PlayAlert(reg, writeRingtone(t)))
	if res.Outcome != FellBackToTone {
		t.Fatalf("Outcome = %v, want fell_back_to_tone", res.Outcome)
	}
	if res.Stream != nil {
		t.Error("fallback result should not carry a stream")
	}
	if reg.count(KindTone) != 1 {
		t.Errorf("tone registrations = %d, want 1", reg.count(KindTone))
	}
	if reg.count(KindLoop) != 0 {
		t.Errorf("loop that failed to start is still registered")
	}
	if loops, tones := fb.Playing(); loops != 0 || tones != 1 {
		t.Errorf("playing = %d loops / %d tones, want 0/1", loops, tones)
	}
}

func TestPlayAlertFallsBackOnMissingOrUndecodable(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.wav")
	os.WriteFile(bad, []byte("garbage"), 0644)

	for _, resource := range []string{"/nonexistent/ring.wav", bad, "data:audio/wav;base64,%%%"} {
		fb := NewFakeBackend()
		reg := &recordingRegistrar{}
		res := waitResult(t, NewPlayer(fb).PlayAlert(reg, resource))
		if res.Outcome != FellBackToTone || res.Err == nil {
			t.Errorf("%s: result = %+v, want fallback with cause", resource, res)
		}
		if reg.count(KindTone) != 1 || reg.count(KindLoop) != 0 {
			t.Errorf("%s: registrations tone=%d loop=%d", resource, reg.count(KindTone), reg.count(KindLoop))
		}
	}
}

func TestPlayAlertRefusedRegistrationStopsStream(t *testing.T) {
	fb := NewFakeBackend()
	p := NewPlayer(fb)
	reg := &recordingRegistrar{refuse: true}

	res := waitResult(t, p.PlayAlert(reg, writeRingtone(t)))
	if res.Outcome != Cancelled {
		t.Errorf("Outcome = %v, want cancelled", res.Outcome)
	}
	if fb.Live() != 0 {
		t.Errorf("live streams = %d, want 0", fb.Live())
	}
}

func TestPlayAlertToneDeviceFailure(t *testing.T) {
	fb := NewFakeBackend()
	fb.NewStreamErr = errors.New("no sink")
	res := waitResult(t, NewPlayer(fb).PlayAlert(&recordingRegistrar{}, ""))
	if res.Outcome != Failed || res.Err == nil {
		t.Errorf("result = %+v, want failed", res)
	}
}

func TestPrepareCachesUntilDispose(t *testing.T) {
	p := NewPlayer(NewFakeBackend())
	loads := 0
	p.load = func(r string) ([]byte, error) {
		loads++
		return wavBytes(ramp(10), 8000, 1), nil
	}

	for i := 0; i < 3; i++ {
		if _, err := p.Prepare("a.wav"); err != nil {
			t.Fatal(err)
		}
	}
	if loads != 1 {
		t.Errorf("loads = %d, want 1", loads)
	}
	if n := p.Dispose(); n != 1 {
		t.Errorf("Dispose dropped %d, want 1", n)
	}
	if p.Cached() != 0 {
		t.Errorf("Cached = %d after Dispose", p.Cached())
	}
	p.Prepare("a.wav")
	if loads != 2 {
		t.Errorf("loads = %d after Dispose, want 2", loads)
	}
}

func TestDisposeDuringPrepareDiscardsStaleDecode(t *testing.T) {
	p := NewPlayer(NewFakeBackend())
	p.load = func(r string) ([]byte, error) {
		p.Dispose() // ringtone changed while this load was in flight
		return wavBytes(ramp(10), 8000, 1), nil
	}
	if _, err := p.Prepare("old.wav"); err != nil {
		t.Fatal(err)
	}
	if p.Cached() != 0 {
		t.Errorf("stale decode was cached")
	}
}

func TestSweepFindsOrphans(t *testing.T) {
	fb := NewFakeBackend()
	orphan := fb.Orphan()
	if n := fb.Sweep(); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if !orphan.Stopped() {
		t.Error("orphan still playing after sweep")
	}
}

func TestStreamStartAfterStop(t *testing.T) {
	fb := NewFakeBackend()
	s, _ := fb.NewStream(PCM{Samples: []int16{1}, SampleRate: 8000, Channels: 1}, true)
	s.Stop()
	s.Stop()
	if err := s.Start(); !errors.Is(err, ErrStreamStopped) {
		t.Errorf("Start after Stop = %v, want ErrStreamStopped", err)
	}
}
