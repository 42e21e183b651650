package audio

import (
	"fmt"
	"sync"

	"ringer/beep"
	"ringer/log"
)

type Kind int

const (
	KindTone Kind = iota
	KindLoop
)

func (k Kind) String() string {
	if k == KindLoop {
		return "loop"
	}
	return "tone"
}

// Registrar takes ownership of a stream before it starts. Register returns
// false when the stream must not play (a ring-off happened since the
// registrar was handed out); the caller then stops it. Unregister drops a
// stream that never started.
type Registrar interface {
	Register(s Stream, kind Kind, resource string) bool
	Unregister(s Stream)
}

type Outcome int

const (
	Started Outcome = iota
	Tone
	FellBackToTone
	Failed
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Started:
		return "started"
	case Tone:
		return "tone"
	case FellBackToTone:
		return "fell_back_to_tone"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Result reports how an alert ended up playing. Stream is set only for a
// started ringtone loop; Err carries the cause of a fallback or failure.
type Result struct {
	Outcome Outcome
	Stream  Stream
	Err     error
}

type Player struct {
	backend Backend
	load    func(string) ([]byte, error)

	mu    sync.Mutex
	cache map[string]PCM
	gen   uint64
}

func NewPlayer(b Backend) *Player {
	return &Player{backend: b, load: Load, cache: make(map[string]PCM)}
}

func (p *Player) Backend() Backend { return p.backend }

// PlayAlert starts the alert for resource and reports the result on the
// returned channel. With no resource the fallback tone is created and
// registered before PlayAlert returns. A ringtone is loaded, registered and
// started in the background; if any step fails the tone plays instead.
func (p *Player) PlayAlert(reg Registrar, resource string) <-chan Result {
	out := make(chan Result, 1)
	if resource == "" {
		out <- p.playTone(reg, Tone, nil)
		return out
	}
	go func() {
		res, err := p.playLoop(reg, resource)
		if err == nil {
			out <- res
			return
		}
		log.Warnf("ringtone %s failed, playing tone: %v", Describe(resource), err)
		out <- p.playTone(reg, FellBackToTone, err)
	}()
	return out
}

func (p *Player) playLoop(reg Registrar, resource string) (Result, error) {
	pcm, err := p.Prepare(resource)
	if err != nil {
		return Result{}, err
	}
	s, err := p.backend.NewStream(pcm, true)
	if err != nil {
		return Result{}, err
	}
	if !reg.Register(s, KindLoop, resource) {
		s.Stop()
		return Result{Outcome: Cancelled}, nil
	}
	if err := s.Start(); err != nil {
		s.Stop()
		reg.Unregister(s)
		return Result{}, err
	}
	return Result{Outcome: Started, Stream: s}, nil
}

func (p *Player) playTone(reg Registrar, outcome Outcome, cause error) Result {
	pcm := PCM{Samples: beep.Tone(), SampleRate: beep.SampleRate, Channels: beep.Channels}
	s, err := p.backend.NewStream(pcm, false)
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("tone: %w", err)}
	}
	if !reg.Register(s, KindTone, "") {
		s.Stop()
		return Result{Outcome: Cancelled, Err: cause}
	}
	if err := s.Start(); err != nil {
		// stays registered; ring-off closes it
		return Result{Outcome: Failed, Err: fmt.Errorf("tone: %w", err)}
	}
	return Result{Outcome: outcome, Err: cause}
}

// Prepare loads and decodes resource, caching the result until Dispose.
func (p *Player) Prepare(resource string) (PCM, error) {
	p.mu.Lock()
	if pcm, ok := p.cache[resource]; ok {
		p.mu.Unlock()
		return pcm, nil
	}
	gen := p.gen
	p.mu.Unlock()

	data, err := p.load(resource)
	if err != nil {
		return PCM{}, err
	}
	pcm, err := Decode(data)
	if err != nil {
		return PCM{}, err
	}

	p.mu.Lock()
	// a Dispose while decoding means this result belongs to a stale resource
	if p.gen == gen {
		p.cache[resource] = pcm
	}
	p.mu.Unlock()
	return pcm, nil
}

// Dispose drops every cached decode. Called when the configured ringtone
// changes so nothing prepared for the old one is reused.
func (p *Player) Dispose() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.cache)
	p.cache = make(map[string]PCM)
	p.gen++
	return n
}

func (p *Player) Cached() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}
