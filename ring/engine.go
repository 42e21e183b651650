// Package ring turns scheduled signals into audible alerts. The Engine scans
// the signal set once per interval, fires each due occurrence at most once per
// grace period, and stops everything it started on ring-off.
package ring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ringer/audio"
	"ringer/log"
	"ringer/signals"
	"ringer/wake"
)

const (
	DefaultInterval = time.Second
	AckPulse        = 200 * time.Millisecond
	MaxOffset       = 99
	eventBuffer     = 64
)

var ErrOffsetRange = errors.New("offset out of range")

// Player starts alert audio. *audio.Player satisfies it.
type Player interface {
	PlayAlert(reg audio.Registrar, resource string) <-chan audio.Result
	Dispose() int
}

// Waker keeps the screen on while ringing. *wake.Coordinator satisfies it.
type Waker interface {
	Acquire() *wake.Handle
	Release(h *wake.Handle)
	Focus()
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithCondition(c Condition) Option { return func(e *Engine) { e.cond = c } }

func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

func WithGrace(d time.Duration) Option { return func(e *Engine) { e.grace = d } }

// WithTicker replaces the interval ticker, mostly for tests.
func WithTicker(fn func(time.Duration) (<-chan time.Time, func())) Option {
	return func(e *Engine) { e.newTicker = fn }
}

// WithSweep installs the backend sweep run after every ring-off.
func WithSweep(fn func() int) Option { return func(e *Engine) { e.sweep = fn } }

// OnFired registers a callback run once per fired occurrence, outside the
// engine lock. Callers typically mark the signal notified.
func OnFired(fn func(signals.Signal)) Option { return func(e *Engine) { e.onFired = fn } }

type Engine struct {
	player  Player
	waker   Waker
	tracker *Tracker
	dedup   *Dedup
	cond    Condition

	now       func() time.Time
	newTicker func(time.Duration) (<-chan time.Time, func())
	interval  time.Duration
	grace     time.Duration
	sweep     func() int
	onFired   func(signals.Signal)

	events   chan Event
	wakeup   chan struct{}
	inflight sync.WaitGroup

	mu       sync.Mutex
	signals  []signals.Signal
	offset   int
	resource string
	ringing  bool
	current  *signals.Signal
	ringID   string
	lock     *wake.Handle
	locking  bool // an Acquire is running outside mu
	ackUntil time.Time
	fired    int
	ringOffs int
}

func New(player Player, waker Waker, opts ...Option) *Engine {
	e := &Engine{
		player:   player,
		waker:    waker,
		cond:     Window{},
		now:      time.Now,
		interval: DefaultInterval,
		grace:    DefaultGrace,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
		events: make(chan Event, eventBuffer),
		wakeup: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.dedup = NewDedup(e.grace)
	e.tracker = NewTracker(e.sweep)
	return e
}

// Events delivers state changes. Events are dropped when the reader lags.
func (e *Engine) Events() <-chan Event { return e.events }

// Run ticks while the signal set is non-empty and idles otherwise. When ctx
// ends it stops ticking, clears dedup state and silences any alert.
func (e *Engine) Run(ctx context.Context) {
	defer e.teardown()
	for {
		if !e.Monitoring() {
			select {
			case <-ctx.Done():
				return
			case <-e.wakeup:
				continue
			}
		}
		ticks, stop := e.newTicker(e.interval)
		log.Infof("monitoring started (%s interval)", e.interval)
		more := e.monitor(ctx, ticks)
		stop()
		if !more {
			return
		}
		log.Info("monitoring suspended, no signals")
	}
}

func (e *Engine) monitor(ctx context.Context, ticks <-chan time.Time) bool {
	e.Tick(e.now())
	for {
		select {
		case <-ctx.Done():
			return false
		case <-e.wakeup:
			if !e.Monitoring() {
				return true
			}
		case <-ticks:
			e.Tick(e.now())
		}
	}
}

func (e *Engine) teardown() {
	e.mu.Lock()
	e.dedup.Clear()
	e.ringing = false
	e.current = nil
	e.ringID = ""
	_, lock := e.stopAudioLocked()
	e.mu.Unlock()
	e.waker.Release(lock)
	e.inflight.Wait()
}

// Tick evaluates every signal at now and returns how many fired.
func (e *Engine) Tick(now time.Time) int {
	var (
		events  []Event
		fired   []signals.Signal
		acquire bool
	)

	e.mu.Lock()
	e.dedup.Expire(now)
	offset := time.Duration(e.offset) * time.Second
	for _, sig := range e.signals {
		if !e.cond.Match(sig, offset, now) {
			continue
		}
		key := sig.Key()
		if e.dedup.ShouldSuppress(key, now) {
			s := sig
			events = append(events, Event{Type: EventSuppressed, At: now, Signal: &s})
			continue
		}
		e.dedup.MarkFired(key, now)
		events = append(events, e.fireLocked(sig, now))
		fired = append(fired, sig)
	}
	if len(fired) > 0 && e.lock == nil && !e.locking {
		e.locking = true
		acquire = true
	}
	onFired := e.onFired
	e.mu.Unlock()

	// wake-lock calls may block on the session bus, so they run unlocked
	if acquire {
		e.holdWake()
	}
	if len(fired) > 0 {
		e.waker.Focus()
	}

	for _, ev := range events {
		e.emit(ev)
	}
	if onFired != nil {
		for _, sig := range fired {
			callFired(onFired, sig)
		}
	}
	return len(fired)
}

func (e *Engine) fireLocked(sig signals.Signal, now time.Time) Event {
	id := uuid.NewString()
	s := sig
	e.ringing = true
	e.current = &s
	e.ringID = id
	e.fired++

	results := e.player.PlayAlert(e.tracker.Scope(), e.resource)
	e.inflight.Add(1)
	go e.awaitPlayback(id, s, results)

	log.Infof("ring %s: %s (offset %ds)", id[:8], sig.Summary(), e.offset)
	log.Ring("fired", log.Fields{
		"ring_id":   id,
		"key":       sig.Key().String(),
		"asset":     sig.Asset,
		"direction": sig.Direction,
		"offset":    e.offset,
		"ringtone":  audio.Describe(e.resource),
	})
	return Event{Type: EventFired, At: now, RingID: id, Signal: &s}
}

// holdWake acquires the wake lock and keeps it only if something is still
// ringing when it arrives. A ring-off during the acquire releases it at once;
// a fire that came in meanwhile keeps it.
func (e *Engine) holdWake() {
	h := e.waker.Acquire()
	e.mu.Lock()
	e.locking = false
	if e.ringing && e.lock == nil {
		e.lock = h
		h = nil
	}
	e.mu.Unlock()
	e.waker.Release(h)
}

func (e *Engine) awaitPlayback(id string, sig signals.Signal, results <-chan audio.Result) {
	defer e.inflight.Done()
	res := <-results
	ev := Event{Type: EventPlayback, At: e.now(), RingID: id, Signal: &sig, Outcome: res.Outcome.String()}
	if res.Err != nil {
		ev.Err = res.Err.Error()
	}
	switch res.Outcome {
	case audio.Failed:
		log.Errorf("ring %s: no audio: %v", id[:8], res.Err)
	case audio.Cancelled:
		log.Infof("ring %s: playback cancelled by ring-off", id[:8])
	}
	e.emit(ev)
}

func callFired(fn func(signals.Signal), sig signals.Signal) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("fired callback for %s: %v", sig.Key(), r)
		}
	}()
	fn(sig)
}

// RingOff silences every alert sound, releases the wake lock and returns to
// idle. It is safe to call when nothing is ringing. The acknowledgement flag
// stays set for AckPulse afterwards.
func (e *Engine) RingOff() int {
	e.mu.Lock()
	wasRinging := e.ringing
	id := e.ringID
	e.ringing = false
	e.current = nil
	e.ringID = ""
	e.ringOffs++
	stopped, lock := e.stopAudioLocked()
	e.ackUntil = e.now().Add(AckPulse)
	e.mu.Unlock()
	e.waker.Release(lock)

	if wasRinging {
		log.Infof("ring-off: stopped %d streams", stopped)
	}
	log.Ring("ring_off", log.Fields{"ring_id": id, "stopped": stopped, "was_ringing": wasRinging})
	e.emit(Event{Type: EventRingOff, At: e.now(), RingID: id, Stopped: stopped, WasRinging: wasRinging})
	return stopped
}

// stopAudioLocked stops every tracked stream and hands back the wake lock
// for the caller to release once mu is dropped.
func (e *Engine) stopAudioLocked() (int, *wake.Handle) {
	stopped := e.tracker.StopAll()
	lock := e.lock
	e.lock = nil
	return stopped, lock
}

// SetSignals replaces the monitored set. An empty set suspends ticking and
// forgets dedup state.
func (e *Engine) SetSignals(sigs []signals.Signal) {
	e.mu.Lock()
	was := len(e.signals) > 0
	e.signals = append([]signals.Signal(nil), sigs...)
	now := len(e.signals) > 0
	if !now {
		e.dedup.Clear()
	}
	e.mu.Unlock()

	if was == now {
		return
	}
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
	e.emit(Event{Type: EventMonitoring, At: e.now(), Monitoring: now})
}

// SetOffset sets how many seconds before its time a signal rings.
func (e *Engine) SetOffset(sec int) error {
	if sec < 0 || sec > MaxOffset {
		return fmt.Errorf("%w: %d (want 0-%d)", ErrOffsetRange, sec, MaxOffset)
	}
	e.mu.Lock()
	changed := e.offset != sec
	e.offset = sec
	e.mu.Unlock()
	if changed {
		log.Infof("offset set to %ds", sec)
		e.emit(Event{Type: EventOffset, At: e.now(), Offset: sec})
	}
	return nil
}

// SetRingtone switches the alert resource. Cached decodes and loops of the
// previous ringtone are discarded; an empty resource selects the tone.
func (e *Engine) SetRingtone(resource string) {
	e.mu.Lock()
	old := e.resource
	if old == resource {
		e.mu.Unlock()
		return
	}
	e.resource = resource
	e.mu.Unlock()

	dropped := e.player.Dispose()
	stopped := e.tracker.StopResource(old)
	log.Infof("ringtone set to %s (dropped %d cached, stopped %d)", audio.Describe(resource), dropped, stopped)
	e.emit(Event{Type: EventRingtone, At: e.now(), Ringtone: audio.Describe(resource)})
}

func (e *Engine) Monitoring() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.signals) > 0
}

func (e *Engine) Acknowledged() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now().Before(e.ackUntil)
}

func (e *Engine) Snapshot() State {
	loops, tones := e.tracker.Counts()
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{
		Ringing:      e.ringing,
		RingID:       e.ringID,
		Acknowledged: e.now().Before(e.ackUntil),
		Monitoring:   len(e.signals) > 0,
		Signals:      len(e.signals),
		Offset:       e.offset,
		Ringtone:     e.resource,
		Loops:        loops,
		Tones:        tones,
		Dedup:        e.dedup.Len(),
		WakeLock:     e.lock != nil,
		Fired:        e.fired,
		RingOffs:     e.ringOffs,
	}
	if e.current != nil {
		c := *e.current
		st.Current = &c
	}
	return st
}

// Swept reports untracked streams found by ring-off sweeps.
func (e *Engine) Swept() int { return e.tracker.Swept() }

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}
