package main

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ringer/audio"
	"ringer/config"
	"ringer/hotkey"
	"ringer/log"
	"ringer/metrics"
	"ringer/mqtt"
	"ringer/ring"
	"ringer/signals"
	"ringer/status"
	"ringer/wake"
)

const (
	watchDebounce = 200 * time.Millisecond
	mqttPoll      = 5 * time.Second
	// signals this old are dropped from the file at startup
	pruneAge = 24 * time.Hour
)

// daemon owns the ring engine and everything that feeds or watches it.
type daemon struct {
	cfgPath string
	store   *signals.Store
	backend audio.Backend
	engine  *ring.Engine
	waker   *wake.Coordinator
	status  *status.Tracker
	broker  *status.Broker
	pub     mqtt.Publisher // nil when MQTT is off

	// closed once run is watching its files and has supplied the first signal set
	ready chan struct{}

	mu   sync.Mutex
	cfg  config.Config
	send func(tea.Msg)
}

func newDaemon(cfg config.Config, cfgPath string, store *signals.Store, backend audio.Backend, inh wake.Inhibitor, pub mqtt.Publisher) *daemon {
	d := &daemon{
		cfgPath: cfgPath,
		cfg:     cfg,
		store:   store,
		backend: backend,
		waker:   wake.NewCoordinator(inh),
		broker:  status.NewBroker(),
		pub:     pub,
		ready:   make(chan struct{}),
	}
	d.engine = ring.New(audio.NewPlayer(backend), d.waker,
		ring.WithCondition(ring.Window{Width: cfg.MatchWindow.Duration}),
		ring.WithInterval(cfg.PollInterval.Duration),
		ring.WithGrace(cfg.DedupGrace.Duration),
		ring.WithSweep(backend.Sweep),
		ring.OnFired(d.markNotified),
	)
	if err := d.engine.SetOffset(cfg.OffsetSeconds); err != nil {
		log.Warnf("offset: %v", err)
	}
	d.engine.SetRingtone(cfg.Ringtone)

	d.status = status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.PollInterval.Milliseconds(),
		WindowMs:    cfg.MatchWindow.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		SignalsFile: store.Path(),
	}, d.engine.Snapshot)
	return d
}

// run blocks until ctx ends, then waits for the engine to silence everything.
func (d *daemon) run(ctx context.Context) {
	metrics.Init(d.engine)
	d.publishSystem("STARTUP", "")
	log.SessionStart(d.engine.Snapshot().Offset, audio.Describe(d.config().Ringtone))

	// watch before the first refresh so no edit falls between the two
	d.watch(ctx, d.store.Path(), d.reloadSignals)
	if d.cfgPath != "" {
		d.watch(ctx, d.cfgPath, d.reloadConfig)
	}

	if n, err := d.store.Prune(time.Now().Add(-pruneAge)); err != nil {
		log.Warnf("prune signals: %v", err)
	} else if n > 0 {
		log.Infof("pruned %d stale signals", n)
	}
	d.refresh()
	close(d.ready)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		d.fanOut(ctx)
	}()

	if cs, ok := d.pub.(mqtt.ConnectionStatus); ok {
		go d.pollMQTT(ctx, cs)
	}

	<-ctx.Done()
	wg.Wait()

	snap := d.status.Snapshot()
	log.SessionEnd(snap.Counts.Fires, snap.Counts.RingOffs, snap.Uptime())
	d.publishSystem("SHUTDOWN", "NORMAL")
	if d.pub != nil {
		d.pub.Close()
	}
	d.waker.Close()
}

// setSender attaches the terminal UI. nil detaches it.
func (d *daemon) setSender(send func(tea.Msg)) {
	d.mu.Lock()
	d.send = send
	d.mu.Unlock()
}

func (d *daemon) tuiSend(msg tea.Msg) {
	d.mu.Lock()
	send := d.send
	d.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (d *daemon) config() config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

func (d *daemon) RingOff() int {
	return d.engine.RingOff()
}

// SetOffset applies and persists a new offset.
func (d *daemon) SetOffset(sec int) error {
	if err := d.engine.SetOffset(sec); err != nil {
		return err
	}
	d.mu.Lock()
	d.cfg.OffsetSeconds = sec
	cfg := d.cfg
	d.mu.Unlock()
	d.save(cfg)
	d.publishSchedule(d.store.Pending())
	return nil
}

func (d *daemon) Snapshot() ring.State {
	return d.engine.Snapshot()
}

func (d *daemon) Upcoming() []signals.Signal {
	return d.store.Pending()
}

func (d *daemon) save(cfg config.Config) {
	if d.cfgPath == "" {
		return
	}
	if err := config.Save(d.cfgPath, cfg); err != nil {
		log.Warnf("save config: %v", err)
	}
}

func (d *daemon) markNotified(sig signals.Signal) {
	if err := d.store.MarkNotified(sig.Key()); err != nil {
		log.Warnf("mark %s notified: %v", sig.Key(), err)
	}
	d.refresh()
}

// refresh pushes the pending signals to everything that shows or scans them.
func (d *daemon) refresh() {
	pending := d.store.Pending()
	d.engine.SetSignals(pending)
	d.status.SetUpcoming(pending)
	d.publishSchedule(pending)
	d.tuiSend(signalsMsg(pending))
}

func (d *daemon) reloadSignals() {
	if err := d.store.Reload(); err != nil {
		log.Warnf("reload %s: %v", d.store.Path(), err)
		return
	}
	log.Infof("signals reloaded: %d pending", len(d.store.Pending()))
	d.refresh()
}

// reloadConfig applies offset and ringtone edits made while running, for
// example by "ringer offset 20" from another shell.
func (d *daemon) reloadConfig() {
	cfg, err := config.LoadFrom(d.cfgPath)
	if err != nil {
		log.Warnf("reload config: %v", err)
		return
	}
	d.mu.Lock()
	offsetChanged := d.cfg.OffsetSeconds != cfg.OffsetSeconds
	d.cfg.OffsetSeconds = cfg.OffsetSeconds
	d.cfg.Ringtone = cfg.Ringtone
	d.mu.Unlock()

	d.engine.SetOffset(cfg.OffsetSeconds)
	d.engine.SetRingtone(cfg.Ringtone)
	if offsetChanged {
		d.publishSchedule(d.store.Pending())
	}
}

func (d *daemon) watch(ctx context.Context, path string, fn func()) {
	ch, err := signals.Watch(ctx, path, watchDebounce)
	if err != nil {
		log.Warnf("watch %s: %v", path, err)
		return
	}
	go func() {
		for range ch {
			fn()
		}
	}()
}

func (d *daemon) fanOut(ctx context.Context) {
	events := d.engine.Events()
	for {
		select {
		case <-ctx.Done():
			// teardown emits nothing, but drain what is queued
			for {
				select {
				case ev := <-events:
					d.dispatch(ev)
				default:
					return
				}
			}
		case ev := <-events:
			d.dispatch(ev)
		}
	}
}

func (d *daemon) dispatch(ev ring.Event) {
	metrics.Observe(ev)
	d.status.Observe(ev)
	d.broker.Publish(ev)
	if d.pub != nil && mqtt.Publishable(ev) {
		if err := d.pub.Publish(ev); err != nil {
			log.Warnf("mqtt publish %s: %v", ev.Type, err)
		}
	}
	d.tuiSend(eventMsg(ev))
}

// handlePresses maps hotkey or button gestures: a tap rings off, a hold
// opens the offset editor.
func (d *daemon) handlePresses(ctx context.Context, p *hotkey.Presses, from string) {
	defer p.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case pr := <-p.C():
			switch pr {
			case hotkey.Tap:
				n := d.RingOff()
				log.Infof("ring-off via %s (%d stopped)", from, n)
			case hotkey.Hold:
				d.mu.Lock()
				attached := d.send != nil
				d.mu.Unlock()
				if !attached {
					log.Infof("%s hold ignored: no terminal UI", from)
					continue
				}
				d.tuiSend(editOffsetMsg{})
			}
		}
	}
}

func (d *daemon) publishSchedule(pending []signals.Signal) {
	if d.pub == nil {
		return
	}
	if err := d.pub.PublishSchedule(mqtt.Schedule(pending, d.engine.Snapshot().Offset)); err != nil {
		log.Warnf("mqtt schedule: %v", err)
	}
}

func (d *daemon) publishSystem(event, reason string) {
	if d.pub == nil {
		return
	}
	if err := d.pub.PublishSystem(mqtt.SystemEvent{Timestamp: time.Now(), Event: event, Reason: reason}); err != nil {
		log.Warnf("mqtt %s: %v", event, err)
	}
}

func (d *daemon) pollMQTT(ctx context.Context, cs mqtt.ConnectionStatus) {
	ticker := time.NewTicker(mqttPoll)
	defer ticker.Stop()
	d.status.SetMQTTConnected(cs.IsConnected())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.status.SetMQTTConnected(cs.IsConnected())
		}
	}
}
