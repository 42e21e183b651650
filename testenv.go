package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ringer/config"
	"ringer/hotkey"
	"ringer/ring"
	"ringer/signals"
)

const testWait = 10 * time.Second

// runTestMode drives the daemon from line commands on in and reports on out.
// The daemon runs on the fake audio backend, so no sound is made.
//
//	KEYDOWN / KEYUP              simulate the ring-off hotkey
//	RINGOFF                      ring off directly
//	OFFSET <n>                   set the offset
//	SIGNAL <time|+Ns> <asset> <dir>   add a signal
//	WAIT <event>                 block until an event of that type
//	STATUS                       print ring state
//	SLEEP <ms>
//	QUIT
func runTestMode(ctx context.Context, stop context.CancelFunc, d *daemon, cfg config.Config, in io.Reader, out io.Writer) {
	defer stop()

	select {
	case <-d.ready:
	case <-ctx.Done():
		return
	}

	sub := d.broker.Subscribe(nil)
	defer sub.Close()

	hk := hotkey.NewFake()
	go d.handlePresses(ctx, hotkey.NewPresses(hk, cfg.Hotkey.LongPress.Duration), "test")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch cmd, args := fields[0], fields[1:]; cmd {
		case "KEYDOWN":
			hk.SimKeydown()
		case "KEYUP":
			hk.SimKeyup()
		case "RINGOFF":
			fmt.Fprintf(out, "STOPPED %d\n", d.RingOff())
		case "OFFSET":
			if len(args) != 1 {
				fmt.Fprintln(out, "ERROR usage: OFFSET <n>")
				continue
			}
			n, err := strconv.Atoi(args[0])
			if err == nil {
				err = d.SetOffset(n)
			}
			if err != nil {
				fmt.Fprintf(out, "ERROR %v\n", err)
			}
		case "SIGNAL":
			if err := testSignal(d, args); err != nil {
				fmt.Fprintf(out, "ERROR %v\n", err)
			}
		case "WAIT":
			if len(args) != 1 {
				fmt.Fprintln(out, "ERROR usage: WAIT <event>")
				continue
			}
			waitEvent(ctx, sub.Chan(), ring.EventType(args[0]), out)
		case "STATUS":
			s := d.Snapshot()
			fmt.Fprintf(out, "STATE ringing=%v loops=%d tones=%d wake=%v signals=%d offset=%d fired=%d\n",
				s.Ringing, s.Loops, s.Tones, s.WakeLock, s.Signals, s.Offset, s.Fired)
		case "SLEEP":
			if len(args) == 1 {
				if ms, err := strconv.Atoi(args[0]); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			}
		case "QUIT":
			return
		default:
			fmt.Fprintf(out, "ERROR unknown command %q\n", cmd)
		}
	}
}

// testSignal adds a signal; "+5s" means five seconds from now.
func testSignal(d *daemon, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: SIGNAL <time|+Ns> <asset> <dir>")
	}
	var at time.Time
	if rel, ok := strings.CutPrefix(args[0], "+"); ok {
		dur, err := time.ParseDuration(rel)
		if err != nil {
			return err
		}
		at = time.Now().Add(dur)
	} else {
		t, err := time.Parse(time.RFC3339, args[0])
		if err != nil {
			return err
		}
		at = t
	}
	if err := d.store.Add(signals.Signal{Time: at, Asset: args[1], Direction: args[2]}); err != nil {
		return err
	}
	d.refresh()
	return nil
}

func waitEvent(ctx context.Context, events <-chan ring.Event, want ring.EventType, out io.Writer) {
	timeout := time.After(testWait)
	for {
		select {
		case <-ctx.Done():
			return
		case <-timeout:
			fmt.Fprintf(out, "TIMEOUT %s\n", want)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != want {
				continue
			}
			line := "EVENT " + string(ev.Type)
			if ev.Signal != nil {
				line += " " + ev.Signal.Asset + " " + ev.Signal.Direction
			}
			if ev.Outcome != "" {
				line += " " + ev.Outcome
			}
			if ev.Type == ring.EventRingOff {
				line += fmt.Sprintf(" stopped=%d", ev.Stopped)
			}
			fmt.Fprintln(out, line)
			return
		}
	}
}
