package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ringer/audio"
	"ringer/button"
	"ringer/clipboard"
	"ringer/config"
	"ringer/hotkey"
	"ringer/ring"
	"ringer/shutdown"
	"ringer/wake"
)

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(cfg config.Config) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("ringer doctor - interactive system diagnostics")
	fmt.Println("==============================================")

	out := os.Stdout
	steps := []func() bool{
		func() bool { return checkHotkey(out, hotkey.MustParseCombo(cfg.Hotkey.Combo)) },
		func() bool { return checkTone(out, 1500*time.Millisecond, true) },
		func() bool { return checkRingtone(out, cfg.Ringtone) },
		func() bool { return checkWake(out, wake.New(), wake.Probe()) },
		func() bool { return checkClipboard(out) },
	}
	if cfg.Button.Enabled {
		steps = append(steps, func() bool { return checkButton(out, cfg.Button.Chip, cfg.Button.Pin) })
	}

	allPass := true
	for i, step := range steps {
		fmt.Fprintf(out, "\n[%d/%d] ", i+1, len(steps))
		if !step() {
			allPass = false
		}
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		resetTerminal()
		println("\nInterrupted")
		os.Exit(1)
	}()
}

func confirm(w io.Writer, question string) bool {
	resetTerminal()
	fmt.Fprintf(w, "%s [y/n]: ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func checkHotkey(w io.Writer, combo hotkey.Combo) bool {
	fmt.Fprintln(w, "Ring-off hotkey")
	fmt.Fprintf(w, "Press %s...\n", combo)

	hk := hotkey.New(combo)
	if err := hk.Register(); err != nil {
		fmt.Fprintf(w, "  FAIL: could not register hotkey: %v\n", err)
		if _, derr := hotkey.Diagnose(combo); derr != nil {
			fmt.Fprintf(w, "  %v\n", derr)
		}
		return false
	}
	defer hk.Unregister()

	return waitPress(w, hk, 10*time.Second, "hotkey")
}

func checkButton(w io.Writer, chip string, pin int) bool {
	fmt.Fprintf(w, "Ring-off button (%s line %d)\n", chip, pin)

	line, err := button.Open(chip, pin)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", err)
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := button.New(line, button.PollInterval)
	go b.Run(ctx)

	fmt.Fprintln(w, "Press the button...")
	return waitPress(w, b, 15*time.Second, "button")
}

func waitPress(w io.Writer, src hotkey.Source, timeout time.Duration, what string) bool {
	select {
	case <-src.Keydown():
		fmt.Fprintf(w, "  PASS: %s detected\n", what)
		// swallow the release so it does not leak into the next step
		select {
		case <-src.Keyup():
		case <-time.After(5 * time.Second):
		}
		return true
	case <-time.After(timeout):
		fmt.Fprintf(w, "  FAIL: timeout waiting for %s\n", what)
		return false
	}
}

// checkTone plays the fallback tone through the real audio backend for
// play, then rings it off the way the engine does.
func checkTone(w io.Writer, play time.Duration, ask bool) bool {
	fmt.Fprintln(w, "Audio output (fallback tone)")

	backend, err := audio.NewBackend()
	if err != nil {
		fmt.Fprintf(w, "  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer backend.Close()

	if !playTone(w, backend, play) {
		return false
	}
	if ask && !confirm(w, "Did you hear an 800 Hz beep?") {
		fmt.Fprintln(w, "  FAIL: tone not confirmed")
		return false
	}
	fmt.Fprintln(w, "  PASS: tone played")
	return true
}

func playTone(w io.Writer, backend audio.Backend, play time.Duration) bool {
	tracker := ring.NewTracker(backend.Sweep)
	res := <-audio.NewPlayer(backend).PlayAlert(tracker.Scope(), "")
	if res.Outcome == audio.Failed {
		fmt.Fprintf(w, "  FAIL: %v\n", res.Err)
		tracker.StopAll()
		return false
	}
	time.Sleep(play)
	if n := tracker.StopAll(); n == 0 && tracker.Swept() == 0 {
		fmt.Fprintln(w, "  note: tone finished before ring-off")
	}
	return true
}

func checkRingtone(w io.Writer, resource string) bool {
	fmt.Fprintln(w, "Ringtone")
	if resource == "" {
		fmt.Fprintln(w, "  PASS: none configured, the default tone is used")
		return true
	}
	data, err := audio.Load(resource)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: cannot load %s: %v\n", audio.Describe(resource), err)
		fmt.Fprintln(w, "  Alerts will fall back to the default tone")
		return false
	}
	pcm, err := audio.Decode(data)
	if err != nil {
		fmt.Fprintf(w, "  FAIL: cannot decode %s: %v\n", audio.Describe(resource), err)
		fmt.Fprintln(w, "  Alerts will fall back to the default tone")
		return false
	}
	fmt.Fprintf(w, "  PASS: %s, %s at %d Hz, %d channel(s)\n",
		audio.Describe(resource), pcm.Duration().Round(time.Millisecond), pcm.SampleRate, pcm.Channels)
	return true
}

func checkWake(w io.Writer, inh wake.Inhibitor, probe error) bool {
	fmt.Fprintln(w, "Wake lock")
	if probe != nil {
		fmt.Fprintf(w, "  FAIL: %v\n", probe)
		fmt.Fprintln(w, "  The screen may stay dark while ringing")
		return false
	}

	c := wake.NewCoordinator(inh)
	defer c.Close()
	h := c.Acquire()
	if h == nil {
		fmt.Fprintln(w, "  FAIL: could not acquire a wake lock")
		return false
	}
	c.Release(h)
	if c.Held() {
		fmt.Fprintln(w, "  FAIL: wake lock still held after release")
		return false
	}
	fmt.Fprintln(w, "  PASS: wake lock acquired and released")
	return true
}

func checkClipboard(w io.Writer) bool {
	fmt.Fprintln(w, "Clipboard (copy signal summary)")
	if !clipboard.Available() {
		fmt.Fprintln(w, "  FAIL: no clipboard utility found (install xclip, xsel or wl-clipboard)")
		return false
	}

	prev, _ := clipboard.Read()
	const probe = "ringer-doctor-test"
	if err := clipboard.Copy(probe); err != nil {
		fmt.Fprintf(w, "  FAIL: copy failed: %v\n", err)
		return false
	}
	got, err := clipboard.Read()
	clipboard.Copy(prev)
	if err != nil || got != probe {
		fmt.Fprintf(w, "  FAIL: read back %q (%v)\n", got, err)
		return false
	}
	fmt.Fprintln(w, "  PASS: clipboard copy verified")
	return true
}
