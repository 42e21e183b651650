package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestTestModeScript(t *testing.T) {
	td := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		td.run(ctx)
	}()

	script := strings.Join([]string{
		"SIGNAL +0s EURUSD up",
		"WAIT fired",
		"RINGOFF",
		"OFFSET 150",
		"BOGUS",
		"QUIT",
	}, "\n") + "\n"
	var out bytes.Buffer
	runTestMode(ctx, cancel, td.daemon, td.config(), strings.NewReader(script), &out)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop after QUIT")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"EVENT fired EURUSD up",
		"STOPPED 1",
		"ERROR offset out of range",
		`ERROR unknown command "BOGUS"`,
	}
	if len(lines) != len(want) {
		t.Fatalf("output:\n%s", out.String())
	}
	for i := range want {
		if !strings.HasPrefix(lines[i], want[i]) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], want[i])
		}
	}
	if td.fb.Live() != 0 {
		t.Errorf("%d streams live after teardown", td.fb.Live())
	}
}
