package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ringer/audio"
	"ringer/config"
	"ringer/ring"
	"ringer/signals"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"15", 15, false},
		{"30s", 30, false},
		{"99", 99, false},
		{"100", 0, true},
		{"-1", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := parseOffset(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseOffset(%q) = %d, %v", tt.in, got, err)
		}
	}
	if _, err := parseOffset("120"); !errors.Is(err, ring.ErrOffsetRange) {
		t.Errorf("out of range error = %v, want ErrOffsetRange", err)
	}
}

func TestParseSignalTime(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, loc)

	got, err := parseSignalTime("14:05", now)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 3, 2, 14, 5, 0, 0, loc); !got.Equal(want) {
		t.Errorf("14:05 = %s, want %s", got, want)
	}

	got, err = parseSignalTime("14:05:30", now)
	if err != nil || got.Second() != 30 {
		t.Errorf("14:05:30 = %s, %v", got, err)
	}

	got, err = parseSignalTime("2026-03-02T12:00:00Z", now)
	if err != nil || !got.Equal(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("RFC 3339 = %s, %v", got, err)
	}

	if _, err := parseSignalTime("tomorrow", now); err == nil {
		t.Error("expected error for garbage time")
	}
}

func TestSetRingtone(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yml")

	flac, err := audio.EncodeFLAC(audio.PCM{Samples: make([]int16, 2205), SampleRate: 22050, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "bell.flac")
	os.WriteFile(good, flac, 0644)

	if err := setRingtone(cfgPath, config.Defaults(), good); err != nil {
		t.Fatalf("setRingtone: %v", err)
	}
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(cfg.Ringtone, "data:audio/flac;base64,") {
		t.Fatalf("ringtone = %.40q, want flac data URL", cfg.Ringtone)
	}

	bad := filepath.Join(dir, "bell.txt")
	os.WriteFile(bad, []byte("not audio"), 0644)
	if err := setRingtone(cfgPath, cfg, bad); err == nil {
		t.Fatal("expected error for undecodable file")
	}
	cfg, _ = config.LoadFrom(cfgPath)
	if cfg.Ringtone != "" {
		t.Error("failed set should clear to the default tone")
	}
}

func TestDryRun(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.Local)
	cfg := config.Defaults()
	cfg.OffsetSeconds = 10

	due := signals.Signal{Time: now.Add(8 * time.Second), Asset: "EURUSD", Direction: "up"}
	later := signals.Signal{Time: now.Add(time.Hour), Asset: "GBPUSD", Direction: "down"}
	soon := signals.Signal{Time: now.Add(2 * time.Minute), Asset: "XAUUSD", Direction: "up"}

	tests := []struct {
		name    string
		pending []signals.Signal
		want    string
	}{
		{"nothing", nil, "due now:  nothing"},
		{"due", []signals.Signal{later, due}, "due now:  14:00:08 EURUSD up"},
		{"next", []signals.Signal{later, soon}, "next:     14:02:00 XAUUSD up in 1m50s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dryRun(cfg, tt.pending, now)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("dryRun = %q, want %q", got, tt.want)
			}
		})
	}
}
