package doctor

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ringer/audio"
	"ringer/wake"
)

func TestPlayToneRingsOff(t *testing.T) {
	fb := audio.NewFakeBackend()
	var out bytes.Buffer

	if !playTone(&out, fb, 0) {
		t.Fatalf("playTone failed:\n%s", out.String())
	}
	if _, tones := fb.Created(); tones != 1 {
		t.Errorf("created %d tones, want 1", tones)
	}
	if fb.Live() != 0 {
		t.Errorf("%d streams still live after ring-off", fb.Live())
	}
}

func TestPlayToneFailure(t *testing.T) {
	fb := audio.NewFakeBackend()
	fb.NewStreamErr = errors.New("no sink")
	var out bytes.Buffer

	if playTone(&out, fb, 0) {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.String(), "no sink") {
		t.Errorf("output missing cause:\n%s", out.String())
	}
}

func TestCheckRingtone(t *testing.T) {
	flac, err := audio.EncodeFLAC(audio.PCM{Samples: make([]int16, 4410), SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	good := filepath.Join(dir, "bell.flac")
	bad := filepath.Join(dir, "notes.txt")
	os.WriteFile(good, flac, 0644)
	os.WriteFile(bad, []byte("not audio"), 0644)

	tests := []struct {
		name     string
		resource string
		want     bool
		contains string
	}{
		{"default", "", true, "default tone"},
		{"flac file", good, true, "bell.flac, 100ms at 44100 Hz"},
		{"missing", filepath.Join(dir, "gone.wav"), false, "cannot load"},
		{"garbage", bad, false, "cannot decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if got := checkRingtone(&out, tt.resource); got != tt.want {
				t.Errorf("checkRingtone = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), tt.contains) {
				t.Errorf("output %q missing %q", out.String(), tt.contains)
			}
		})
	}
}

func TestCheckWake(t *testing.T) {
	var out bytes.Buffer
	inh := wake.NewFakeInhibitor()
	if !checkWake(&out, inh, nil) {
		t.Fatalf("checkWake failed:\n%s", out.String())
	}
	if inhibits, releases, _, active := inh.Counts(); inhibits != 1 || releases != 1 || active != 0 {
		t.Errorf("inhibits=%d releases=%d active=%d", inhibits, releases, active)
	}

	out.Reset()
	if checkWake(&out, inh, wake.ErrUnsupported) {
		t.Error("unsupported platform should fail")
	}

	out.Reset()
	inh.SetInhibitErr(errors.New("denied"))
	if checkWake(&out, inh, nil) {
		t.Error("inhibit error should fail")
	}
}
