package audio

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDataURL(t *testing.T) {
	payload := []byte("RIFF....WAVE")
	url := "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(payload)

	data, mediaType, err := ParseDataURL(url)
	if err != nil {
		t.Fatalf("ParseDataURL: %v", err)
	}
	if mediaType != "audio/wav" {
		t.Errorf("media type = %q, want audio/wav", mediaType)
	}
	if string(data) != string(payload) {
		t.Errorf("payload = %q", data)
	}
}

func TestParseDataURLErrors(t *testing.T) {
	for _, in := range []string{
		"audio/wav;base64,AAAA",
		"data:audio/wav;base64",
		"data:audio/wav,plain",
		"data:audio/wav;base64,!!!",
	} {
		if _, _, err := ParseDataURL(in); err == nil {
			t.Errorf("ParseDataURL(%q) succeeded, want error", in)
		}
	}
}

func TestLoadPathAndFileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.wav")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{path, "file://" + path} {
		data, err := Load(id)
		if err != nil {
			t.Fatalf("Load(%q): %v", id, err)
		}
		if string(data) != "abc" {
			t.Errorf("Load(%q) = %q", id, data)
		}
	}
	if _, err := Load(""); err == nil {
		t.Error("Load(\"\") succeeded, want error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}

func TestDataURLConvertsToFLAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.wav")
	if err := os.WriteFile(path, wavBytes(ramp(1000), 8000, 1), 0644); err != nil {
		t.Fatal(err)
	}

	url, err := DataURL(path)
	if err != nil {
		t.Fatalf("DataURL: %v", err)
	}
	if !strings.HasPrefix(url, "data:audio/flac;base64,") {
		t.Fatalf("unexpected prefix: %.40s", url)
	}

	data, err := Load(url)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pcm, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(pcm.Samples) != 1000 || pcm.SampleRate != 8000 {
		t.Errorf("decoded %d samples at %d Hz", len(pcm.Samples), pcm.SampleRate)
	}
}

func TestDataURLRejectsUnplayable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := DataURL(path); err == nil {
		t.Error("DataURL succeeded on a text file")
	}
}

func TestDescribe(t *testing.T) {
	tests := map[string]string{
		"":                      "default tone",
		"/home/me/bell.flac":    "bell.flac",
		"file:///tmp/chime.wav": "chime.wav",
	}
	for in, want := range tests {
		if got := Describe(in); got != want {
			t.Errorf("Describe(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Describe("data:audio/flac;base64,AAAA"); !strings.HasPrefix(got, "embedded audio/flac") {
		t.Errorf("Describe(data url) = %q", got)
	}
}
