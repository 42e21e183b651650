package beep

import (
	"math"
	"testing"
)

func TestToneLength(t *testing.T) {
	got := len(Tone())
	want := SampleRate * Channels // one second
	if got != want {
		t.Errorf("tone has %d samples, want %d", got, want)
	}
}

func TestTonePeakMatchesGain(t *testing.T) {
	var peak int16
	for _, s := range Tone() {
		if s > peak {
			peak = s
		}
	}
	want := int16(math.Round(32767 * Gain))
	if math.Abs(float64(peak-want)) > 50 {
		t.Errorf("peak = %d, want about %d", peak, want)
	}
}

func TestToneFrequency(t *testing.T) {
	samples := Tone()
	// count rising zero crossings on the left channel
	crossings := 0
	for i := Channels; i < len(samples); i += Channels {
		if samples[i-Channels] < 0 && samples[i] >= 0 {
			crossings++
		}
	}
	if crossings < int(Freq)-2 || crossings > int(Freq)+2 {
		t.Errorf("got %d cycles in 1s, want about %d", crossings, int(Freq))
	}
}

func TestToneEdgesRamp(t *testing.T) {
	samples := Tone()
	if samples[0] != 0 {
		t.Errorf("first sample = %d, want 0", samples[0])
	}
	last := samples[len(samples)-1]
	if last > 10 || last < -10 {
		t.Errorf("last sample = %d, want near 0", last)
	}
}

func TestChannelsInterleaved(t *testing.T) {
	samples := Tone()
	for i := 0; i+1 < len(samples); i += Channels {
		if samples[i] != samples[i+1] {
			t.Fatalf("frame %d: left %d != right %d", i/Channels, samples[i], samples[i+1])
		}
	}
}
