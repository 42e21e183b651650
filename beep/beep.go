// Package beep synthesizes the fixed fallback alert tone.
package beep

import (
	"math"
	"sync"
	"time"
)

const (
	SampleRate = 44100
	Channels   = 2

	Freq     = 800.0
	Gain     = 0.3
	Duration = time.Second

	// attack/release ramp keeps the tone from clicking at either end
	rampDuration = 5 * time.Millisecond
)

var (
	toneSamples []int16
	toneOnce    sync.Once
	disabled    bool
)

// Disable makes Tone return silence. Used by test mode so headless runs stay quiet.
func Disable() { disabled = true }

func Disabled() bool { return disabled }

// Tone returns the alert tone as interleaved stereo int16 samples at SampleRate.
// The slice is shared; callers must not modify it.
func Tone() []int16 {
	toneOnce.Do(func() {
		toneSamples = generateTone(SampleRate, Freq, Duration, Gain)
	})
	if disabled {
		return make([]int16, len(toneSamples))
	}
	return toneSamples
}

func generateTone(sampleRate int, freq float64, d time.Duration, volume float64) []int16 {
	n := int(float64(sampleRate) * d.Seconds())
	ramp := int(float64(sampleRate) * rampDuration.Seconds())
	samples := make([]int16, n*Channels)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := 1.0
		switch {
		case i < ramp:
			envelope = float64(i) / float64(ramp)
		case i >= n-ramp:
			envelope = float64(n-1-i) / float64(ramp)
		}
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		for c := 0; c < Channels; c++ {
			samples[i*Channels+c] = s
		}
	}
	return samples
}
