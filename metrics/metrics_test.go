package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"ringer/ring"
)

type fakeSource struct{ state ring.State }

func (f fakeSource) Snapshot() ring.State { return f.state }
func (f fakeSource) Swept() int           { return 2 }

func gather(t *testing.T) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestObserveAndGauges(t *testing.T) {
	Observe(ring.Event{Type: ring.EventFired}) // before Init: no-op
	Init(fakeSource{state: ring.State{Ringing: true, Loops: 1, Tones: 2, Dedup: 4}})

	Observe(ring.Event{Type: ring.EventFired})
	Observe(ring.Event{Type: ring.EventFired})
	Observe(ring.Event{Type: ring.EventSuppressed})
	Observe(ring.Event{Type: ring.EventRingOff})
	Observe(ring.Event{Type: ring.EventPlayback, Outcome: "fell_back_to_tone"})
	Observe(ring.Event{Type: ring.EventOffset})

	fams := gather(t)
	counters := map[string]float64{
		"ringer_fires_total":           2,
		"ringer_suppressed_total":      1,
		"ringer_ring_offs_total":       1,
		"ringer_sweep_untracked_total": 2,
	}
	for name, want := range counters {
		f, ok := fams[name]
		if !ok {
			t.Errorf("%s not registered", name)
			continue
		}
		if got := f.GetMetric()[0].GetCounter().GetValue(); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	gauges := map[string]float64{
		"ringer_tracked_resources": 3,
		"ringer_dedup_entries":     4,
		"ringer_ringing":           1,
	}
	for name, want := range gauges {
		f, ok := fams[name]
		if !ok {
			t.Errorf("%s not registered", name)
			continue
		}
		if got := f.GetMetric()[0].GetGauge().GetValue(); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	pb := fams["ringer_playback_total"]
	if pb == nil || len(pb.GetMetric()) != 1 || pb.GetMetric()[0].GetLabel()[0].GetValue() != "fell_back_to_tone" {
		t.Errorf("playback_total = %v", pb)
	}

	// second Init must not panic on duplicate registration
	Init(fakeSource{})
}
