// Package metrics exposes ring activity to Prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"ringer/ring"
)

const metricPrefix = "ringer_"

var (
	registerOnce sync.Once

	firesTotal      prometheus.Counter
	suppressedTotal prometheus.Counter
	ringOffsTotal   prometheus.Counter
	playbackTotal   *prometheus.CounterVec
)

// Source supplies the live values behind the gauges.
type Source interface {
	Snapshot() ring.State
	Swept() int
}

// Init registers ringer metrics with the default registry. Only the first
// call has any effect; Observe is a no-op until then.
func Init(src Source) {
	registerOnce.Do(func() {
		firesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "fires_total",
			Help: "Total signal occurrences that started an alert",
		})
		suppressedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "suppressed_total",
			Help: "Total ticks where a due signal was suppressed by dedup",
		})
		ringOffsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "ring_offs_total",
			Help: "Total ring-off requests",
		})
		playbackTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "playback_total",
				Help: "Total alert playbacks by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			firesTotal,
			suppressedTotal,
			ringOffsTotal,
			playbackTotal,
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: metricPrefix + "tracked_resources",
				Help: "Audio streams currently tracked for ring-off",
			}, func() float64 { return float64(src.Snapshot().Tracked()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: metricPrefix + "dedup_entries",
				Help: "Occurrences currently inside their suppression window",
			}, func() float64 { return float64(src.Snapshot().Dedup) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: metricPrefix + "ringing",
				Help: "1 while an alert is ringing",
			}, func() float64 {
				if src.Snapshot().Ringing {
					return 1
				}
				return 0
			}),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: metricPrefix + "sweep_untracked_total",
				Help: "Streams found live by the ring-off sweep without being tracked",
			}, func() float64 { return float64(src.Swept()) }),
		)
	})
}

// Observe counts a ring event.
func Observe(ev ring.Event) {
	switch ev.Type {
	case ring.EventFired:
		if firesTotal != nil {
			firesTotal.Inc()
		}
	case ring.EventSuppressed:
		if suppressedTotal != nil {
			suppressedTotal.Inc()
		}
	case ring.EventRingOff:
		if ringOffsTotal != nil {
			ringOffsTotal.Inc()
		}
	case ring.EventPlayback:
		outcome := ev.Outcome
		if outcome == "" {
			outcome = "unknown"
		}
		if playbackTotal != nil {
			playbackTotal.WithLabelValues(outcome).Inc()
		}
	}
}
