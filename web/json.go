package web

import (
	"encoding/json"
	"time"

	"ringer/audio"
	"ringer/status"
)

// StatusJSON is the JSON representation of the daemon status.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

type StatusInner struct {
	Ringing       bool           `json:"ringing"`
	RingID        string         `json:"ring_id,omitempty"`
	Current       *SignalJSON    `json:"current,omitempty"`
	Acknowledged  bool           `json:"acknowledged"`
	Monitoring    bool           `json:"monitoring"`
	Offset        int            `json:"offset"`
	Ringtone      string         `json:"ringtone"`
	WakeLock      bool           `json:"wake_lock"`
	Tracked       TrackedJSON    `json:"tracked"`
	DedupEntries  int            `json:"dedup_entries"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"counts"`
	Upcoming      []SignalJSON   `json:"upcoming"`
	LastEvent     *LastEventJSON `json:"last_event,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

type SignalJSON struct {
	Time      string `json:"time"`
	Asset     string `json:"asset"`
	Direction string `json:"direction"`
}

type TrackedJSON struct {
	Loops int `json:"loops"`
	Tones int `json:"tones"`
}

type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

type CountsJSON struct {
	Fires      int `json:"fires"`
	Suppressed int `json:"suppressed"`
	RingOffs   int `json:"ring_offs"`
	Fallbacks  int `json:"fallbacks"`
	Failures   int `json:"failures"`
}

type LastEventJSON struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	RingID    string `json:"ring_id,omitempty"`
}

type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	WindowMs    int64  `json:"window_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	SignalsFile string `json:"signals_file"`
}

func formatJSON(snap status.Snapshot) []byte {
	r := snap.Ring
	sj := StatusJSON{
		Status: StatusInner{
			Ringing:       r.Ringing,
			RingID:        r.RingID,
			Acknowledged:  r.Acknowledged,
			Monitoring:    r.Monitoring,
			Offset:        r.Offset,
			Ringtone:      audio.Describe(r.Ringtone),
			WakeLock:      r.WakeLock,
			Tracked:       TrackedJSON{Loops: r.Loops, Tones: r.Tones},
			DedupEntries:  r.Dedup,
			UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
			StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
			Timestamp:     snap.Now.UTC().Format(time.RFC3339),
			MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
			Counts: CountsJSON{
				Fires:      snap.Counts.Fires,
				Suppressed: snap.Counts.Suppressed,
				RingOffs:   snap.Counts.RingOffs,
				Fallbacks:  snap.Counts.Fallbacks,
				Failures:   snap.Counts.Failures,
			},
			Upcoming: []SignalJSON{},
			Config: ConfigJSON{
				PollMs:      snap.Config.PollMs,
				WindowMs:    snap.Config.WindowMs,
				Broker:      snap.Config.Broker,
				HTTPAddr:    snap.Config.HTTPAddr,
				SignalsFile: snap.Config.SignalsFile,
			},
		},
	}
	if r.Current != nil {
		sj.Status.Current = &SignalJSON{
			Time:      r.Current.Time.UTC().Format(time.RFC3339),
			Asset:     r.Current.Asset,
			Direction: r.Current.Direction,
		}
	}
	for _, s := range snap.Upcoming {
		sj.Status.Upcoming = append(sj.Status.Upcoming, SignalJSON{
			Time:      s.Time.UTC().Format(time.RFC3339),
			Asset:     s.Asset,
			Direction: s.Direction,
		})
	}
	if ev := snap.LastEvent; ev != nil {
		sj.Status.LastEvent = &LastEventJSON{
			Type:      string(ev.Type),
			Timestamp: ev.At.UTC().Format(time.RFC3339),
			RingID:    ev.RingID,
		}
	}

	data, _ := json.MarshalIndent(sj, "", "  ")
	return data
}
