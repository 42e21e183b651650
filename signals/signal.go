// Package signals holds the monitored signal records and their YAML file store.
package signals

import (
	"fmt"
	"time"
)

// Signal is one scheduled alert occurrence.
type Signal struct {
	Time      time.Time `yaml:"time" json:"time"`
	Asset     string    `yaml:"asset" json:"asset"`
	Direction string    `yaml:"direction" json:"direction"`
	Expiry    string    `yaml:"expiry,omitempty" json:"expiry,omitempty"`
	Note      string    `yaml:"note,omitempty" json:"note,omitempty"`
	Notified  bool      `yaml:"notified,omitempty" json:"notified"`
}

// Key identifies an occurrence. Two signals with equal keys are the same
// occurrence regardless of their other fields.
type Key struct {
	Time      time.Time
	Asset     string
	Direction string
}

func (s Signal) Key() Key {
	// UTC + Round(0) so keys built from differently parsed times compare equal
	return Key{Time: s.Time.UTC().Round(0), Asset: s.Asset, Direction: s.Direction}
}

func (k Key) String() string {
	return k.Time.Format(time.RFC3339) + "-" + k.Asset + "-" + k.Direction
}

// Summary is the one-line form shown in the TUI and copied to the clipboard.
func (s Signal) Summary() string {
	out := fmt.Sprintf("%s %s %s", s.Time.Local().Format("15:04:05"), s.Asset, s.Direction)
	if s.Expiry != "" {
		out += " (" + s.Expiry + ")"
	}
	return out
}
