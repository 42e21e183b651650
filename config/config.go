package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ringer/hotkey"
)

var ErrInvalid = errors.New("invalid config")

// Config holds all configuration for ringer.
type Config struct {
	OffsetSeconds int      `yaml:"offset_seconds"`
	Ringtone      string   `yaml:"ringtone"`
	MatchWindow   Duration `yaml:"match_window"`
	PollInterval  Duration `yaml:"poll_interval"`
	DedupGrace    Duration `yaml:"dedup_grace"`
	SignalsFile   string   `yaml:"signals_file"`
	WakeLock      bool     `yaml:"wake_lock"`

	HTTP   HTTPConfig   `yaml:"http"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Hotkey HotkeyConfig `yaml:"hotkey"`
	Button ButtonConfig `yaml:"button"`
}

// HTTPConfig enables the status server when Addr is set.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// MQTTConfig enables event publishing when Broker is set.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type HotkeyConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Combo     string   `yaml:"combo"`
	LongPress Duration `yaml:"long_press"`
}

// ButtonConfig describes a physical ring-off button on a GPIO line.
type ButtonConfig struct {
	Enabled bool   `yaml:"enabled"`
	Chip    string `yaml:"chip"`
	Pin     int    `yaml:"pin"`
}

// Duration wraps time.Duration for YAML unmarshalling from strings like "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

func Defaults() Config {
	return Config{
		OffsetSeconds: 0,
		MatchWindow:   Duration{5 * time.Second},
		PollInterval:  Duration{time.Second},
		DedupGrace:    Duration{5 * time.Minute},
		SignalsFile:   filepath.Join(Dir(), "signals.yml"),
		WakeLock:      true,
		MQTT: MQTTConfig{
			ClientID:    "ringer",
			TopicPrefix: "ringer",
		},
		Hotkey: HotkeyConfig{
			Enabled:   true,
			Combo:     hotkey.DefaultCombo,
			LongPress: Duration{3 * time.Second},
		},
		Button: ButtonConfig{
			Chip: "gpiochip0",
			Pin:  17,
		},
	}
}

// Load reads the config file and merges with defaults.
// Missing file is not an error, defaults are used silently.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads config from a specific path.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Defaults(), fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Defaults(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (c Config) Validate() error {
	if c.OffsetSeconds < 0 || c.OffsetSeconds > 99 {
		return fmt.Errorf("%w: offset_seconds must be between 0 and 99, got %d", ErrInvalid, c.OffsetSeconds)
	}

	pi := c.PollInterval.Duration
	if pi < 250*time.Millisecond || pi > 5*time.Second {
		return fmt.Errorf("%w: poll_interval must be between 250ms and 5s, got %s", ErrInvalid, pi)
	}

	mw := c.MatchWindow.Duration
	if mw < time.Second || mw > time.Minute {
		return fmt.Errorf("%w: match_window must be between 1s and 1m, got %s", ErrInvalid, mw)
	}
	if mw < pi {
		return fmt.Errorf("%w: match_window (%s) shorter than poll_interval (%s) can miss signals", ErrInvalid, mw, pi)
	}

	if c.DedupGrace.Duration < mw {
		return fmt.Errorf("%w: dedup_grace must be at least match_window (%s), got %s", ErrInvalid, mw, c.DedupGrace)
	}

	if _, err := hotkey.ParseCombo(c.Hotkey.Combo); err != nil {
		return fmt.Errorf("%w: hotkey.combo: %v", ErrInvalid, err)
	}
	if c.Hotkey.LongPress.Duration < 500*time.Millisecond {
		return fmt.Errorf("%w: hotkey.long_press must be at least 500ms, got %s", ErrInvalid, c.Hotkey.LongPress)
	}

	if c.Button.Enabled && c.Button.Pin < 0 {
		return fmt.Errorf("%w: button.pin must be >= 0, got %d", ErrInvalid, c.Button.Pin)
	}
	return nil
}

// Dir is the per-user config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "ringer")
}

func Path() string {
	return filepath.Join(Dir(), "config.yml")
}
