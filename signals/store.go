package signals

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type file struct {
	Signals []Signal `yaml:"signals"`
}

// Store keeps signals in a YAML file. It is the caller-side record of which
// occurrences were already notified, so they are not re-supplied to the engine.
type Store struct {
	path string

	mu      sync.Mutex
	signals []Signal
}

// Open loads path. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.signals = nil
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read signals: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse signals %s: %w", s.path, err)
	}
	for i, sig := range f.Signals {
		if sig.Time.IsZero() || sig.Asset == "" {
			return fmt.Errorf("parse signals %s: entry %d needs time and asset", s.path, i+1)
		}
	}
	sortByTime(f.Signals)

	s.mu.Lock()
	s.signals = f.Signals
	s.mu.Unlock()
	return nil
}

func (s *Store) All() []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Signal(nil), s.signals...)
}

// Pending returns the signals not yet notified, in time order.
func (s *Store) Pending() []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Signal
	for _, sig := range s.signals {
		if !sig.Notified {
			out = append(out, sig)
		}
	}
	return out
}

func (s *Store) Add(sig Signal) error {
	if sig.Time.IsZero() || sig.Asset == "" {
		return errors.New("signal needs time and asset")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sig.Key()
	for _, existing := range s.signals {
		if existing.Key() == key {
			return fmt.Errorf("signal %s already exists", key)
		}
	}
	s.signals = append(s.signals, sig)
	sortByTime(s.signals)
	return s.saveLocked()
}

// MarkNotified flags the occurrence as handled and persists the store.
// Unknown keys are ignored.
func (s *Store) MarkNotified(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for i := range s.signals {
		if s.signals[i].Key() == key && !s.signals[i].Notified {
			s.signals[i].Notified = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.saveLocked()
}

// Prune drops notified signals older than cutoff.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.signals[:0]
	for _, sig := range s.signals {
		if sig.Notified && sig.Time.Before(cutoff) {
			continue
		}
		kept = append(kept, sig)
	}
	removed := len(s.signals) - len(kept)
	s.signals = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, s.saveLocked()
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = nil
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := yaml.Marshal(file{Signals: s.signals})
	if err != nil {
		return fmt.Errorf("encode signals: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".signals-*.yml")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func sortByTime(sigs []Signal) {
	sort.SliceStable(sigs, func(i, j int) bool { return sigs[i].Time.Before(sigs[j].Time) })
}
