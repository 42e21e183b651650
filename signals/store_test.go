package signals

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC)

func TestKeyIgnoresZoneAndExtraFields(t *testing.T) {
	a := Signal{Time: t0, Asset: "EURUSD", Direction: "up", Note: "first"}
	b := Signal{Time: t0.In(time.FixedZone("X", 3600)), Asset: "EURUSD", Direction: "up", Expiry: "5m"}
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %v vs %v", a.Key(), b.Key())
	}
	c := Signal{Time: t0, Asset: "EURUSD", Direction: "down"}
	if a.Key() == c.Key() {
		t.Error("different direction produced equal keys")
	}
	if got := a.Key().String(); got != "2026-03-02T14:05:00Z-EURUSD-up" {
		t.Errorf("Key.String = %q", got)
	}
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "signals.yml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(s.All()) != 0 {
		t.Errorf("All = %v, want empty", s.All())
	}
}

func TestAddPersistsSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "signals.yml")
	s, _ := Open(path)
	if err := s.Add(Signal{Time: t0.Add(time.Minute), Asset: "GBPUSD", Direction: "down"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(Signal{Time: t0, Asset: "EURUSD", Direction: "up"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(Signal{Time: t0, Asset: "EURUSD", Direction: "up"}); err == nil {
		t.Error("duplicate Add succeeded")
	}
	if err := s.Add(Signal{Asset: "EURUSD"}); err == nil {
		t.Error("Add without time succeeded")
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	all := reopened.All()
	if len(all) != 2 || all[0].Asset != "EURUSD" || all[1].Asset != "GBPUSD" {
		t.Errorf("reopened = %+v", all)
	}
}

func TestMarkNotifiedRemovesFromPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.yml")
	s, _ := Open(path)
	a := Signal{Time: t0, Asset: "EURUSD", Direction: "up"}
	b := Signal{Time: t0.Add(time.Minute), Asset: "EURUSD", Direction: "up"}
	s.Add(a)
	s.Add(b)

	if err := s.MarkNotified(a.Key()); err != nil {
		t.Fatalf("MarkNotified: %v", err)
	}
	pending := s.Pending()
	if len(pending) != 1 || pending[0].Key() != b.Key() {
		t.Errorf("Pending = %+v", pending)
	}

	reopened, _ := Open(path)
	if len(reopened.Pending()) != 1 {
		t.Errorf("notified flag not persisted")
	}
	if err := s.MarkNotified(Signal{Time: t0, Asset: "nope"}.Key()); err != nil {
		t.Errorf("unknown key: %v", err)
	}
}

func TestPrune(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "signals.yml"))
	old := Signal{Time: t0, Asset: "A", Direction: "up"}
	s.Add(old)
	s.Add(Signal{Time: t0, Asset: "B", Direction: "up"})
	s.MarkNotified(old.Key())

	n, err := s.Prune(t0.Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("Prune = %d, %v; want 1", n, err)
	}
	if all := s.All(); len(all) != 1 || all[0].Asset != "B" {
		t.Errorf("All = %+v", all)
	}
}

func TestReloadRejectsIncompleteEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.yml")
	os.WriteFile(path, []byte("signals:\n  - asset: EURUSD\n"), 0644)
	if _, err := Open(path); err == nil || !strings.Contains(err.Error(), "entry 1") {
		t.Errorf("Open = %v, want entry error", err)
	}
}

func TestReloadParsesHandWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.yml")
	body := `signals:
  - time: 2026-03-02T14:06:00Z
    asset: GBPUSD
    direction: down
    expiry: 5m
  - time: 2026-03-02T14:05:00+00:00
    asset: EURUSD
    direction: up
`
	os.WriteFile(path, []byte(body), 0644)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	all := s.All()
	if len(all) != 2 || !all[0].Time.Equal(t0) || all[1].Expiry != "5m" {
		t.Errorf("All = %+v", all)
	}
}

func TestWatchSeesRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.yml")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Watch(ctx, path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	os.WriteFile(filepath.Join(dir, "other.yml"), []byte("x"), 0644)
	s, _ := Open(path)
	s.Add(Signal{Time: t0, Asset: "EURUSD", Direction: "up"})

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification after rewrite")
	}
}
