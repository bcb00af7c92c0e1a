package tuning

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestShippedTuningMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Defaults()
	want.Normalize()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("configs/tuning.yaml drifted from Defaults():\n got %+v\nwant %+v", got, want)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("director:\n  calm_seconds: 10\nstrikes:\n  interval: { min: -4, max: 0 }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Director.CalmSeconds != 10 || got.Director.HazardSeconds != 20 {
		t.Fatalf("merge: %+v", got.Director)
	}
	if got.Strikes.Interval.Min != 0.05 || got.Strikes.Interval.Max != 0.1 {
		t.Fatalf("interval not clamped: %+v", got.Strikes.Interval)
	}
	if got.TickRateHz != 30 || got.OfferCount != 3 {
		t.Fatalf("top-level defaults lost: %+v", got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("missing file should fail")
	}
	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("director: [1, 2"), 0o644)
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "tuning.yaml") {
		t.Fatalf("bad yaml error = %v", err)
	}
	empty := filepath.Join(dir, "empty.yaml")
	_ = os.WriteFile(empty, []byte("\n  \n"), 0o644)
	if _, err := Load(empty); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("empty file error = %v", err)
	}
	invalid := filepath.Join(dir, "invalid.yaml")
	_ = os.WriteFile(invalid, []byte("clouds:\n  left_x: 5\n  right_x: 5\nplayer:\n  max_hp: 0\n"), 0o644)
	_, err := Load(invalid)
	if err == nil || !strings.Contains(err.Error(), "clouds.right_x") || !strings.Contains(err.Error(), "player.max_hp") {
		t.Fatalf("validation error = %v", err)
	}
}

func TestWatcherReportsEdits(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(p)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer w.Close()

	_ = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644)
	if err := os.WriteFile(p, []byte("tick_rate_hz: 20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-w.Events:
		if filepath.Base(got) != "tuning.yaml" {
			t.Fatalf("event for %q", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no event for tuning edit")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_ = w.Close()
}

func TestWatcherWaitsForQuiet(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(p, []byte("tick_rate_hz: 30\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(p)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer w.Close()

	// Truncate, then write the content a moment later.
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	lastWrite := time.Now()
	if err := os.WriteFile(p, []byte("tick_rate_hz: 20\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Events:
		if since := time.Since(lastWrite); since < debounce {
			t.Fatalf("reported %v after the last write, before the file went quiet", since)
		}
		tu, err := Load(got)
		if err != nil || tu.TickRateHz != 20 {
			t.Fatalf("reload saw tick_rate_hz=%d err=%v", tu.TickRateHz, err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no event for tuning edit")
	}
}
