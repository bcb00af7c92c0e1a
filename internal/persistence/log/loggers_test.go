package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/session"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer zr.Close()

	var out []Entry
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line: %v", err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "events")
	now := time.Date(2026, 5, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, name := range []string{"events-2026-05-01-10.jsonl.zst", "events-2026-05-01-11.jsonl.zst"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestSessionLogger_WritesEventsAndSummary(t *testing.T) {
	data := t.TempDir()
	l := NewSessionLogger(data, "S1", 64)

	l.Emit(event.Event{Time: 0, Kind: event.KindPhaseCalm, Value: 1})
	l.Emit(event.Event{Time: 3, Kind: event.KindDamage, Value: 5, Detail: "sun"})
	l.WriteSummary(session.Summary{ID: "S1", Ticks: 90, Elapsed: 3, Level: 1, HP: 95})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(SessionDir(data, "S1"), "events-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	entries := readEntries(t, files[0])
	if len(entries) != 3 {
		t.Fatalf("entries=%+v", entries)
	}
	if entries[1].Kind != event.KindDamage || entries[1].Detail != "sun" || entries[1].Value != 5 {
		t.Fatalf("damage entry=%+v", entries[1])
	}
	last := entries[2]
	if last.Kind != event.KindSummary || last.Summary == nil || last.Summary.HP != 95 {
		t.Fatalf("summary entry=%+v", last)
	}
	if dropped, failed := l.Stats(); dropped != 0 || failed != 0 {
		t.Fatalf("dropped=%d failed=%d", dropped, failed)
	}
}

func TestSessionLogger_EmitAfterCloseIsDropped(t *testing.T) {
	l := NewSessionLogger(t.TempDir(), "S2", 4)
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	l.Emit(event.Event{Kind: event.KindHeal})
	if dropped, _ := l.Stats(); dropped != 1 {
		t.Fatalf("dropped=%d", dropped)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
