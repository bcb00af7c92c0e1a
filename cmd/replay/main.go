package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	persistlog "skyshade.ai/internal/persistence/log"
	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/session"
)

func main() {
	var (
		sessionDir = flag.String("session", "", "session dir containing events-*.jsonl.zst")
		dataDir    = flag.String("data", "./data", "runtime data directory (used with -id)")
		sessionID  = flag.String("id", "", "session id under <data>/sessions")
		kind       = flag.String("kind", "", "print every event of this kind (e.g. DAMAGE, OFFER)")
	)
	flag.Parse()

	dir := strings.TrimSpace(*sessionDir)
	if dir == "" && strings.TrimSpace(*sessionID) != "" {
		dir = persistlog.SessionDir(*dataDir, strings.TrimSpace(*sessionID))
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "missing -session or -id")
		os.Exit(2)
	}

	rep, err := scanSession(dir, event.Kind(strings.ToUpper(strings.TrimSpace(*kind))), os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	rep.print(os.Stdout)
}

type report struct {
	Files   int
	Lines   int
	Counts  map[event.Kind]int
	Summary *session.Summary
	LastT   float64
}

func (r report) print(w io.Writer) {
	fmt.Fprintf(w, "files=%d events=%d last_t=%.3f\n", r.Files, r.Lines, r.LastT)
	kinds := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-14s %d\n", k, r.Counts[event.Kind(k)])
	}
	if s := r.Summary; s != nil {
		fmt.Fprintf(w, "summary: session=%s seed=%d ticks=%d elapsed=%.1fs phase=%d level=%d hp=%d defeated=%v owned=%s\n",
			s.ID, s.Seed, s.Ticks, s.Elapsed, s.PhaseIndex, s.Level, s.HP, s.Defeated, strings.Join(s.Owned, ","))
	} else {
		fmt.Fprintln(w, "summary: missing (session still running or log truncated)")
	}
}

// scanSession reads every log file of a session in order. Events of the given kind are echoed
// to out as they are read.
func scanSession(dir string, kind event.Kind, out io.Writer) (report, error) {
	rep := report{Counts: map[event.Kind]int{}}
	files, err := listEventFiles(dir)
	if err != nil {
		return rep, err
	}
	if len(files) == 0 {
		return rep, fmt.Errorf("no events files found in %s", dir)
	}
	rep.Files = len(files)
	for _, path := range files {
		if err := scanFile(path, kind, out, &rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func listEventFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "events-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func scanFile(path string, kind event.Kind, out io.Writer, rep *report) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		var entry persistlog.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if entry.Time < rep.LastT {
			return fmt.Errorf("%s: time went backwards: %.3f after %.3f", filepath.Base(path), entry.Time, rep.LastT)
		}
		rep.LastT = entry.Time
		if entry.Kind == event.KindSummary {
			rep.Summary = entry.Summary
			continue
		}
		rep.Lines++
		rep.Counts[entry.Kind]++
		if kind != "" && entry.Kind == kind && out != nil {
			fmt.Fprintf(out, "%s\n", line)
		}
	}
	return sc.Err()
}
