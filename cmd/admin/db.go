package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/sessions.sqlite)")
	sessionID := fs.String("session", "", "session id filter (events)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "sessions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "sessions.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "index:", err)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	var rows []any
	switch q {
	case "sessions":
		rows, err = querySessions(db, *limit)
	case "picks":
		rows, err = queryPicks(db, *limit)
	case "events":
		if strings.TrimSpace(*sessionID) == "" {
			fmt.Fprintln(os.Stderr, "events needs -session")
			os.Exit(2)
		}
		rows, err = queryEventCounts(db, *sessionID)
	case "catalogs":
		rows, err = queryCatalogs(db)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(sessions|picks|events|catalogs)")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		printJSON(r)
	}
}

type sessionRow struct {
	SessionID  string   `json:"session_id"`
	Seed       int64    `json:"seed"`
	Ticks      int64    `json:"ticks"`
	Elapsed    float64  `json:"elapsed"`
	PhaseIndex int      `json:"phase_index"`
	Level      int      `json:"level"`
	HP         int      `json:"hp"`
	Owned      []string `json:"owned"`
	Defeated   bool     `json:"defeated"`
	Ended      bool     `json:"ended"`
	UpdatedAt  string   `json:"updated_at"`
}

func querySessions(db *sql.DB, limit int) ([]any, error) {
	rows, err := db.Query(`SELECT session_id,seed,ticks,elapsed,phase_index,level,hp,owned,defeated,ended,updated_at FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r sessionRow
		var owned string
		var defeated, ended int
		if err := rows.Scan(&r.SessionID, &r.Seed, &r.Ticks, &r.Elapsed, &r.PhaseIndex, &r.Level, &r.HP, &owned, &defeated, &ended, &r.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(owned), &r.Owned)
		r.Defeated = defeated != 0
		r.Ended = ended != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

type pickRow struct {
	AugmentID string `json:"augment_id"`
	Picked    int    `json:"picked"`
	Offered   int    `json:"offered"`
}

// queryPicks reports how often each augment was chosen against how often it was offered.
func queryPicks(db *sql.DB, limit int) ([]any, error) {
	rows, err := db.Query(`SELECT choices, chosen FROM offers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := map[string]*pickRow{}
	var order []string
	get := func(id string) *pickRow {
		if r := byID[id]; r != nil {
			return r
		}
		r := &pickRow{AugmentID: id}
		byID[id] = r
		order = append(order, id)
		return r
	}
	for rows.Next() {
		var choices, chosen string
		if err := rows.Scan(&choices, &chosen); err != nil {
			return nil, err
		}
		for _, id := range strings.Split(choices, ",") {
			if id = strings.TrimSpace(id); id != "" {
				get(id).Offered++
			}
		}
		if chosen != "" {
			get(chosen).Picked++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]any, 0, len(order))
	for _, id := range sortPicks(order, byID) {
		if len(out) == limit {
			break
		}
		out = append(out, *byID[id])
	}
	return out, nil
}

func sortPicks(ids []string, byID map[string]*pickRow) []string {
	out := append([]string(nil), ids...)
	sort.Slice(out, func(i, j int) bool {
		a, b := byID[out[i]], byID[out[j]]
		if a.Picked != b.Picked {
			return a.Picked > b.Picked
		}
		return a.AugmentID < b.AugmentID
	})
	return out
}

type eventCountRow struct {
	Kind  string  `json:"kind"`
	Count int     `json:"count"`
	First float64 `json:"first_t"`
	Last  float64 `json:"last_t"`
}

func queryEventCounts(db *sql.DB, sessionID string) ([]any, error) {
	rows, err := db.Query(`SELECT kind, COUNT(*), MIN(t), MAX(t) FROM events WHERE session_id=? GROUP BY kind ORDER BY kind`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r eventCountRow
		if err := rows.Scan(&r.Kind, &r.Count, &r.First, &r.Last); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type catalogRow struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	Source    string `json:"source"`
	Count     int    `json:"count"`
	UpdatedAt string `json:"updated_at"`
}

func queryCatalogs(db *sql.DB) ([]any, error) {
	rows, err := db.Query(`SELECT name,digest,source,count,updated_at FROM catalogs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r catalogRow
		if err := rows.Scan(&r.Name, &r.Digest, &r.Source, &r.Count, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
