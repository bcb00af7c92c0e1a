package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"skyshade.ai/internal/sim/catalogs"
	"skyshade.ai/internal/sim/encoding"
	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/session"
	"skyshade.ai/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvent   atomic.Uint64
	dropOffer   atomic.Uint64
	dropSession atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqOffer
	reqSession
)

type req struct {
	kind reqKind

	sessionID string
	event     event.Event
	offer     OfferRecord
	session   sessionRow
}

// OfferRecord is one level-up choice: what was offered and what was taken.
type OfferRecord struct {
	SessionID string
	T         float64
	Level     int
	Choices   []string
	Chosen    string
}

type sessionRow struct {
	Summary   session.Summary
	Ended     bool
	UpdatedAt string
}

type Stats struct {
	QueueDepth       int
	QueueCapacity    int
	DropEventTotal   uint64
	DropOfferTotal   uint64
	DropSessionTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Hazard phases emit bursts of strike and cloud events; never stall the tick on them.
		ch: make(chan req, 262144),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			source TEXT NOT NULL,
			count INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			catalog_digest TEXT NOT NULL,
			ticks INTEGER NOT NULL,
			elapsed REAL NOT NULL,
			phase_index INTEGER NOT NULL,
			level INTEGER NOT NULL,
			hp INTEGER NOT NULL,
			owned TEXT NOT NULL,
			defeated INTEGER NOT NULL,
			ended INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			t REAL NOT NULL,
			kind TEXT NOT NULL,
			entity INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			value REAL NOT NULL,
			detail TEXT,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind_t ON events(session_id, kind, t);`,
		`CREATE TABLE IF NOT EXISTS offers (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			t REAL NOT NULL,
			level INTEGER NOT NULL,
			choices TEXT NOT NULL,
			chosen TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_offers_chosen ON offers(chosen);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
		DropEventTotal:   s.dropEvent.Load(),
		DropOfferTotal:   s.dropOffer.Load(),
		DropSessionTotal: s.dropSession.Load(),
	}
}

func (s *SQLiteIndex) RecordEvent(sessionID string, e event.Event) {
	if s == nil || s.closed.Load() || sessionID == "" {
		return
	}
	select {
	case s.ch <- req{kind: reqEvent, sessionID: sessionID, event: e}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropEvent.Add(1)
	}
}

func (s *SQLiteIndex) RecordOffer(o OfferRecord) {
	if s == nil || s.closed.Load() || o.SessionID == "" {
		return
	}
	select {
	case s.ch <- req{kind: reqOffer, sessionID: o.SessionID, offer: o}:
	default:
		s.dropOffer.Add(1)
	}
}

// UpsertSession records the session's current summary; ended marks the final row.
func (s *SQLiteIndex) UpsertSession(sum session.Summary, ended bool) {
	if s == nil || s.closed.Load() || sum.ID == "" {
		return
	}
	r := sessionRow{Summary: sum, Ended: ended, UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	select {
	case s.ch <- req{kind: reqSession, sessionID: sum.ID, session: r}:
	default:
		s.dropSession.Add(1)
	}
}

// UpsertCatalogs stores the augment catalog and the tuning actually applied, synchronously.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type row struct {
		name   string
		digest string
		source string
		count  int
		json   []byte
	}
	var rows []row
	if cats != nil && cats.Augments.Catalog != nil {
		defs := cats.Augments.Catalog.All()
		views := session.AugmentViews(defs)
		if b, _ := json.Marshal(views); len(b) > 0 {
			rows = append(rows, row{name: "augments", digest: cats.Augments.Digest, source: cats.Augments.Source, count: len(defs), json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		rows = append(rows, row{name: "tuning", digest: encoding.SHA256Hex(b), source: "tuning", count: 1, json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,source,count,json,updated_at) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, r.source, r.count, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(session_id,seq,t,kind,entity,x,y,value,detail) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertOffer, _ := s.db.Prepare(`INSERT OR REPLACE INTO offers(session_id,seq,t,level,choices,chosen) VALUES(?,?,?,?,?,?)`)
	upsertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(session_id,seed,catalog_digest,ticks,elapsed,phase_index,level,hp,owned,defeated,ended,updated_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertEvent, insertOffer, upsertSession} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		// per-session sequencing (assigned in the writer goroutine)
		eventSeq = map[string]int{}
		offerSeq = map[string]int{}
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEvent:
			e := r.event
			seq := eventSeq[r.sessionID]
			eventSeq[r.sessionID] = seq + 1
			exec(insertEvent, r.sessionID, seq, e.Time, string(e.Kind), e.Entity, e.X, e.Y, e.Value, e.Detail)

		case reqOffer:
			o := r.offer
			seq := offerSeq[r.sessionID]
			offerSeq[r.sessionID] = seq + 1
			exec(insertOffer, r.sessionID, seq, o.T, o.Level, strings.Join(o.Choices, ","), o.Chosen)

		case reqSession:
			sum := r.session.Summary
			owned, _ := json.Marshal(sum.Owned)
			exec(upsertSession,
				sum.ID,
				int64(sum.Seed),
				sum.CatalogDigest,
				int64(sum.Ticks),
				sum.Elapsed,
				sum.PhaseIndex,
				sum.Level,
				sum.HP,
				string(owned),
				boolInt(sum.Defeated),
				boolInt(r.session.Ended),
				r.session.UpdatedAt,
			)
			if r.session.Ended {
				delete(eventSeq, r.sessionID)
				delete(offerSeq, r.sessionID)
				commit()
			}
		}
		flushIfNeeded()
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
