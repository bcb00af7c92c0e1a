package main

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skyshade.ai/internal/persistence/indexdb"
	persistlog "skyshade.ai/internal/persistence/log"
	"skyshade.ai/internal/sim/catalogs"
	"skyshade.ai/internal/sim/tuning"
)

func TestHost_RunsCappedSessionsBackToBack(t *testing.T) {
	dataDir := t.TempDir()
	dbPath := filepath.Join(dataDir, "index", "sessions.sqlite")
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	tune := tuning.Defaults()
	tune.TickRateHz = 120
	h := newHost(hostConfig{
		DataDir:     dataDir,
		Seed:        40,
		SessionCap:  150 * time.Millisecond,
		MaxSessions: 2,
	}, tune, catalogs.Builtin(), idx, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.runSessions(ctx); err != nil {
		t.Fatalf("runSessions: %v", err)
	}
	if h.completed.Load() != 2 {
		t.Fatalf("completed=%d", h.completed.Load())
	}
	if h.Current() != nil {
		t.Fatalf("a runner is still on air")
	}

	ents, err := os.ReadDir(filepath.Join(dataDir, "sessions"))
	if err != nil {
		t.Fatalf("sessions dir: %v", err)
	}
	if len(ents) != 2 {
		t.Fatalf("session dirs=%d", len(ents))
	}
	for _, e := range ents {
		logs, _ := filepath.Glob(filepath.Join(persistlog.SessionDir(dataDir, e.Name()), "events-*.jsonl.zst"))
		if len(logs) == 0 {
			t.Fatalf("session %s wrote no log", e.Name())
		}
	}

	rec := httptest.NewRecorder()
	h.metricsHandler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"skyshade_sessions_completed_total 2", "skyshade_index_queue_capacity"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}

	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	var ended int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE ended=1`).Scan(&ended); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if ended != 2 {
		t.Fatalf("ended sessions=%d", ended)
	}
	var seeds int
	if err := db.QueryRow(`SELECT COUNT(DISTINCT seed) FROM sessions`).Scan(&seeds); err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if seeds != 2 {
		t.Fatalf("distinct seeds=%d", seeds)
	}
}

func TestHost_ParentCancelStopsSessions(t *testing.T) {
	h := newHost(hostConfig{DataDir: t.TempDir()}, tuning.Defaults(), catalogs.Builtin(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	if err := h.runSessions(ctx); err == nil {
		t.Fatalf("expected the cancel to surface")
	}
	if h.completed.Load() != 1 {
		t.Fatalf("completed=%d", h.completed.Load())
	}
}

func TestStateHandler_LoopbackOnly(t *testing.T) {
	h := newHost(hostConfig{DataDir: t.TempDir()}, tuning.Defaults(), catalogs.Builtin(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
	req.RemoteAddr = "192.168.1.2:1234"
	rec := httptest.NewRecorder()
	h.stateHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}

	req.RemoteAddr = "127.0.0.1:1234"
	rec = httptest.NewRecorder()
	h.stateHandler()(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"completed":0`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}
