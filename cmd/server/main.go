package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"skyshade.ai/internal/persistence/indexdb"
	persistlog "skyshade.ai/internal/persistence/log"
	"skyshade.ai/internal/sim/catalogs"
	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/session"
	"skyshade.ai/internal/sim/tuning"
	"skyshade.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Uint64("seed", 0, "seed of the first session; later sessions add their ordinal (0: use tuning seed)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite session index")
		watch      = flag.Bool("watch", true, "reload tuning.yaml on edit (applies from the next session)")
		duration   = flag.Duration("duration", 0, "cap on one session's wall time (0: run until defeat)")
		sessions   = flag.Int("sessions", 0, "number of sessions to run before exiting (0: forever)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	h := newHost(hostConfig{
		DataDir:     *dataDir,
		Seed:        *seed,
		SessionCap:  *duration,
		MaxSessions: *sessions,
	}, tune, cats, idx, logger)

	ctx, cancel := signalContext()
	defer cancel()

	if *watch {
		tw, err := tuning.NewWatcher(tp)
		if err != nil {
			logger.Printf("tuning watch disabled: %v", err)
		} else {
			defer tw.Close()
			go h.watchTuning(ctx, tw)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", h.metricsHandler())

	// Observers are read-only; both endpoints refuse non-loopback clients.
	obsSrv := observer.NewServer(h, logger)
	mux.HandleFunc("/v1/session", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/observe", obsSrv.WSHandler())

	enableAdminHTTP := envBool("SKYSHADE_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("SKYSHADE_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", h.stateHandler())
	} else {
		logger.Printf("admin endpoints disabled (SKYSHADE_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (SKYSHADE_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := h.runSessions(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("sessions stopped: %v", err)
		}
		cancel()
	}()

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-h.done
}

type hostConfig struct {
	DataDir     string
	Seed        uint64
	SessionCap  time.Duration
	MaxSessions int
}

// host runs sessions back to back and exposes the one on air to the transports.
type host struct {
	cfg   hostConfig
	cats  *catalogs.Catalogs
	idx   *indexdb.SQLiteIndex
	log   *log.Logger

	tune      atomic.Pointer[tuning.Tuning]
	current   atomic.Pointer[session.Runner]
	completed atomic.Uint64
	defeats   atomic.Uint64
	logDrops  atomic.Uint64
	done      chan struct{}
}

func newHost(cfg hostConfig, tune tuning.Tuning, cats *catalogs.Catalogs, idx *indexdb.SQLiteIndex, logger *log.Logger) *host {
	h := &host{cfg: cfg, cats: cats, idx: idx, log: logger, done: make(chan struct{})}
	h.tune.Store(&tune)
	return h
}

func (h *host) Current() *session.Runner { return h.current.Load() }

func (h *host) logf(format string, args ...any) {
	if h.log != nil {
		h.log.Printf(format, args...)
	}
}

func (h *host) runSessions(ctx context.Context) error {
	defer close(h.done)
	for n := 0; h.cfg.MaxSessions <= 0 || n < h.cfg.MaxSessions; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sum, err := h.runOne(ctx, n)
		if err != nil {
			return err
		}
		h.logf("session %s over: ticks=%d elapsed=%.1fs phase=%d level=%d hp=%d defeated=%v owned=%v",
			sum.ID, sum.Ticks, sum.Elapsed, sum.PhaseIndex, sum.Level, sum.HP, sum.Defeated, sum.Owned)
	}
	return nil
}

// runOne plays session n to its end. A parent cancel is returned as an error; a session cap
// is a normal end.
func (h *host) runOne(ctx context.Context, n int) (session.Summary, error) {
	tune := *h.tune.Load()
	if h.cfg.Seed != 0 {
		tune.Seed = h.cfg.Seed
	}
	tune.Seed += uint64(n)

	id := uuid.NewString()
	elog := persistlog.NewSessionLogger(h.cfg.DataDir, id, 0)
	sinks := []event.Sink{elog}
	if h.idx != nil {
		sinks = append(sinks, h.idx.Sink(id))
	}
	sess := session.New(tune, session.Deps{
		Catalog:       h.cats.Augments.Catalog,
		CatalogDigest: h.cats.Augments.Digest,
		ID:            id,
		Events:        event.Multi(sinks...),
	})
	run := session.NewRunner(sess, session.RunnerConfig{
		Controller: autopilot{},
		Logger:     h.log,
	})
	if h.idx != nil {
		h.idx.UpsertSession(sess.Summary(), false)
	}
	h.logf("session %s starting: seed=%d tick_rate=%d", id, tune.Seed, run.TickRateHz())

	runCtx := ctx
	if h.cfg.SessionCap > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, h.cfg.SessionCap)
		defer cancel()
	}
	h.current.Store(run)
	err := run.Run(runCtx)
	h.current.CompareAndSwap(run, nil)

	sum := sess.Summary()
	elog.WriteSummary(sum)
	if cerr := elog.Close(); cerr != nil {
		h.logf("session %s: close log: %v", id, cerr)
	}
	dropped, failed := elog.Stats()
	h.logDrops.Add(dropped)
	if failed > 0 {
		h.logf("session %s: %d log lines failed: %v", id, failed, elog.Err())
	}
	if h.idx != nil {
		h.idx.UpsertSession(sum, true)
	}
	h.completed.Add(1)
	if sum.Defeated {
		h.defeats.Add(1)
	}

	if err != nil && ctx.Err() != nil {
		return sum, err
	}
	return sum, nil
}

// watchTuning swaps in each valid edit of the tuning file for the next session. Invalid
// edits are logged and ignored.
func (h *host) watchTuning(ctx context.Context, w *tuning.Watcher) {
	events, errs := w.Events, w.Errors
	for events != nil {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			t, err := tuning.Load(path)
			if err != nil {
				h.logf("tuning reload rejected: %v", err)
				continue
			}
			h.tune.Store(&t)
			if h.idx != nil {
				if err := h.idx.UpsertCatalogs(h.cats, t); err != nil {
					h.logf("index backend: upsert catalogs: %v", err)
				}
			}
			h.logf("tuning reloaded from %s; applies to the next session", path)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			h.logf("tuning watch: %v", err)
		}
	}
}

func (h *host) stateHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := struct {
			SessionID string `json:"session_id,omitempty"`
			Tick      uint64 `json:"tick"`
			Completed uint64 `json:"completed"`
			Defeats   uint64 `json:"defeats"`
		}{
			Completed: h.completed.Load(),
			Defeats:   h.defeats.Load(),
		}
		if run := h.Current(); run != nil {
			resp.SessionID = run.Session().ID()
			resp.Tick = run.CurrentTick()
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (h *host) metricsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		var tick uint64
		if run := h.Current(); run != nil {
			tick = run.CurrentTick()
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP skyshade_session_tick Tick of the session on air.\n")
		fmt.Fprintf(rw, "# TYPE skyshade_session_tick gauge\n")
		fmt.Fprintf(rw, "skyshade_session_tick %d\n", tick)

		fmt.Fprintf(rw, "# HELP skyshade_sessions_completed_total Sessions that have ended.\n")
		fmt.Fprintf(rw, "# TYPE skyshade_sessions_completed_total counter\n")
		fmt.Fprintf(rw, "skyshade_sessions_completed_total %d\n", h.completed.Load())

		fmt.Fprintf(rw, "# HELP skyshade_sessions_defeated_total Sessions that ended in defeat.\n")
		fmt.Fprintf(rw, "# TYPE skyshade_sessions_defeated_total counter\n")
		fmt.Fprintf(rw, "skyshade_sessions_defeated_total %d\n", h.defeats.Load())

		fmt.Fprintf(rw, "# HELP skyshade_log_dropped_total Session log events dropped on a full buffer.\n")
		fmt.Fprintf(rw, "# TYPE skyshade_log_dropped_total counter\n")
		fmt.Fprintf(rw, "skyshade_log_dropped_total %d\n", h.logDrops.Load())

		if h.idx == nil {
			return
		}
		s := h.idx.Stats()
		fmt.Fprintf(rw, "# HELP skyshade_index_queue_depth Current index queue depth.\n")
		fmt.Fprintf(rw, "# TYPE skyshade_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "skyshade_index_queue_depth %d\n", s.QueueDepth)

		fmt.Fprintf(rw, "# HELP skyshade_index_queue_capacity Index queue capacity.\n")
		fmt.Fprintf(rw, "# TYPE skyshade_index_queue_capacity gauge\n")
		fmt.Fprintf(rw, "skyshade_index_queue_capacity %d\n", s.QueueCapacity)

		fmt.Fprintf(rw, "# HELP skyshade_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE skyshade_index_dropped_total counter\n")
		fmt.Fprintf(rw, "skyshade_index_dropped_total{kind=%q} %d\n", "event", s.DropEventTotal)
		fmt.Fprintf(rw, "skyshade_index_dropped_total{kind=%q} %d\n", "offer", s.DropOfferTotal)
		fmt.Fprintf(rw, "skyshade_index_dropped_total{kind=%q} %d\n", "session", s.DropSessionTotal)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
