package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"skyshade.ai/internal/protocol"
	"skyshade.ai/internal/sim/session"
	"skyshade.ai/internal/transport/ws"
)

// Source returns the runner currently on air, or nil between sessions.
type Source interface {
	Current() *session.Runner
}

type SourceFunc func() *session.Runner

func (f SourceFunc) Current() *session.Runner { return f() }

type Server struct {
	src Source
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(src Source, logger *log.Logger) *Server {
	return &Server{
		src: src,
		log: logger,
		upgrader: ws.NewUpgrader(),
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func sessionParams(sess *session.Session) protocol.SessionParams {
	cfg := sess.Tuning()
	return protocol.SessionParams{
		TickRateHz:            cfg.TickRateHz,
		CalmSeconds:           cfg.Director.CalmSeconds,
		HazardSeconds:         cfg.Director.HazardSeconds,
		DifficultyFullSeconds: cfg.Director.DifficultyFullSeconds,
		Seed:                  cfg.Seed,
		LeftX:                 cfg.Clouds.LeftX,
		RightX:                cfg.Clouds.RightX,
	}
}

func catalogDigests(sess *session.Session) protocol.CatalogDigests {
	return protocol.CatalogDigests{
		Augments:     protocol.DigestRef{Digest: sess.CatalogDigest(), Count: sess.Catalog().Len()},
		TuningDigest: sess.TuningDigest(),
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		run := s.src.Current()
		if run == nil {
			http.Error(rw, "no session", http.StatusServiceUnavailable)
			return
		}

		sess := run.Session()
		resp := protocol.BootstrapResponse{
			ProtocolVersion: protocol.Version,
			SessionID:       sess.ID(),
			Tick:            run.CurrentTick(),
			Params:          sessionParams(sess),
			Catalogs:        catalogDigests(sess),
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send HELLO first.
		hello, err := ws.ReadHello(conn)
		if err != nil {
			return
		}

		run := s.src.Current()
		if run == nil {
			ws.WriteError(conn, protocol.ErrSessionNotFound, "no session running")
			ws.Close(conn, websocket.CloseTryAgainLater, "no session")
			return
		}
		sess := run.Session()

		oid := fmt.Sprintf("O%d", s.nextID.Add(1))
		if err := ws.WriteJSON(conn, protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			ObserverID:      oid,
			SessionID:       sess.ID(),
			Params:          sessionParams(sess),
			Catalogs:        catalogDigests(sess),
		}); err != nil {
			return
		}

		frameOut := make(chan []byte, 8)
		dataOut := make(chan []byte, 64)
		select {
		case run.ObserverJoin() <- session.ObserverJoinRequest{ObserverID: oid, FrameOut: frameOut, DataOut: dataOut}:
		default:
			ws.WriteError(conn, protocol.ErrSessionBusy, "server busy")
			ws.Close(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		defer func() {
			select {
			case run.ObserverLeave() <- oid:
			default:
				// Runner is stopping; it closes observers itself.
			}
		}()
		s.logf("observer %s (%s) joined session %s", oid, hello.ObserverName, sess.ID())

		reason := ws.Pump(conn, frameOut, dataOut)
		s.logf("observer %s left: %s", oid, reason)
	}
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
