package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"skyshade.ai/internal/protocol"
)

func TestSendLatest_DropsOldest(t *testing.T) {
	ch := make(chan []byte, 1)
	sendLatest(ch, []byte("a"))
	sendLatest(ch, []byte("b"))
	if got := string(<-ch); got != "b" {
		t.Fatalf("got %q", got)
	}
}

func TestRunner_StepOnceControllerChooses(t *testing.T) {
	cfg := quietTuning()
	cfg.Items.Interval = 0.5
	cfg.Items.Width = 0
	cfg.Items.Height = 0
	cfg.Items.HealChance = 0
	cfg.Player.StartMaxExp = 40

	var chosen int
	ctrl := ControllerFunc(func(s *Session) {
		if s.Paused() {
			if _, err := s.Choose(0); err == nil {
				chosen++
			}
		}
	})
	s := New(cfg, Deps{ID: "S1"})
	r := NewRunner(s, RunnerConfig{Controller: ctrl})
	s.Start()

	frames := make(chan []byte, 1)
	offers := make(chan []byte, 8)
	r.handleObserverJoin(ObserverJoinRequest{ObserverID: "O1", FrameOut: frames, DataOut: offers})

	for i := 0; i < 8; i++ {
		r.StepOnce(0.25)
	}
	if chosen == 0 {
		t.Fatalf("controller never chose")
	}
	// A wildcard adds its grant on top of itself.
	if s.Owned().Len() < chosen {
		t.Fatalf("owned=%d chosen=%d", s.Owned().Len(), chosen)
	}

	var f protocol.FrameMsg
	if err := json.Unmarshal(<-frames, &f); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if f.Type != protocol.TypeFrame || f.Tick != s.Tick() {
		t.Fatalf("latest frame tick=%d want %d", f.Tick, s.Tick())
	}

	var o protocol.OfferMsg
	select {
	case b := <-offers:
		if err := json.Unmarshal(b, &o); err != nil {
			t.Fatalf("offer: %v", err)
		}
	default:
		t.Fatalf("expected an offer message")
	}
	if o.Type != protocol.TypeOffer || len(o.Choices) == 0 || o.Level != 2 {
		t.Fatalf("offer=%+v", o)
	}
	if len(offers) != chosen-1 {
		t.Fatalf("expected one offer message per offer, %d left for %d offers", len(offers), chosen)
	}

	r.handleObserverLeave("O1")
	for range offers {
	}
}

func TestRunner_RunStopsOnCancelAndClosesObservers(t *testing.T) {
	s := New(quietTuning(), Deps{ID: "S1"})
	r := NewRunner(s, RunnerConfig{TickRateHz: 120})

	frames := make(chan []byte, 1)
	offers := make(chan []byte, 1)
	r.ObserverJoin() <- ObserverJoinRequest{ObserverID: "O1", FrameOut: frames, DataOut: offers}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	err := r.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("run: %v", err)
	}
	if s.Tick() == 0 {
		t.Fatalf("no ticks ran")
	}
	if !s.Over() {
		t.Fatalf("session not stopped")
	}
	for range frames {
	}
	select {
	case <-r.Done():
	default:
		t.Fatalf("done not closed")
	}
	if err := r.Choose(context.Background(), 0); !errors.Is(err, ErrOver) {
		t.Fatalf("choose after run: %v", err)
	}
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	s := New(quietTuning(), Deps{ID: "S1"})
	r := NewRunner(s, RunnerConfig{TickRateHz: 60})
	go func() {
		time.Sleep(50 * time.Millisecond)
		r.Stop()
		r.Stop()
	}()
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
}
