package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Controller drives the avatar. It runs on the loop goroutine right before each step, so it
// may call MoveTo and Choose directly.
type Controller interface {
	Control(s *Session)
}

type ControllerFunc func(s *Session)

func (f ControllerFunc) Control(s *Session) { f(s) }

// ObserverJoinRequest registers a read-only observer. FrameOut receives the latest frame with
// drop-oldest semantics; DataOut receives offers and is never blocked on.
type ObserverJoinRequest struct {
	ObserverID string
	FrameOut   chan []byte
	DataOut    chan []byte
}

type observerClient struct {
	frameOut chan []byte
	dataOut  chan []byte
}

type chooseReq struct {
	index int
	resp  chan error
}

type RunnerConfig struct {
	TickRateHz int
	Controller Controller
	Logger     *log.Logger
	// OnFrame is called after every step with the encoded frame, on the loop goroutine.
	OnFrame func(s *Session, frame []byte)
}

// Runner owns one session on a single goroutine and ticks it in real time.
type Runner struct {
	sess *Session
	cfg  RunnerConfig

	choose        chan chooseReq
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	stop          chan struct{}
	stopOnce      sync.Once
	done          chan struct{}

	observers map[string]*observerClient
	lastFrame []byte
	offerSent int

	// tick mirrors the session tick for readers outside the loop.
	tick atomic.Uint64
}

func NewRunner(s *Session, cfg RunnerConfig) *Runner {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = s.Tuning().TickRateHz
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 30
	}
	return &Runner{
		sess:          s,
		cfg:           cfg,
		choose:        make(chan chooseReq, 8),
		observerJoin:  make(chan ObserverJoinRequest, 64),
		observerLeave: make(chan string, 64),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		observers:     map[string]*observerClient{},
	}
}

func (r *Runner) Session() *Session                        { return r.sess }
func (r *Runner) TickRateHz() int                          { return r.cfg.TickRateHz }
func (r *Runner) ObserverJoin() chan<- ObserverJoinRequest { return r.observerJoin }
func (r *Runner) ObserverLeave() chan<- string             { return r.observerLeave }
func (r *Runner) Done() <-chan struct{}                    { return r.done }

func (r *Runner) CurrentTick() uint64 { return r.tick.Load() }

// Choose asks the loop to commit an offer entry and waits for the result.
func (r *Runner) Choose(ctx context.Context, i int) error {
	req := chooseReq{index: i, resp: make(chan error, 1)}
	select {
	case r.choose <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrOver
	}
	select {
	case err := <-req.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrOver
	}
}

// Run starts the session and ticks it until ctx ends, Stop is called or the avatar is
// defeated. Observer channels are closed on return.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	defer r.closeObservers()

	interval := time.Second / time.Duration(r.cfg.TickRateHz)
	dt := interval.Seconds()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.sess.Start()
	r.publish()

	for {
		select {
		case <-ctx.Done():
			r.sess.Stop()
			return ctx.Err()
		case <-r.stop:
			r.sess.Stop()
			return nil
		case req := <-r.observerJoin:
			r.handleObserverJoin(req)
		case id := <-r.observerLeave:
			r.handleObserverLeave(id)
		case req := <-r.choose:
			_, err := r.sess.Choose(req.index)
			req.resp <- err
			if err == nil {
				r.publish()
			}
		case <-ticker.C:
			r.StepOnce(dt)
			if r.sess.Over() {
				return nil
			}
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (r *Runner) Stop() { r.stopOnce.Do(func() { close(r.stop) }) }

// StepOnce runs the controller and one session step, then publishes the frame. Tests and
// replays call it directly instead of Run.
func (r *Runner) StepOnce(dt float64) {
	if r.cfg.Controller != nil && !r.sess.Over() {
		r.cfg.Controller.Control(r.sess)
	}
	paused := r.sess.Paused()
	r.sess.Step(dt)
	r.tick.Store(r.sess.Tick())
	if paused && r.sess.Paused() {
		return
	}
	r.publish()
}

func (r *Runner) publish() {
	b, err := json.Marshal(r.sess.Frame())
	if err != nil {
		if r.cfg.Logger != nil {
			r.cfg.Logger.Printf("session %s: encode frame: %v", r.sess.ID(), err)
		}
		return
	}
	r.lastFrame = b
	if r.cfg.OnFrame != nil {
		r.cfg.OnFrame(r.sess, b)
	}
	var offer []byte
	if msg, ok := r.sess.OfferMsg(); ok && r.sess.OfferSeq() != r.offerSent {
		r.offerSent = r.sess.OfferSeq()
		offer, _ = json.Marshal(msg)
	}
	for _, c := range r.observers {
		sendLatest(c.frameOut, b)
		if offer != nil {
			select {
			case c.dataOut <- offer:
			default:
			}
		}
	}
}

func (r *Runner) handleObserverJoin(req ObserverJoinRequest) {
	if req.ObserverID == "" || req.FrameOut == nil || req.DataOut == nil {
		return
	}
	if old := r.observers[req.ObserverID]; old != nil {
		close(old.frameOut)
		close(old.dataOut)
	}
	c := &observerClient{frameOut: req.FrameOut, dataOut: req.DataOut}
	r.observers[req.ObserverID] = c
	if r.lastFrame != nil {
		sendLatest(c.frameOut, r.lastFrame)
	}
	if msg, ok := r.sess.OfferMsg(); ok {
		if b, err := json.Marshal(msg); err == nil {
			select {
			case c.dataOut <- b:
			default:
			}
		}
	}
}

func (r *Runner) handleObserverLeave(id string) {
	c := r.observers[id]
	if c == nil {
		return
	}
	delete(r.observers, id)
	close(c.frameOut)
	close(c.dataOut)
}

func (r *Runner) closeObservers() {
	for id := range r.observers {
		r.handleObserverLeave(id)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
