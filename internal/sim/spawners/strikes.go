package spawners

import (
	"math"

	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/pool"
	"skyshade.ai/internal/sim/rng"
)

type StrikeStage uint8

const (
	StageWarning StrikeStage = iota
	StageStriking
)

func (s StrikeStage) String() string {
	if s == StageStriking {
		return "STRIKE"
	}
	return "WARN"
}

type StrikeConfig struct {
	CenterX       float64  `yaml:"center_x"`
	CenterY       float64  `yaml:"center_y"`
	Width         float64  `yaml:"width"`
	Height        float64  `yaml:"height"`
	HalfWidth     float64  `yaml:"half_width"`
	Prewarm       int      `yaml:"prewarm"`
	Interval      Interval `yaml:"interval"`
	MaxConcurrent int      `yaml:"max_concurrent"`
	WarnSeconds   float64  `yaml:"warn_seconds"`
	StrikeSeconds float64  `yaml:"strike_seconds"`
	BlinkHz       float64  `yaml:"blink_hz"`
	Ornaments     int      `yaml:"ornaments"`
	FadeSeconds   float64  `yaml:"fade_seconds"`
	DarkSun       float64  `yaml:"dark_sun"`
	DarkGlobal    float64  `yaml:"dark_global"`
}

func DefaultStrikeConfig() StrikeConfig {
	return StrikeConfig{
		CenterX:       0,
		CenterY:       0,
		Width:         12,
		Height:        6,
		HalfWidth:     0.5,
		Prewarm:       6,
		Interval:      Interval{Min: 0.8, Max: 2.0},
		MaxConcurrent: 3,
		WarnSeconds:   0.6,
		StrikeSeconds: 0.12,
		BlinkHz:       8,
		Ornaments:     4,
		FadeSeconds:   0.5,
		DarkSun:       0,
		DarkGlobal:    0.1,
	}
}

// Strike is a pooled warning-then-strike hazard. Its stage durations are captured at launch.
type Strike struct {
	ID      int
	X, Y    float64
	Warn    float64
	Hold    float64
	Stage   StrikeStage
	Visible bool
	// Hit is set once the strike has damaged the avatar.
	Hit bool

	life      pool.Timed
	blinkStep float64
	blinkAcc  float64
}

func (s *Strike) Elapsed() float64 { return s.life.Elapsed }

// Strikes is the hazard strike scheduler.
type Strikes struct {
	cfg  StrikeConfig
	src  rng.Source
	sink event.Sink
	pool *pool.Pool[*Strike]

	interval      Interval
	maxConcurrent int
	warn          float64
	hold          float64
	blinkHz       float64

	wait    wait
	running bool
	nextID  int

	sun    fade
	global fade
}

func NewStrikes(cfg StrikeConfig, src rng.Source, sink event.Sink) *Strikes {
	s := &Strikes{
		cfg:    cfg,
		src:    src,
		sink:   sink,
		pool:   pool.New(func() *Strike { return &Strike{} }, cfg.Prewarm, true),
		sun:    fade{value: 1},
		global: fade{value: 1},
	}
	s.interval = cfg.Interval.Normalize()
	s.SetMaxConcurrent(float64(cfg.MaxConcurrent))
	s.SetWarnSeconds(cfg.WarnSeconds)
	s.SetStrikeSeconds(cfg.StrikeSeconds)
	s.SetBlinkHz(cfg.BlinkHz)
	return s
}

func (s *Strikes) Start() {
	if s.running {
		return
	}
	s.running = true
	s.wait.reset()
	s.wait.arm(s.interval.Draw(s.src))
}

// Stop abandons the pending wait and force-releases every warning or striking entity.
func (s *Strikes) Stop() {
	s.running = false
	s.wait.reset()
	s.pool.Drain(func(st *Strike) {
		emit(s.sink, event.Event{Kind: event.KindStrikeRelease, Entity: st.ID, X: st.X, Y: st.Y, Detail: "forced"})
		st.life.Deactivate()
		st.Visible = false
	})
}

func (s *Strikes) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	s.sun.tick(dt)
	s.global.tick(dt)
	s.pool.Each(func(st *Strike) { s.advance(st, dt) })
	if !s.running || !s.wait.tick(dt) {
		return
	}
	if s.pool.Active() < s.maxConcurrent {
		s.launch()
	}
	s.wait.arm(s.interval.Draw(s.src))
}

func (s *Strikes) launch() {
	st, ok := s.pool.Get()
	if !ok {
		return
	}
	s.nextID++
	half := s.cfg.Width / 2
	*st = Strike{
		ID:        s.nextID,
		X:         rng.Range(s.src, s.cfg.CenterX-half, s.cfg.CenterX+half),
		Y:         s.cfg.CenterY,
		Warn:      s.warn,
		Hold:      s.hold,
		Stage:     StageWarning,
		Visible:   true,
		blinkStep: 0.5 / s.blinkHz,
	}
	st.life.Activate(st.Warn + st.Hold)
	emit(s.sink, event.Event{Kind: event.KindStrikeWarn, Entity: st.ID, X: st.X, Y: st.Y, Duration: st.Warn})
}

func (s *Strikes) advance(st *Strike, dt float64) {
	expired := st.life.Advance(dt)
	if st.Stage == StageWarning && st.life.Elapsed >= st.Warn {
		st.Stage = StageStriking
		st.Visible = true
		emit(s.sink, event.Event{Kind: event.KindStrikeHit, Entity: st.ID, X: st.X, Y: st.Y, Duration: st.Hold})
	}
	if expired {
		st.life.Deactivate()
		st.Visible = false
		s.pool.Put(st)
		emit(s.sink, event.Event{Kind: event.KindStrikeRelease, Entity: st.ID, X: st.X, Y: st.Y})
		return
	}
	if st.Stage == StageWarning && st.blinkStep > 0 {
		st.blinkAcc += dt
		for st.blinkAcc >= st.blinkStep {
			st.blinkAcc -= st.blinkStep
			st.Visible = !st.Visible
		}
	}
}

// OnHazardPhaseEnter moves the ornaments to their storm poses and dims the lights.
func (s *Strikes) OnHazardPhaseEnter() {
	s.cue("end", 1, s.cfg.DarkSun, s.cfg.DarkGlobal)
}

// OnHazardPhaseExit restores the ornaments and lights.
func (s *Strikes) OnHazardPhaseExit() {
	s.cue("start", 0, 1, 1)
}

func (s *Strikes) cue(pose string, rain, sun, global float64) {
	d := s.cfg.FadeSeconds
	for i := 0; i < s.cfg.Ornaments; i++ {
		emit(s.sink, event.Event{Kind: event.KindOrnamentMove, Entity: i, Detail: pose})
	}
	emit(s.sink, event.Event{Kind: event.KindRain, Value: rain})
	s.sun.to(sun, d)
	s.global.to(global, d)
	emit(s.sink, event.Event{Kind: event.KindLightFade, Value: sun, Duration: d, Detail: "sun"})
	emit(s.sink, event.Event{Kind: event.KindLightFade, Value: global, Duration: d, Detail: "global"})
}

func (s *Strikes) SetParameter(name string, v float64) bool {
	switch name {
	case ParamIntervalMin:
		s.interval.SetMin(v)
	case ParamIntervalMax:
		s.interval.SetMax(v)
	case ParamMaxConcurrent:
		s.SetMaxConcurrent(v)
	case ParamWarnSeconds:
		s.SetWarnSeconds(v)
	case ParamStrikeSeconds:
		s.SetStrikeSeconds(v)
	case ParamBlinkHz:
		s.SetBlinkHz(v)
	default:
		return false
	}
	return true
}

func (s *Strikes) SetMaxConcurrent(v float64) {
	if math.IsNaN(v) {
		v = 1
	}
	s.maxConcurrent = clampInt(int(math.Round(v)), 1, 10)
}

func (s *Strikes) SetWarnSeconds(v float64)   { s.warn = clampSeconds(v, 0.05, 2) }
func (s *Strikes) SetStrikeSeconds(v float64) { s.hold = clampSeconds(v, 0.05, 0.6) }

func (s *Strikes) SetBlinkHz(v float64) {
	if math.IsNaN(v) || v < 0.5 {
		v = 0.5
	}
	s.blinkHz = v
}

func clampSeconds(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

func (s *Strikes) Running() bool          { return s.running }
func (s *Strikes) Active() int            { return s.pool.Active() }
func (s *Strikes) Interval() Interval     { return s.interval }
func (s *Strikes) MaxConcurrent() int     { return s.maxConcurrent }
func (s *Strikes) WarnSeconds() float64   { return s.warn }
func (s *Strikes) StrikeSeconds() float64 { return s.hold }
func (s *Strikes) HalfWidth() float64     { return s.cfg.HalfWidth }
func (s *Strikes) Lights() (sun, global float64) {
	return s.sun.value, s.global.value
}

// Each visits live strikes; fn may set Hit.
func (s *Strikes) Each(fn func(*Strike)) { s.pool.Each(fn) }

func (s *Strikes) Snapshot() []Strike {
	var out []Strike
	s.pool.Each(func(st *Strike) { out = append(out, *st) })
	return out
}

// fade is a linear presentation tween.
type fade struct {
	value, from, target float64
	elapsed, dur        float64
}

func (f *fade) to(target, dur float64) {
	f.from = f.value
	f.target = target
	f.elapsed = 0
	f.dur = dur
	if dur <= 0 {
		f.value = target
	}
}

func (f *fade) tick(dt float64) {
	if f.dur <= 0 || f.elapsed >= f.dur {
		return
	}
	f.elapsed += dt
	if f.elapsed >= f.dur {
		f.value = f.target
		return
	}
	f.value = f.from + (f.target-f.from)*(f.elapsed/f.dur)
}
