package spawners

import (
	"math"

	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/rng"
)

// Gate answers the world questions that decide whether flying threats may spawn.
type Gate interface {
	PhaseIndex() int
	Raining() bool
}

type ThreatConfig struct {
	LeftX         float64  `yaml:"left_x"`
	RightX        float64  `yaml:"right_x"`
	MinY          float64  `yaml:"min_y"`
	MaxY          float64  `yaml:"max_y"`
	Radius        float64  `yaml:"radius"`
	BaseSpeed     float64  `yaml:"base_speed"`
	SpeedStep     float64  `yaml:"speed_step"`
	MaxPerWindow  int      `yaml:"max_per_window"`
	MaxConcurrent int      `yaml:"max_concurrent"`
	SpawnWait     Interval `yaml:"spawn_wait"`
}

func DefaultThreatConfig() ThreatConfig {
	return ThreatConfig{
		LeftX:         -12,
		RightX:        12,
		MinY:          -1,
		MaxY:          3,
		Radius:        0.5,
		BaseSpeed:     4,
		SpeedStep:     0.1,
		MaxPerWindow:  8,
		MaxConcurrent: 8,
		SpawnWait:     Interval{Min: 3, Max: 7},
	}
}

// Threat is a one-shot flier. It is destroyed, never pooled, once it crosses the far edge.
type Threat struct {
	ID    int
	X, Y  float64
	Dir   int
	Speed float64
}

type threatState uint8

const (
	threatAwaitGate threatState = iota
	threatWindow
	threatAwaitRain
)

// Threats is the flying threat scheduler.
type Threats struct {
	cfg  ThreatConfig
	src  rng.Source
	sink event.Sink
	gate Gate

	threats []*Threat
	nextID  int

	running    bool
	state      threatState
	spawnsLeft int
	wait       wait
}

func NewThreats(cfg ThreatConfig, gate Gate, src rng.Source, sink event.Sink) *Threats {
	if cfg.RightX < cfg.LeftX {
		cfg.LeftX, cfg.RightX = cfg.RightX, cfg.LeftX
	}
	if cfg.MaxPerWindow < 1 {
		cfg.MaxPerWindow = 1
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	cfg.SpawnWait = cfg.SpawnWait.Normalize()
	return &Threats{cfg: cfg, gate: gate, src: src, sink: sink}
}

func (t *Threats) Start() {
	if t.running {
		return
	}
	t.running = true
	t.state = threatAwaitGate
	t.wait.reset()
}

func (t *Threats) Stop() {
	t.running = false
	t.state = threatAwaitGate
	t.spawnsLeft = 0
	t.wait.reset()
	for _, th := range t.threats {
		emit(t.sink, event.Event{Kind: event.KindThreatExit, Entity: th.ID, X: th.X, Y: th.Y, Detail: "forced"})
	}
	t.threats = nil
}

func (t *Threats) open() bool {
	return t.gate != nil && t.gate.PhaseIndex() >= 1 && !t.gate.Raining()
}

// WindowRange is the inclusive spawn count range for a phase index.
func (t *Threats) WindowRange(phaseIndex int) (lo, hi int) {
	lo = phaseIndex - 1
	if lo < 1 {
		lo = 1
	}
	hi = lo + 2
	if hi > t.cfg.MaxPerWindow {
		hi = t.cfg.MaxPerWindow
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// SpeedFor scales the base speed by phase index, capped at twice the base.
func (t *Threats) SpeedFor(phaseIndex int) float64 {
	base := t.cfg.BaseSpeed
	v := base * (1 + float64(phaseIndex-1)*t.cfg.SpeedStep)
	return math.Min(v, 2*base)
}

func (t *Threats) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	t.advance(dt)
	if !t.running {
		return
	}
	switch t.state {
	case threatAwaitGate:
		if !t.open() {
			return
		}
		lo, hi := t.WindowRange(t.gate.PhaseIndex())
		t.spawnsLeft = rng.IntRange(t.src, lo, hi)
		t.state = threatWindow
		t.wait.reset()
		t.wait.arm(t.cfg.SpawnWait.Draw(t.src))
	case threatWindow:
		if !t.open() {
			t.state = threatAwaitRain
			t.spawnsLeft = 0
			return
		}
		if !t.wait.tick(dt) {
			return
		}
		if len(t.threats) < t.cfg.MaxConcurrent {
			t.spawn()
		}
		t.spawnsLeft--
		if t.spawnsLeft > 0 {
			t.wait.arm(t.cfg.SpawnWait.Draw(t.src))
		} else {
			t.state = threatAwaitRain
		}
	case threatAwaitRain:
		if t.gate != nil && t.gate.Raining() {
			t.state = threatAwaitGate
		}
	}
}

func (t *Threats) spawn() {
	dir := 1
	x := t.cfg.LeftX
	if rng.Chance(t.src, 0.5) {
		dir = -1
		x = t.cfg.RightX
	}
	t.nextID++
	th := &Threat{
		ID:    t.nextID,
		X:     x,
		Y:     rng.Range(t.src, t.cfg.MinY, t.cfg.MaxY),
		Dir:   dir,
		Speed: t.SpeedFor(t.gate.PhaseIndex()),
	}
	t.threats = append(t.threats, th)
	emit(t.sink, event.Event{Kind: event.KindThreatSpawn, Entity: th.ID, X: th.X, Y: th.Y, Value: th.Speed})
}

func (t *Threats) advance(dt float64) {
	kept := t.threats[:0]
	for _, th := range t.threats {
		th.X += float64(th.Dir) * th.Speed * dt
		if (th.Dir > 0 && th.X >= t.cfg.RightX) || (th.Dir < 0 && th.X <= t.cfg.LeftX) {
			emit(t.sink, event.Event{Kind: event.KindThreatExit, Entity: th.ID, X: th.X, Y: th.Y})
			continue
		}
		kept = append(kept, th)
	}
	for i := len(kept); i < len(t.threats); i++ {
		t.threats[i] = nil
	}
	t.threats = kept
}

// Destroy removes a threat after it hit the avatar.
func (t *Threats) Destroy(id int) bool {
	for i, th := range t.threats {
		if th.ID == id {
			t.threats = append(t.threats[:i], t.threats[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Threats) SetParameter(name string, v float64) bool {
	switch name {
	case ParamIntervalMin:
		t.cfg.SpawnWait.SetMin(v)
	case ParamIntervalMax:
		t.cfg.SpawnWait.SetMax(v)
	case ParamMaxConcurrent:
		if !math.IsNaN(v) {
			t.cfg.MaxConcurrent = clampInt(int(math.Round(v)), 1, 64)
		}
	case ParamSpeed:
		if v > 0 {
			t.cfg.BaseSpeed = v
		}
	default:
		return false
	}
	return true
}

func (t *Threats) Running() bool   { return t.running }
func (t *Threats) Active() int     { return len(t.threats) }
func (t *Threats) Radius() float64 { return t.cfg.Radius }

func (t *Threats) Snapshot() []Threat {
	out := make([]Threat, 0, len(t.threats))
	for _, th := range t.threats {
		out = append(out, *th)
	}
	return out
}
