package spawners

import (
	"math"

	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/pool"
	"skyshade.ai/internal/sim/rng"
)

type ItemKind string

const (
	ItemExp  ItemKind = "EXP"
	ItemHeal ItemKind = "HEAL"
)

type ItemConfig struct {
	Interval   float64 `yaml:"interval"`
	Lifetime   float64 `yaml:"lifetime"`
	CenterX    float64 `yaml:"center_x"`
	CenterY    float64 `yaml:"center_y"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	Radius     float64 `yaml:"radius"`
	Prewarm    int     `yaml:"prewarm"`
	Expandable bool    `yaml:"expandable"`
	HealChance float64 `yaml:"heal_chance"`
}

func DefaultItemConfig() ItemConfig {
	return ItemConfig{
		Interval:   1.5,
		Lifetime:   8,
		CenterX:    0,
		CenterY:    0,
		Width:      8,
		Height:     4,
		Radius:     0.6,
		Prewarm:    10,
		Expandable: true,
		HealChance: 0.2,
	}
}

// Item is a pooled pickup that despawns when its lifetime runs out.
type Item struct {
	ID   int
	Kind ItemKind
	X, Y float64

	life pool.Timed
}

func (it *Item) Remaining() float64 { return it.life.Remaining() }

// Items spawns pickups on a fixed cadence for the whole session.
type Items struct {
	cfg  ItemConfig
	src  rng.Source
	sink event.Sink
	pool *pool.Pool[*Item]

	wait    wait
	running bool
	nextID  int
}

func NewItems(cfg ItemConfig, src rng.Source, sink event.Sink) *Items {
	if cfg.Interval < minInterval {
		cfg.Interval = minInterval
	}
	return &Items{
		cfg:  cfg,
		src:  src,
		sink: sink,
		pool: pool.New(func() *Item { return &Item{} }, cfg.Prewarm, cfg.Expandable),
	}
}

func (s *Items) Start() {
	if s.running {
		return
	}
	s.running = true
	s.wait.reset()
	s.wait.arm(s.cfg.Interval)
}

func (s *Items) Stop() {
	s.running = false
	s.wait.reset()
	s.pool.Drain(func(it *Item) {
		it.life.Deactivate()
		emit(s.sink, event.Event{Kind: event.KindItemExpire, Entity: it.ID, X: it.X, Y: it.Y, Detail: "forced"})
	})
}

func (s *Items) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	s.pool.Each(func(it *Item) {
		if it.life.Advance(dt) {
			it.life.Deactivate()
			s.pool.Put(it)
			emit(s.sink, event.Event{Kind: event.KindItemExpire, Entity: it.ID, X: it.X, Y: it.Y, Detail: string(it.Kind)})
		}
	})
	if s.running && s.wait.tick(dt) {
		s.spawn()
		s.wait.arm(s.cfg.Interval)
	}
}

func (s *Items) spawn() {
	it, ok := s.pool.Get()
	if !ok {
		return
	}
	s.nextID++
	kind := ItemExp
	if rng.Chance(s.src, s.cfg.HealChance) {
		kind = ItemHeal
	}
	hw, hh := s.cfg.Width/2, s.cfg.Height/2
	*it = Item{
		ID:   s.nextID,
		Kind: kind,
		X:    rng.Range(s.src, s.cfg.CenterX-hw, s.cfg.CenterX+hw),
		Y:    rng.Range(s.src, s.cfg.CenterY-hh, s.cfg.CenterY+hh),
	}
	it.life.Activate(s.cfg.Lifetime)
	emit(s.sink, event.Event{Kind: event.KindItemSpawn, Entity: it.ID, X: it.X, Y: it.Y, Detail: string(kind)})
}

// Collect releases a live item and reports its kind.
func (s *Items) Collect(id int) (ItemKind, bool) {
	var found *Item
	s.pool.Each(func(it *Item) {
		if found == nil && it.ID == id {
			found = it
		}
	})
	if found == nil {
		return "", false
	}
	found.life.Deactivate()
	s.pool.Put(found)
	emit(s.sink, event.Event{Kind: event.KindItemPickup, Entity: found.ID, X: found.X, Y: found.Y, Detail: string(found.Kind)})
	return found.Kind, true
}

func (s *Items) SetParameter(name string, v float64) bool {
	switch name {
	case ParamIntervalMin, ParamIntervalMax:
		if !math.IsNaN(v) {
			s.cfg.Interval = math.Max(v, minInterval)
		}
	case ParamLifetime:
		if v > 0 {
			s.cfg.Lifetime = v
		}
	default:
		return false
	}
	return true
}

func (s *Items) Running() bool   { return s.running }
func (s *Items) Active() int     { return s.pool.Active() }
func (s *Items) Radius() float64 { return s.cfg.Radius }

func (s *Items) Snapshot() []Item {
	var out []Item
	s.pool.Each(func(it *Item) { out = append(out, *it) })
	return out
}
