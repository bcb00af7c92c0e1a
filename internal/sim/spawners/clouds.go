package spawners

import (
	"math"

	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/pool"
	"skyshade.ai/internal/sim/rng"
)

const (
	arriveEpsilon = 0.01
	minCloudSpeed = 0.01
)

type CloudConfig struct {
	Count     int       `yaml:"count"`
	LeftX     float64   `yaml:"left_x"`
	RightX    float64   `yaml:"right_x"`
	Lanes     []float64 `yaml:"lanes"`
	HomeX     float64   `yaml:"home_x"`
	HalfWidth float64   `yaml:"half_width"`
	Interval  Interval  `yaml:"interval"`
	Speed     float64   `yaml:"speed"`
}

func DefaultCloudConfig() CloudConfig {
	return CloudConfig{
		Count:     4,
		LeftX:     -12,
		RightX:    12,
		Lanes:     []float64{4.0, 4.6, 5.2, 5.8},
		HomeX:     0,
		HalfWidth: 1.5,
		Interval:  Interval{Min: 1, Max: 8},
		Speed:     1,
	}
}

// Cloud is one roaming shade volume. Each cloud owns its slot and timing loop.
type Cloud struct {
	Slot    int
	X, Y    float64
	TargetX float64
	Dir     int
	Moving  bool

	life     pool.Timed
	wait     wait
	launched bool
}

// Clouds is the ambient roamer scheduler.
type Clouds struct {
	cfg   CloudConfig
	src   rng.Source
	sink  event.Sink
	speed float64

	clouds  []*Cloud
	running bool
}

func NewClouds(cfg CloudConfig, src rng.Source, sink event.Sink) *Clouds {
	if cfg.Count < 0 {
		cfg.Count = 0
	}
	if cfg.RightX < cfg.LeftX {
		cfg.LeftX, cfg.RightX = cfg.RightX, cfg.LeftX
	}
	cfg.Interval = cfg.Interval.Normalize()
	c := &Clouds{cfg: cfg, src: src, sink: sink, speed: math.Max(cfg.Speed, minCloudSpeed)}
	for i := 0; i < cfg.Count; i++ {
		cl := &Cloud{Slot: i, Y: c.lane(i)}
		if i == 0 {
			cl.X = cfg.HomeX
		} else if i%2 == 0 {
			cl.X = cfg.RightX
		} else {
			cl.X = cfg.LeftX
		}
		c.clouds = append(c.clouds, cl)
	}
	return c
}

func (c *Clouds) lane(i int) float64 {
	if len(c.cfg.Lanes) == 0 {
		return 0
	}
	return c.cfg.Lanes[i%len(c.cfg.Lanes)]
}

func (c *Clouds) Start() {
	if c.running {
		return
	}
	c.running = true
	for _, cl := range c.clouds {
		cl.wait.reset()
		if cl.Slot == 0 {
			// The first cloud drifts off from wherever it sits toward the left edge.
			c.launchTo(cl, -1, cl.X)
			continue
		}
		cl.wait.arm(c.cfg.Interval.Draw(c.src))
	}
}

// Stop retires every cloud to its nearest edge at once.
func (c *Clouds) Stop() {
	if !c.running && c.Active() == 0 {
		return
	}
	c.running = false
	for _, cl := range c.clouds {
		cl.wait.reset()
		if !cl.Moving {
			continue
		}
		edge := c.cfg.LeftX
		if math.Abs(cl.X-c.cfg.RightX) < math.Abs(cl.X-c.cfg.LeftX) {
			edge = c.cfg.RightX
		}
		cl.X = edge
		cl.TargetX = edge
		cl.Moving = false
		cl.life.Deactivate()
		emit(c.sink, event.Event{Kind: event.KindCloudRetire, Entity: cl.Slot, X: edge, Y: cl.Y})
	}
}

func (c *Clouds) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	for _, cl := range c.clouds {
		if cl.Moving {
			c.move(cl, dt)
			continue
		}
		if c.running && cl.wait.tick(dt) {
			dir := -cl.Dir
			if !cl.launched || dir == 0 {
				dir = 1
				if rng.Chance(c.src, 0.5) {
					dir = -1
				}
			}
			start := c.cfg.LeftX
			if dir < 0 {
				start = c.cfg.RightX
			}
			c.launchTo(cl, dir, start)
		}
	}
}

func (c *Clouds) launchTo(cl *Cloud, dir int, fromX float64) {
	cl.Dir = dir
	cl.X = fromX
	cl.TargetX = c.cfg.RightX
	if dir < 0 {
		cl.TargetX = c.cfg.LeftX
	}
	cl.Moving = true
	cl.launched = true
	cl.life.Activate(0)
	emit(c.sink, event.Event{Kind: event.KindCloudLaunch, Entity: cl.Slot, X: cl.X, Y: cl.Y, Value: float64(dir)})
	if math.Abs(cl.X-cl.TargetX) <= arriveEpsilon {
		c.arrive(cl)
	}
}

func (c *Clouds) move(cl *Cloud, dt float64) {
	cl.life.Advance(dt)
	// Speed is read live so the calm-phase ramp reaches clouds already in flight.
	cl.X = moveTowards(cl.X, cl.TargetX, c.speed*dt)
	if math.Abs(cl.X-cl.TargetX) <= arriveEpsilon {
		c.arrive(cl)
	}
}

func (c *Clouds) arrive(cl *Cloud) {
	cl.X = cl.TargetX
	cl.Moving = false
	cl.life.Deactivate()
	emit(c.sink, event.Event{Kind: event.KindCloudArrive, Entity: cl.Slot, X: cl.X, Y: cl.Y})
	if c.running {
		cl.wait.arm(c.cfg.Interval.Draw(c.src))
	}
}

func (c *Clouds) SetParameter(name string, v float64) bool {
	switch name {
	case ParamSpeed:
		c.SetSpeed(v)
	case ParamIntervalMin:
		c.cfg.Interval.SetMin(v)
	case ParamIntervalMax:
		c.cfg.Interval.SetMax(v)
	default:
		return false
	}
	return true
}

func (c *Clouds) SetSpeed(v float64) {
	if math.IsNaN(v) || v < minCloudSpeed {
		v = minCloudSpeed
	}
	c.speed = v
}

func (c *Clouds) Speed() float64     { return c.speed }
func (c *Clouds) Running() bool      { return c.running }
func (c *Clouds) HalfWidth() float64 { return c.cfg.HalfWidth }

func (c *Clouds) Active() int {
	n := 0
	for _, cl := range c.clouds {
		if cl.Moving {
			n++
		}
	}
	return n
}

// Snapshot copies every cloud, moving or parked.
func (c *Clouds) Snapshot() []Cloud {
	out := make([]Cloud, 0, len(c.clouds))
	for _, cl := range c.clouds {
		out = append(out, *cl)
	}
	return out
}
