package spawners

import (
	"math"

	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/rng"
)

// Parameter names accepted by SetParameter.
const (
	ParamIntervalMin   = "interval_min"
	ParamIntervalMax   = "interval_max"
	ParamMaxConcurrent = "max_concurrent"
	ParamSpeed         = "speed"
	ParamWarnSeconds   = "warn_seconds"
	ParamStrikeSeconds = "strike_seconds"
	ParamBlinkHz       = "blink_hz"
	ParamLifetime      = "lifetime"
)

const (
	minInterval    = 0.05
	minIntervalGap = 0.05
)

// Scheduler is the contract shared by every entity scheduler.
type Scheduler interface {
	Start()
	Stop()
	Tick(dt float64)
	SetParameter(name string, v float64) bool
	Running() bool
	Active() int
}

// Interval is a [Min, Max] range of seconds between scheduling decisions.
type Interval struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Normalize keeps Min >= 0.05 and Max >= Min + 0.05.
func (iv Interval) Normalize() Interval {
	if math.IsNaN(iv.Min) || iv.Min < minInterval {
		iv.Min = minInterval
	}
	if math.IsNaN(iv.Max) || iv.Max < iv.Min+minIntervalGap {
		iv.Max = iv.Min + minIntervalGap
	}
	return iv
}

func (iv *Interval) SetMin(v float64) {
	iv.Min = v
	*iv = iv.Normalize()
}

func (iv *Interval) SetMax(v float64) {
	iv.Max = v
	*iv = iv.Normalize()
}

func (iv Interval) Draw(src rng.Source) float64 {
	n := iv.Normalize()
	return rng.Range(src, n.Min, n.Max)
}

// wait is a suspended timer. Overshoot from the previous wait carries into the next one so
// long ticks do not lose scheduling decisions.
type wait struct {
	remaining float64
	armed     bool
}

func (w *wait) arm(d float64) {
	if d < 0 {
		d = 0
	}
	if w.remaining < 0 {
		w.remaining += d
	} else {
		w.remaining = d
	}
	w.armed = true
}

// tick reports true once when the armed wait elapses.
func (w *wait) tick(dt float64) bool {
	if !w.armed {
		return false
	}
	w.remaining -= dt
	if w.remaining <= 0 {
		w.armed = false
		return true
	}
	return false
}

func (w *wait) reset() { *w = wait{} }

func emit(s event.Sink, e event.Event) {
	if s != nil {
		s.Emit(e)
	}
}

func moveTowards(cur, target, maxStep float64) float64 {
	d := target - cur
	if math.Abs(d) <= maxStep {
		return target
	}
	if d > 0 {
		return cur + maxStep
	}
	return cur - maxStep
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
