package director

import (
	"math"

	"skyshade.ai/internal/sim/curve"
	"skyshade.ai/internal/sim/spawners"
)

// ParamSetter is the scheduler side of a binding.
type ParamSetter interface {
	SetParameter(name string, v float64) bool
}

// Binding evaluates a curve at the current ramp and pushes the result to a scheduler
// parameter. Max <= Min leaves the value unbounded above.
type Binding struct {
	Param  string
	Curve  curve.Curve
	Min    float64
	Max    float64
	Round  bool
	Target ParamSetter

	last float64
}

func (b *Binding) Evaluate(ramp float64) float64 {
	v := b.Curve.Eval(ramp)
	if b.Round {
		v = math.Round(v)
	}
	if v < b.Min {
		v = b.Min
	}
	if b.Max > b.Min && v > b.Max {
		v = b.Max
	}
	return v
}

func (b *Binding) push(ramp float64) {
	b.last = b.Evaluate(ramp)
	if b.Target != nil {
		b.Target.SetParameter(b.Param, b.last)
	}
}

// Last is the value pushed on the most recent tick.
func (b *Binding) Last() float64 { return b.last }

// ThunderCurves are the ramp curves for the hazard strike scheduler.
type ThunderCurves struct {
	IntervalMin   curve.Curve `yaml:"interval_min"`
	IntervalMax   curve.Curve `yaml:"interval_max"`
	Warn          curve.Curve `yaml:"warn"`
	Strike        curve.Curve `yaml:"strike"`
	MaxConcurrent curve.Curve `yaml:"max_concurrent"`
}

func DefaultThunderCurves() ThunderCurves {
	return ThunderCurves{
		IntervalMin:   curve.EaseInOut(2.0, 0.35),
		IntervalMax:   curve.EaseInOut(4.0, 1.0),
		Warn:          curve.EaseInOut(0.80, 0.25),
		Strike:        curve.EaseInOut(0.12, 0.25),
		MaxConcurrent: curve.Linear(3, 7),
	}
}

// ThunderBindings wires the curves to target. interval_min is pushed before interval_max so the
// scheduler can keep its gap between them.
func ThunderBindings(c ThunderCurves, target ParamSetter) []Binding {
	return []Binding{
		{Param: spawners.ParamIntervalMin, Curve: c.IntervalMin, Min: 0.05, Target: target},
		{Param: spawners.ParamIntervalMax, Curve: c.IntervalMax, Min: 0.1, Target: target},
		{Param: spawners.ParamWarnSeconds, Curve: c.Warn, Min: 0.05, Max: 2.0, Target: target},
		{Param: spawners.ParamStrikeSeconds, Curve: c.Strike, Min: 0.05, Max: 0.6, Target: target},
		{Param: spawners.ParamMaxConcurrent, Curve: c.MaxConcurrent, Min: 1, Max: 10, Round: true, Target: target},
	}
}
