package curve

import "math"

type Kind string

const (
	KindLinear    Kind = "linear"
	KindEaseInOut Kind = "ease_in_out"
)

// Curve maps t in [0,1] onto [From, To]. Unknown kinds evaluate as linear.
type Curve struct {
	Kind Kind    `yaml:"kind" json:"kind"`
	From float64 `yaml:"from" json:"from"`
	To   float64 `yaml:"to" json:"to"`
}

func Linear(from, to float64) Curve    { return Curve{Kind: KindLinear, From: from, To: to} }
func EaseInOut(from, to float64) Curve { return Curve{Kind: KindEaseInOut, From: from, To: to} }

func (c Curve) Eval(t float64) float64 {
	t = Clamp01(t)
	switch c.Kind {
	case KindEaseInOut:
		// Hermite with flat tangents at both keys.
		t = t * t * (3 - 2*t)
	}
	return Lerp(c.From, c.To, t)
}

// Increasing reports whether the curve never decreases over [0,1].
func (c Curve) Increasing() bool { return c.To >= c.From }

func Lerp(a, b, t float64) float64 { return a + (b-a)*t }

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return Clamp(v, 0, 1)
}
