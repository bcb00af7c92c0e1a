// Package contact is a headless stand-in for the engine's trigger volumes. It answers
// overlap questions from plain positions so the session can run without physics.
package contact

import "math"

// Span is a horizontal extent such as a cloud's shade or a strike column.
type Span struct {
	ID     int
	Center float64
	Half   float64
}

func (s Span) Covers(x float64) bool { return math.Abs(x-s.Center) <= s.Half }

// Point is a round body such as a flier or a pickup.
type Point struct {
	ID     int
	X, Y   float64
	Radius float64
}

func (p Point) Touches(x, y, radius float64) bool {
	dx, dy := p.X-x, p.Y-y
	r := p.Radius + radius
	return dx*dx+dy*dy <= r*r
}

// ShadeCount is the number of spans covering x.
func ShadeCount(x float64, spans []Span) int {
	n := 0
	for _, s := range spans {
		if s.Covers(x) {
			n++
		}
	}
	return n
}

// Covering returns the ids of spans covering x, in order.
func Covering(x float64, spans []Span) []int {
	var out []int
	for _, s := range spans {
		if s.Covers(x) {
			out = append(out, s.ID)
		}
	}
	return out
}

// Touching returns the ids of points within radius of (x, y), in order.
func Touching(x, y, radius float64, pts []Point) []int {
	var out []int
	for _, p := range pts {
		if p.Touches(x, y, radius) {
			out = append(out, p.ID)
		}
	}
	return out
}

// NearestCenter returns the span center closest to x and whether any span exists.
func NearestCenter(x float64, spans []Span) (float64, bool) {
	best, found := 0.0, false
	for _, s := range spans {
		if !found || math.Abs(s.Center-x) < math.Abs(best-x) {
			best, found = s.Center, true
		}
	}
	return best, found
}
