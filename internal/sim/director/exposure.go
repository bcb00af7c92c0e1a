package director

import "skyshade.ai/internal/sim/curve"

// Exposure tracks time spent out of shade. The first exposure starts a fixed grace window;
// after it, a damage pulse is due every Cadence seconds until shade is reached again.
type Exposure struct {
	Grace   float64
	Cadence float64

	exposed  bool
	damaging bool
	sunTime  float64
	heat     float64
}

func (e *Exposure) Reset() {
	e.exposed = false
	e.damaging = false
	e.sunTime = 0
	e.heat = 0
}

// Tick returns the number of damage pulses that fell due during dt.
func (e *Exposure) Tick(dt float64, exposed bool) int {
	if !exposed {
		e.Reset()
		return 0
	}
	if dt <= 0 {
		return 0
	}
	if !e.exposed {
		e.exposed = true
		e.sunTime = 0
		e.damaging = false
	}
	if !e.damaging {
		e.sunTime += dt
		if e.sunTime < e.Grace {
			return 0
		}
		e.damaging = true
		e.heat = 0
		dt = e.sunTime - e.Grace
	}
	cadence := e.Cadence
	if cadence < 0.05 {
		cadence = 0.05
	}
	e.heat += dt
	n := 0
	for e.heat >= cadence {
		e.heat -= cadence
		n++
	}
	return n
}

// Heat is grace progress in [0,1]; presentation uses it for the sky tint.
func (e *Exposure) Heat() float64 {
	if !e.exposed {
		return 0
	}
	if e.damaging || e.Grace <= 0 {
		return 1
	}
	return curve.Clamp01(e.sunTime / e.Grace)
}

func (e *Exposure) Exposed() bool  { return e.exposed }
func (e *Exposure) Damaging() bool { return e.damaging }
