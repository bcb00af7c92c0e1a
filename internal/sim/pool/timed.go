package pool

// Timed is the bounded-lifetime part of a pooled entity.
type Timed struct {
	Lifetime float64
	Elapsed  float64
	Live     bool
}

// Activate resets the timer. A lifetime <= 0 never expires.
func (t *Timed) Activate(lifetime float64) {
	t.Lifetime = lifetime
	t.Elapsed = 0
	t.Live = true
}

// Advance adds dt and reports whether the lifetime budget is spent.
func (t *Timed) Advance(dt float64) bool {
	if !t.Live {
		return false
	}
	if dt > 0 {
		t.Elapsed += dt
	}
	return t.Lifetime > 0 && t.Elapsed >= t.Lifetime
}

func (t *Timed) Deactivate() {
	t.Live = false
	t.Elapsed = 0
}

// Remaining is the unspent lifetime, 0 for unbounded or inactive timers.
func (t *Timed) Remaining() float64 {
	if !t.Live || t.Lifetime <= 0 {
		return 0
	}
	if r := t.Lifetime - t.Elapsed; r > 0 {
		return r
	}
	return 0
}
