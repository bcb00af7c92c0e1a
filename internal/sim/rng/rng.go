package rng

import "math/rand/v2"

// Source yields uniform values in [0, 1).
type Source interface {
	Float64() float64
}

type seeded struct{ r *rand.Rand }

// NewSeeded returns a reproducible source (PCG).
func NewSeeded(seed uint64) Source {
	return &seeded{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seeded) Float64() float64 { return s.r.Float64() }

// Sequence replays fixed values in order and wraps around. An empty sequence yields 0.
type Sequence struct {
	Values []float64
	i      int
}

func (s *Sequence) Float64() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.i%len(s.Values)]
	s.i++
	return v
}

// Range draws uniformly in [lo, hi). A reversed range is swapped.
func Range(src Source, lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	if src == nil {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// IntRange draws uniformly in [lo, hi], both inclusive.
func IntRange(src Source, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	if src == nil {
		return lo
	}
	n := hi - lo + 1
	k := int(src.Float64() * float64(n))
	if k >= n {
		k = n - 1
	}
	return lo + k
}

// Chance reports true with probability p.
func Chance(src Source, p float64) bool {
	if src == nil {
		return false
	}
	return src.Float64() < p
}
