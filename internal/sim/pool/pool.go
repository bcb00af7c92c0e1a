package pool

// Pool reuses short-lived entities. An entity is either free (owned by the pool) or active
// (owned by the caller that acquired it), never both.
type Pool[T comparable] struct {
	newFn      func() T
	expandable bool

	free   []T
	active []T
	index  map[T]int
	total  int
}

// New builds a pool and creates prewarm entities up front. A nil factory yields an empty,
// fixed pool that never hands anything out.
func New[T comparable](newFn func() T, prewarm int, expandable bool) *Pool[T] {
	p := &Pool[T]{newFn: newFn, expandable: expandable, index: map[T]int{}}
	if newFn == nil {
		return p
	}
	for i := 0; i < prewarm; i++ {
		p.free = append(p.free, newFn())
		p.total++
	}
	return p
}

// Get acquires a free entity. It reports false when the pool is exhausted and cannot grow.
func (p *Pool[T]) Get() (T, bool) {
	var v T
	switch {
	case len(p.free) > 0:
		v = p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
	case p.expandable && p.newFn != nil:
		v = p.newFn()
		p.total++
	default:
		return v, false
	}
	p.index[v] = len(p.active)
	p.active = append(p.active, v)
	return v, true
}

// Put returns an active entity. Values that are not currently active are rejected.
func (p *Pool[T]) Put(v T) bool {
	i, ok := p.index[v]
	if !ok {
		return false
	}
	delete(p.index, v)
	copy(p.active[i:], p.active[i+1:])
	var zero T
	p.active[len(p.active)-1] = zero
	p.active = p.active[:len(p.active)-1]
	for j := i; j < len(p.active); j++ {
		p.index[p.active[j]] = j
	}
	p.free = append(p.free, v)
	return true
}

// Each visits active entities in acquisition order. fn may Put the visited entity.
func (p *Pool[T]) Each(fn func(T)) {
	snapshot := append([]T(nil), p.active...)
	for _, v := range snapshot {
		if _, ok := p.index[v]; ok {
			fn(v)
		}
	}
}

// Drain force-releases every active entity, calling fn (if non-nil) before each release.
func (p *Pool[T]) Drain(fn func(T)) int {
	n := 0
	for len(p.active) > 0 {
		v := p.active[len(p.active)-1]
		if fn != nil {
			fn(v)
		}
		if p.Put(v) {
			n++
		}
	}
	return n
}

func (p *Pool[T]) Active() int      { return len(p.active) }
func (p *Pool[T]) Free() int        { return len(p.free) }
func (p *Pool[T]) Total() int       { return p.total }
func (p *Pool[T]) Expandable() bool { return p.expandable }
