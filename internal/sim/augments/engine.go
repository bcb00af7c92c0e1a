package augments

import "skyshade.ai/internal/sim/rng"

// Target receives augment effects. The player state implements it.
type Target interface {
	AddSpeedMultiplier(v float64)
	AddJumpMultiplier(v float64)
	SetMaxJumps(n int)
	MulSunResist(f float64)
	MulElectricResist(f float64)
	EnableCompanion()
}

// maxGrantDepth bounds wildcard chains in data-defined catalogs.
const maxGrantDepth = 8

type Engine struct {
	catalog *Catalog
	src     rng.Source
}

func NewEngine(c *Catalog, src rng.Source) *Engine {
	return &Engine{catalog: c, src: src}
}

func (e *Engine) Catalog() *Catalog { return e.catalog }

func (e *Engine) draw() float64 {
	if e.src == nil {
		return 0
	}
	return e.src.Float64()
}

// Candidates lists every definition whose unlock predicate holds, in catalog order.
func (e *Engine) Candidates(owned *OwnedSet) []*Definition {
	var out []*Definition
	for _, d := range e.catalog.All() {
		if d.Eligible(owned) {
			out = append(out, d)
		}
	}
	return out
}

// Offer draws up to count distinct eligible definitions, weighted, without replacement.
func (e *Engine) Offer(owned *OwnedSet, count int) []*Definition {
	if count <= 0 {
		return nil
	}
	cands := e.Candidates(owned)
	picks := make([]*Definition, 0, count)
	for len(picks) < count && len(cands) > 0 {
		i := pickWeighted(cands, e.draw())
		picks = append(picks, cands[i])
		cands = append(cands[:i], cands[i+1:]...)
	}
	return picks
}

// pickWeighted walks cumulative positive weights and returns the first index whose running
// total reaches u*total. With no positive weight left it falls back to a uniform index.
func pickWeighted(cands []*Definition, u float64) int {
	total := 0.0
	last := -1
	for i, d := range cands {
		if d.Weight > 0 {
			total += d.Weight
			last = i
		}
	}
	if total <= 0 {
		i := int(u * float64(len(cands)))
		if i >= len(cands) {
			i = len(cands) - 1
		}
		if i < 0 {
			i = 0
		}
		return i
	}
	target := u * total
	acc := 0.0
	for i, d := range cands {
		if d.Weight <= 0 {
			continue
		}
		acc += d.Weight
		if acc >= target {
			return i
		}
	}
	return last
}

// Commit applies def to the target and records it. Wildcard grants are applied and recorded
// before the wildcard itself. The returned slice lists granted definitions, if any.
func (e *Engine) Commit(def *Definition, target Target, owned *OwnedSet) []*Definition {
	var granted []*Definition
	e.commit(def, target, owned, 0, &granted)
	return granted
}

func (e *Engine) commit(def *Definition, target Target, owned *OwnedSet, depth int, granted *[]*Definition) {
	if def == nil {
		return
	}
	if def.Effect.Kind == EffectWildcard {
		if depth < maxGrantDepth {
			if g := e.GrantByTier(def.Effect.Tier, owned); g != nil {
				*granted = append(*granted, g)
				e.commit(g, target, owned, depth+1, granted)
			}
		}
	} else {
		apply(def.Effect, target)
	}
	owned.Add(def)
}

// GrantByTier picks uniformly among eligible, unowned definitions of the tier. It returns nil
// when none remain.
func (e *Engine) GrantByTier(tier Tier, owned *OwnedSet) *Definition {
	var cands []*Definition
	for _, d := range e.catalog.All() {
		if d.Tier == tier && !owned.Has(d) && d.Eligible(owned) {
			cands = append(cands, d)
		}
	}
	if len(cands) == 0 {
		return nil
	}
	return cands[rng.IntRange(e.src, 0, len(cands)-1)]
}

func apply(eff Effect, t Target) {
	if t == nil {
		return
	}
	switch eff.Kind {
	case EffectSpeed:
		t.AddSpeedMultiplier(eff.Amount)
	case EffectJump:
		t.AddJumpMultiplier(eff.Amount)
	case EffectMaxJumps:
		t.SetMaxJumps(eff.Jumps)
	case EffectSunResist:
		t.MulSunResist(eff.Amount)
	case EffectElectricResist:
		t.MulElectricResist(eff.Amount)
	case EffectCompanion:
		t.EnableCompanion()
	}
}
