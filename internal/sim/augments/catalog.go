package augments

import (
	"fmt"
	"strings"
)

// Tier orders augments by rarity: Bronze < Silver < Gold < Unique.
type Tier int

const (
	TierBronze Tier = iota
	TierSilver
	TierGold
	TierUnique
)

var tierNames = [...]string{"bronze", "silver", "gold", "unique"}

func (t Tier) String() string {
	if t < TierBronze || t > TierUnique {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "special" {
		return TierUnique, nil
	}
	for i, n := range tierNames {
		if n == s {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type EffectKind string

const (
	EffectSpeed          EffectKind = "speed"
	EffectJump           EffectKind = "jump"
	EffectMaxJumps       EffectKind = "max_jumps"
	EffectSunResist      EffectKind = "sun_resist"
	EffectElectricResist EffectKind = "electric_resist"
	EffectCompanion      EffectKind = "companion"
	EffectWildcard       EffectKind = "wildcard"
)

// Effect is a closed tagged union; only the fields of its Kind are meaningful.
type Effect struct {
	Kind   EffectKind `json:"kind"`
	Amount float64    `json:"amount,omitempty"`
	Jumps  int        `json:"jumps,omitempty"`
	Tier   Tier       `json:"tier,omitempty"`
}

func SpeedBoost(v float64) Effect     { return Effect{Kind: EffectSpeed, Amount: v} }
func JumpBoost(v float64) Effect      { return Effect{Kind: EffectJump, Amount: v} }
func MaxJumps(n int) Effect           { return Effect{Kind: EffectMaxJumps, Jumps: n} }
func SunResist(f float64) Effect      { return Effect{Kind: EffectSunResist, Amount: f} }
func ElectricResist(f float64) Effect { return Effect{Kind: EffectElectricResist, Amount: f} }
func Companion() Effect               { return Effect{Kind: EffectCompanion} }
func Wildcard(t Tier) Effect          { return Effect{Kind: EffectWildcard, Tier: t} }

type UnlockKind string

const (
	UnlockAlways       UnlockKind = "always"
	UnlockExclusive    UnlockKind = "exclusive"
	UnlockPrerequisite UnlockKind = "prerequisite"
)

// Unlock decides whether a definition may be offered. A prerequisite unlock is also exclusive.
type Unlock struct {
	Kind     UnlockKind `json:"kind"`
	Requires string     `json:"requires,omitempty"`
}

func Always() Unlock            { return Unlock{Kind: UnlockAlways} }
func Exclusive() Unlock         { return Unlock{Kind: UnlockExclusive} }
func Requires(id string) Unlock { return Unlock{Kind: UnlockPrerequisite, Requires: id} }

// Definition is immutable once it belongs to a Catalog. Identity is the pointer.
type Definition struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Tier   Tier    `json:"tier"`
	Weight float64 `json:"weight"`
	Effect Effect  `json:"effect"`
	Unlock Unlock  `json:"unlock"`

	prereq *Definition
}

// Eligible evaluates the unlock predicate against an owned set.
func (d *Definition) Eligible(owned *OwnedSet) bool {
	switch d.Unlock.Kind {
	case UnlockAlways:
		return true
	case UnlockPrerequisite:
		return !owned.Has(d) && owned.Has(d.prereq)
	default:
		return !owned.Has(d)
	}
}

func (d *Definition) Prerequisite() *Definition { return d.prereq }

type Catalog struct {
	defs []*Definition
	byID map[string]*Definition
}

// NewCatalog copies defs and resolves prerequisites. An empty catalog is valid.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Definition, len(defs))}
	for i := range defs {
		d := defs[i]
		d.prereq = nil
		if d.ID == "" {
			return nil, fmt.Errorf("augment %d: empty id", i)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("augment %s: duplicate id", d.ID)
		}
		if d.Weight < 0 {
			return nil, fmt.Errorf("augment %s: negative weight", d.ID)
		}
		if d.Tier < TierBronze || d.Tier > TierUnique {
			return nil, fmt.Errorf("augment %s: bad tier %d", d.ID, int(d.Tier))
		}
		if d.Unlock.Kind == "" {
			d.Unlock.Kind = UnlockExclusive
		}
		if d.Effect.Kind == EffectWildcard && d.Effect.Tier == d.Tier {
			return nil, fmt.Errorf("augment %s: wildcard must target a different tier", d.ID)
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		p := &d
		c.defs = append(c.defs, p)
		c.byID[d.ID] = p
	}
	for _, d := range c.defs {
		switch d.Unlock.Kind {
		case UnlockAlways, UnlockExclusive:
		case UnlockPrerequisite:
			p, ok := c.byID[d.Unlock.Requires]
			if !ok {
				return nil, fmt.Errorf("augment %s: unknown prerequisite %q", d.ID, d.Unlock.Requires)
			}
			if p == d {
				return nil, fmt.Errorf("augment %s: requires itself", d.ID)
			}
			d.prereq = p
		default:
			return nil, fmt.Errorf("augment %s: unknown unlock %q", d.ID, d.Unlock.Kind)
		}
	}
	return c, nil
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []*Definition {
	if c == nil {
		return nil
	}
	return append([]*Definition(nil), c.defs...)
}

func (c *Catalog) ByID(id string) (*Definition, bool) {
	if c == nil {
		return nil, false
	}
	d, ok := c.byID[id]
	return d, ok
}
