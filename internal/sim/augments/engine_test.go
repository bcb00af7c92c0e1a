package augments

import (
	"math"
	"testing"

	"skyshade.ai/internal/sim/rng"
)

type fakeTarget struct {
	speed, jump     float64
	maxJumps        int
	sunRes, elecRes float64
	companion       bool
}

func newFakeTarget() *fakeTarget { return &fakeTarget{maxJumps: 1, sunRes: 1, elecRes: 1} }

func (f *fakeTarget) AddSpeedMultiplier(v float64) { f.speed += v }
func (f *fakeTarget) AddJumpMultiplier(v float64)  { f.jump += v }
func (f *fakeTarget) SetMaxJumps(n int)            { f.maxJumps = n }
func (f *fakeTarget) MulSunResist(v float64)       { f.sunRes *= v }
func (f *fakeTarget) MulElectricResist(v float64)  { f.elecRes *= v }
func (f *fakeTarget) EnableCompanion()             { f.companion = true }

func mustCatalog(t *testing.T, defs []Definition) *Catalog {
	t.Helper()
	c, err := NewCatalog(defs)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestOfferDistinctAndEligible(t *testing.T) {
	e := NewEngine(DefaultCatalog(), rng.NewSeeded(1))
	owned := NewOwnedSet()
	for i := 0; i < 200; i++ {
		offer := e.Offer(owned, 3)
		if len(offer) != 3 {
			t.Fatalf("offer %d returned %d picks", i, len(offer))
		}
		seen := map[*Definition]bool{}
		for _, d := range offer {
			if seen[d] {
				t.Fatalf("offer %d repeated %s", i, d.ID)
			}
			seen[d] = true
			if !d.Eligible(owned) {
				t.Fatalf("offer %d included ineligible %s", i, d.ID)
			}
			if d.ID == "triple_jump" || d.ID == "quadra_jump" {
				t.Fatalf("prerequisite-gated %s offered with nothing owned", d.ID)
			}
		}
	}
}

func TestOfferZeroWeightNeverBeatsPositive(t *testing.T) {
	c := mustCatalog(t, []Definition{
		{ID: "a", Tier: TierBronze, Weight: 10, Effect: SpeedBoost(0.1)},
		{ID: "b", Tier: TierBronze, Weight: 0, Effect: SpeedBoost(0.1)},
	})
	for _, u := range []float64{0, 0.25, 0.5, 0.999999} {
		e := NewEngine(c, &rng.Sequence{Values: []float64{u}})
		got := e.Offer(NewOwnedSet(), 1)
		if len(got) != 1 || got[0].ID != "a" {
			t.Fatalf("u=%v picked %+v", u, got)
		}
	}
	e := NewEngine(c, &rng.Sequence{Values: []float64{0.9}})
	got := e.Offer(NewOwnedSet(), 2)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("zero-weight entry should only come after positive ones: %+v", got)
	}
}

func TestOfferDeterministicWalk(t *testing.T) {
	c := mustCatalog(t, []Definition{
		{ID: "a", Weight: 10, Effect: SpeedBoost(0.1)},
		{ID: "b", Weight: 10, Effect: SpeedBoost(0.1)},
		{ID: "c", Weight: 10, Effect: SpeedBoost(0.1)},
	})
	// 0.5*30 = 15 lands in b; then 0.5*20 = 10 lands exactly on a's boundary.
	e := NewEngine(c, &rng.Sequence{Values: []float64{0.5, 0.5}})
	got := e.Offer(NewOwnedSet(), 5)
	if len(got) != 3 || got[0].ID != "b" || got[1].ID != "a" || got[2].ID != "c" {
		t.Fatalf("unexpected order %v", ids(got))
	}
}

func TestOfferEmptyCatalog(t *testing.T) {
	e := NewEngine(mustCatalog(t, nil), rng.NewSeeded(3))
	if got := e.Offer(NewOwnedSet(), 3); len(got) != 0 {
		t.Fatalf("empty catalog offered %v", ids(got))
	}
	if e.Offer(NewOwnedSet(), 0) != nil {
		t.Fatalf("count 0 should offer nothing")
	}
}

func TestOfferFrequencyMatchesWeights(t *testing.T) {
	c := mustCatalog(t, []Definition{
		{ID: "w1", Weight: 1, Effect: SpeedBoost(0)},
		{ID: "w2", Weight: 2, Effect: SpeedBoost(0)},
		{ID: "w3", Weight: 3, Effect: SpeedBoost(0)},
		{ID: "w4", Weight: 4, Effect: SpeedBoost(0)},
	})
	e := NewEngine(c, rng.NewSeeded(20240601))
	const trials = 100000
	hits := map[string]int{}
	for i := 0; i < trials; i++ {
		hits[e.Offer(nil, 1)[0].ID]++
	}
	for id, w := range map[string]float64{"w1": 0.1, "w2": 0.2, "w3": 0.3, "w4": 0.4} {
		got := float64(hits[id]) / trials
		if math.Abs(got-w) > 0.01 {
			t.Fatalf("%s frequency %.4f, want %.2f +/- 0.01", id, got, w)
		}
	}
}

func TestPrerequisiteChain(t *testing.T) {
	cat := DefaultCatalog()
	e := NewEngine(cat, rng.NewSeeded(9))
	owned := NewOwnedSet()
	target := newFakeTarget()
	triple, _ := cat.ByID("triple_jump")
	double, _ := cat.ByID("double_jump")
	if triple.Eligible(owned) {
		t.Fatalf("triple jump eligible without double jump")
	}
	e.Commit(double, target, owned)
	if !triple.Eligible(owned) {
		t.Fatalf("triple jump should unlock right after double jump")
	}
	if double.Eligible(owned) {
		t.Fatalf("owned double jump still eligible")
	}
	e.Commit(triple, target, owned)
	if target.maxJumps != 3 {
		t.Fatalf("maxJumps = %d", target.maxJumps)
	}
}

func TestExclusivityAcrossOffers(t *testing.T) {
	cat := DefaultCatalog()
	e := NewEngine(cat, rng.NewSeeded(11))
	owned := NewOwnedSet()
	target := newFakeTarget()
	committed := map[*Definition]bool{}
	for round := 0; round < 40; round++ {
		offer := e.Offer(owned, 3)
		for _, d := range offer {
			if committed[d] {
				t.Fatalf("round %d re-offered %s", round, d.ID)
			}
		}
		if len(offer) == 0 {
			break
		}
		granted := e.Commit(offer[0], target, owned)
		committed[offer[0]] = true
		for _, g := range granted {
			committed[g] = true
		}
	}
	if len(e.Candidates(owned)) != 0 {
		t.Fatalf("catalog should be exhausted, left %v", ids(e.Candidates(owned)))
	}
}

func TestWildcardGrantsBeforeItself(t *testing.T) {
	c := mustCatalog(t, []Definition{
		{ID: "dice", Tier: TierBronze, Weight: 1, Effect: Wildcard(TierSilver)},
		{ID: "boots", Tier: TierSilver, Weight: 1, Effect: SpeedBoost(0.2)},
	})
	e := NewEngine(c, &rng.Sequence{Values: []float64{0}})
	owned := NewOwnedSet()
	target := newFakeTarget()
	dice, _ := c.ByID("dice")
	granted := e.Commit(dice, target, owned)
	if len(granted) != 1 || granted[0].ID != "boots" {
		t.Fatalf("granted %v", ids(granted))
	}
	if got := owned.IDs(); len(got) != 2 || got[0] != "boots" || got[1] != "dice" {
		t.Fatalf("owned order %v", got)
	}
	if target.speed != 0.2 {
		t.Fatalf("granted effect not applied, speed=%v", target.speed)
	}
	if e.GrantByTier(TierSilver, owned) != nil {
		t.Fatalf("owned boots granted again")
	}
	// With nothing left in the tier the wildcard is a no-op apart from ownership.
	owned2 := NewOwnedSet()
	boots, _ := c.ByID("boots")
	owned2.Add(boots)
	if g := e.Commit(dice, newFakeTarget(), owned2); len(g) != 0 || !owned2.Has(dice) {
		t.Fatalf("empty wildcard: granted=%v owned=%v", ids(g), owned2.IDs())
	}
}

func TestDoubleCommitIsNotDeduplicated(t *testing.T) {
	cat := DefaultCatalog()
	e := NewEngine(cat, nil)
	owned := NewOwnedSet()
	target := newFakeTarget()
	boots, _ := cat.ByID("old_speed_boots")
	e.Commit(boots, target, owned)
	e.Commit(boots, target, owned)
	if owned.Count(boots) != 2 || owned.Len() != 2 || math.Abs(target.speed-0.2) > 1e-12 {
		t.Fatalf("double commit: count=%d speed=%v", owned.Count(boots), target.speed)
	}
}

func TestAlwaysUnlockStaysAvailable(t *testing.T) {
	c := mustCatalog(t, []Definition{{ID: "gem", Weight: 1, Effect: SpeedBoost(0.01), Unlock: Always()}})
	e := NewEngine(c, nil)
	owned := NewOwnedSet()
	gem, _ := c.ByID("gem")
	e.Commit(gem, nil, owned)
	if got := e.Offer(owned, 1); len(got) != 1 {
		t.Fatalf("always-available entry vanished after commit")
	}
	if e.GrantByTier(TierBronze, owned) != nil {
		t.Fatalf("wildcard grants must skip owned entries")
	}
}

func TestCatalogValidation(t *testing.T) {
	bad := [][]Definition{
		{{ID: ""}},
		{{ID: "a"}, {ID: "a"}},
		{{ID: "a", Weight: -1}},
		{{ID: "a", Unlock: Requires("ghost")}},
		{{ID: "a", Unlock: Requires("a")}},
		{{ID: "a", Tier: TierGold, Effect: Wildcard(TierGold)}},
		{{ID: "a", Unlock: Unlock{Kind: "sometimes"}}},
	}
	for i, defs := range bad {
		if _, err := NewCatalog(defs); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	if DefaultCatalog().Len() != 13 {
		t.Fatalf("default catalog size = %d", DefaultCatalog().Len())
	}
}

func TestTierText(t *testing.T) {
	for _, s := range []string{"bronze", "silver", "gold", "unique"} {
		var tr Tier
		if err := tr.UnmarshalText([]byte(s)); err != nil || tr.String() != s {
			t.Fatalf("tier %q: %v %v", s, tr, err)
		}
	}
	if tr, err := ParseTier("Special"); err != nil || tr != TierUnique {
		t.Fatalf("special should map to unique: %v %v", tr, err)
	}
	if _, err := ParseTier("mythic"); err == nil {
		t.Fatalf("unknown tier accepted")
	}
	if !(TierBronze < TierSilver && TierSilver < TierGold && TierGold < TierUnique) {
		t.Fatalf("tier order broken")
	}
}

func ids(ds []*Definition) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.ID)
	}
	return out
}
