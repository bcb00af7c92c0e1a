package rng

import "testing"

func TestSeededIsReproducible(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 100; i++ {
		x, y := a.Float64(), b.Float64()
		if x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
		if x < 0 || x >= 1 {
			t.Fatalf("draw %d out of range: %v", i, x)
		}
	}
}

func TestIntRangeInclusive(t *testing.T) {
	seq := &Sequence{Values: []float64{0, 0.5, 0.999999}}
	got := []int{IntRange(seq, 2, 4), IntRange(seq, 2, 4), IntRange(seq, 2, 4)}
	want := []int{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IntRange: got %v want %v", got, want)
		}
	}
}

func TestRangeSwapsAndNilSource(t *testing.T) {
	seq := &Sequence{Values: []float64{0.5}}
	if v := Range(seq, 4, 2); v != 3 {
		t.Fatalf("Range(4,2) = %v, want 3", v)
	}
	if v := Range(nil, 1, 8); v != 1 {
		t.Fatalf("nil source should yield lo, got %v", v)
	}
	if Chance(nil, 1) {
		t.Fatalf("nil source should never fire a chance")
	}
}
