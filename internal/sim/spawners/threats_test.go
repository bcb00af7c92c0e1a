package spawners

import (
	"testing"

	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/rng"
)

type stubGate struct {
	phase int
	rain  bool
}

func (g *stubGate) PhaseIndex() int { return g.phase }
func (g *stubGate) Raining() bool   { return g.rain }

func TestThreatsNeverSpawnAtPhaseZero(t *testing.T) {
	var rec event.Recorder
	th := NewThreats(DefaultThreatConfig(), &stubGate{phase: 0}, rng.NewSeeded(7), &rec)
	th.Start()
	for i := 0; i < 10000; i++ {
		th.Tick(0.1)
	}
	if th.Active() != 0 || rec.Count(event.KindThreatSpawn) != 0 {
		t.Fatalf("phase 0 spawned %d threats", rec.Count(event.KindThreatSpawn))
	}
}

func TestThreatWindowThenAwaitRain(t *testing.T) {
	var rec event.Recorder
	gate := &stubGate{phase: 3}
	th := NewThreats(DefaultThreatConfig(), gate, &rng.Sequence{Values: []float64{0}}, &rec)
	th.Start()

	th.Tick(0.5) // opens a window of 2 spawns, first wait 3s
	th.Tick(3)
	if th.Active() != 1 {
		t.Fatalf("expected first spawn, active=%d", th.Active())
	}
	first := th.Snapshot()[0]
	if first.Dir != -1 || first.X != 12 || first.Y != -1 || first.Speed != 4.8 {
		t.Fatalf("unexpected launch params %+v", first)
	}
	th.Tick(3)
	if rec.Count(event.KindThreatSpawn) != 2 {
		t.Fatalf("expected two spawns in the window, got %d", rec.Count(event.KindThreatSpawn))
	}
	th.Tick(10)
	if th.Active() != 0 || rec.Count(event.KindThreatExit) != 2 {
		t.Fatalf("threats should cross the far edge and be destroyed, active=%d", th.Active())
	}
	for i := 0; i < 100; i++ {
		th.Tick(1)
	}
	if rec.Count(event.KindThreatSpawn) != 2 {
		t.Fatalf("spawned again before rain")
	}

	gate.rain = true
	th.Tick(1)
	th.Tick(1)
	if rec.Count(event.KindThreatSpawn) != 2 {
		t.Fatalf("spawned while raining")
	}
	gate.rain = false
	th.Tick(1)
	th.Tick(3)
	if rec.Count(event.KindThreatSpawn) != 3 {
		t.Fatalf("next window did not open after rain, spawns=%d", rec.Count(event.KindThreatSpawn))
	}
}

func TestThreatRainClosesOpenWindow(t *testing.T) {
	gate := &stubGate{phase: 2}
	th := NewThreats(DefaultThreatConfig(), gate, &rng.Sequence{Values: []float64{0}}, nil)
	th.Start()
	th.Tick(0.5)
	gate.rain = true
	th.Tick(5)
	gate.rain = false
	th.Tick(5)
	if th.Active() != 0 {
		t.Fatalf("window should have been abandoned when rain began")
	}
}

func TestThreatCountAndSpeedCurves(t *testing.T) {
	th := NewThreats(DefaultThreatConfig(), nil, nil, nil)
	cases := []struct{ phase, lo, hi int }{
		{1, 1, 3},
		{2, 1, 3},
		{4, 3, 5},
		{8, 7, 8},
		{20, 8, 8},
	}
	for _, c := range cases {
		lo, hi := th.WindowRange(c.phase)
		if lo != c.lo || hi != c.hi {
			t.Fatalf("phase %d: got [%d,%d] want [%d,%d]", c.phase, lo, hi, c.lo, c.hi)
		}
	}
	if v := th.SpeedFor(1); v != 4 {
		t.Fatalf("speed at phase 1 = %v", v)
	}
	if v := th.SpeedFor(50); v != 8 {
		t.Fatalf("speed should cap at 2x base, got %v", v)
	}
}

func TestThreatStopAndDestroy(t *testing.T) {
	gate := &stubGate{phase: 5}
	th := NewThreats(DefaultThreatConfig(), gate, &rng.Sequence{Values: []float64{0}}, nil)
	th.Start()
	th.Tick(0.5)
	th.Tick(3)
	th.Tick(3)
	if th.Active() != 2 {
		t.Fatalf("active=%d", th.Active())
	}
	id := th.Snapshot()[1].ID
	if !th.Destroy(id) || th.Destroy(id) {
		t.Fatalf("destroy should succeed exactly once")
	}
	th.Stop()
	if th.Active() != 0 || th.Running() {
		t.Fatalf("stop left active=%d running=%v", th.Active(), th.Running())
	}
}
