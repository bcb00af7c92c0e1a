package spawners

import (
	"math"
	"testing"

	"skyshade.ai/internal/sim/event"
	"skyshade.ai/internal/sim/rng"
)

func testStrikes(rec *event.Recorder, maxConcurrent int) *Strikes {
	cfg := DefaultStrikeConfig()
	cfg.Interval = Interval{Min: 0.125, Max: 0.25}
	cfg.MaxConcurrent = maxConcurrent
	return NewStrikes(cfg, &rng.Sequence{Values: []float64{0}}, rec)
}

func TestStrikeLifecycle(t *testing.T) {
	var rec event.Recorder
	s := testStrikes(&rec, 1)
	s.Start()
	s.Tick(0.125)
	if s.Active() != 1 || rec.Count(event.KindStrikeWarn) != 1 {
		t.Fatalf("expected one warning strike, active=%d", s.Active())
	}
	st := s.Snapshot()[0]
	if st.Stage != StageWarning || !st.Visible || st.X != -6 {
		t.Fatalf("unexpected launch state %+v", st)
	}

	s.Tick(0.0625)
	if s.Snapshot()[0].Visible {
		t.Fatalf("warning did not blink off after one step")
	}

	// Parameter changes never touch an in-flight strike.
	s.SetParameter(ParamWarnSeconds, 2)
	if got := s.Snapshot()[0].Warn; got != 0.6 {
		t.Fatalf("in-flight warn changed to %v", got)
	}

	s.Tick(0.5625)
	if got := s.Snapshot()[0].Stage; got != StageStriking {
		t.Fatalf("stage = %v, want STRIKE", got)
	}
	if rec.Count(event.KindStrikeHit) != 1 {
		t.Fatalf("missing strike hit event")
	}
	s.Tick(0.125)
	if rec.Count(event.KindStrikeRelease) != 1 {
		t.Fatalf("strike was not released after warn+strike")
	}
}

func TestStrikeCeilingSkipsDecisions(t *testing.T) {
	var rec event.Recorder
	s := testStrikes(&rec, 1)
	s.SetWarnSeconds(2)
	s.Start()
	for i := 0; i < 8; i++ {
		s.Tick(0.125)
	}
	if s.Active() != 1 || rec.Count(event.KindStrikeWarn) != 1 {
		t.Fatalf("ceiling not enforced: active=%d warns=%d", s.Active(), rec.Count(event.KindStrikeWarn))
	}
	s.SetParameter(ParamMaxConcurrent, 3)
	for i := 0; i < 4; i++ {
		s.Tick(0.125)
	}
	if s.Active() != 3 {
		t.Fatalf("raised ceiling should apply to the next decisions, active=%d", s.Active())
	}
}

func TestStrikeIntervalChangeKeepsPendingWait(t *testing.T) {
	var rec event.Recorder
	cfg := DefaultStrikeConfig()
	cfg.Interval = Interval{Min: 3.5, Max: 4.5}
	cfg.MaxConcurrent = 5
	s := NewStrikes(cfg, &rng.Sequence{Values: []float64{0.5}}, &rec)
	s.Start() // waits 4s

	for i := 0; i < 4; i++ {
		s.Tick(0.5)
	}
	s.SetParameter(ParamIntervalMin, 0.05)
	s.SetParameter(ParamIntervalMax, 0.1)
	if iv := s.Interval(); iv.Min != 0.05 || iv.Max != 0.1 {
		t.Fatalf("interval=%+v", iv)
	}

	for i := 0; i < 3; i++ {
		s.Tick(0.5)
		if n := rec.Count(event.KindStrikeWarn); n != 0 {
			t.Fatalf("pending wait was shortened: %d launches at %.1fs", n, 2.5+0.5*float64(i))
		}
	}
	s.Tick(0.5)
	if n := rec.Count(event.KindStrikeWarn); n != 1 {
		t.Fatalf("expected the launch at 4s, got %d", n)
	}

	// The next wait is drawn from the new bounds: 0.075s.
	s.Tick(0.05)
	if n := rec.Count(event.KindStrikeWarn); n != 1 {
		t.Fatalf("launched before the new wait elapsed")
	}
	s.Tick(0.05)
	if n := rec.Count(event.KindStrikeWarn); n != 2 {
		t.Fatalf("next wait did not use the new bounds, launches=%d", n)
	}
}

func TestStrikeStopDrainsEveryStage(t *testing.T) {
	var rec event.Recorder
	s := testStrikes(&rec, 3)
	s.Start()
	s.Tick(0.125)
	s.Tick(0.125)
	s.Tick(0.5)
	if s.Active() < 2 {
		t.Fatalf("expected several live strikes, got %d", s.Active())
	}
	s.Stop()
	if s.Active() != 0 || s.Running() {
		t.Fatalf("stop left active=%d running=%v", s.Active(), s.Running())
	}
	s.Tick(5)
	if s.Active() != 0 {
		t.Fatalf("stopped scheduler launched")
	}
	s.Stop()
}

func TestStrikeParameterClamps(t *testing.T) {
	s := testStrikes(new(event.Recorder), 3)
	s.SetParameter(ParamWarnSeconds, 5)
	s.SetParameter(ParamStrikeSeconds, 0)
	s.SetParameter(ParamMaxConcurrent, 10.6)
	if s.WarnSeconds() != 2 || s.StrikeSeconds() != 0.05 || s.MaxConcurrent() != 10 {
		t.Fatalf("clamps: warn=%v strike=%v max=%v", s.WarnSeconds(), s.StrikeSeconds(), s.MaxConcurrent())
	}
	s.SetParameter(ParamMaxConcurrent, 0.2)
	s.SetParameter(ParamIntervalMin, 0)
	s.SetParameter(ParamIntervalMax, 0)
	iv := s.Interval()
	if s.MaxConcurrent() != 1 || iv.Min != 0.05 || iv.Max != 0.1 {
		t.Fatalf("clamps: max=%v interval=%+v", s.MaxConcurrent(), iv)
	}
	if s.SetParameter("nope", 1) {
		t.Fatalf("unknown parameter accepted")
	}
}

func TestHazardCuesFadeLights(t *testing.T) {
	var rec event.Recorder
	s := testStrikes(&rec, 3)
	s.OnHazardPhaseEnter()
	if rec.Count(event.KindOrnamentMove) != 4 || rec.Count(event.KindLightFade) != 2 {
		t.Fatalf("missing cues: %+v", rec.Events)
	}
	s.Tick(0.25)
	sun, global := s.Lights()
	if math.Abs(sun-0.5) > 1e-9 || math.Abs(global-0.55) > 1e-9 {
		t.Fatalf("half-way lights sun=%v global=%v", sun, global)
	}
	s.Tick(0.5)
	sun, global = s.Lights()
	if sun != 0 || global != 0.1 {
		t.Fatalf("final lights sun=%v global=%v", sun, global)
	}
	if s.Running() {
		t.Fatalf("cues must not start the timing loop")
	}
	s.OnHazardPhaseExit()
	s.Tick(1)
	if sun, global = s.Lights(); sun != 1 || global != 1 {
		t.Fatalf("restored lights sun=%v global=%v", sun, global)
	}
}
