package director

import (
	"math"

	"skyshade.ai/internal/sim/curve"
	"skyshade.ai/internal/sim/event"
)

type Phase uint8

const (
	PhaseCalm Phase = iota
	PhaseHazard
)

func (p Phase) String() string {
	if p == PhaseHazard {
		return "HAZARD"
	}
	return "CALM"
}

const minDwell = 0.1

type Config struct {
	CalmSeconds           float64 `yaml:"calm_seconds"`
	HazardSeconds         float64 `yaml:"hazard_seconds"`
	DifficultyFullSeconds float64 `yaml:"difficulty_full_seconds"`

	GraceSeconds  float64 `yaml:"grace_seconds"`
	DamageCadence float64 `yaml:"damage_cadence"`
	SunDamageBase float64 `yaml:"sun_damage_base"`
	SunDamageStep float64 `yaml:"sun_damage_step"`

	XPStart float64 `yaml:"xp_start"`
	XPEnd   float64 `yaml:"xp_end"`

	CloudSpeedMin  float64 `yaml:"cloud_speed_min"`
	CloudSpeedMax  float64 `yaml:"cloud_speed_max"`
	CloudSpeedRate float64 `yaml:"cloud_speed_rate"`
}

func DefaultConfig() Config {
	return Config{
		CalmSeconds:           40,
		HazardSeconds:         20,
		DifficultyFullSeconds: 240,
		GraceSeconds:          2,
		DamageCadence:         1,
		SunDamageBase:         5,
		SunDamageStep:         2,
		XPStart:               40,
		XPEnd:                 5,
		CloudSpeedMin:         1,
		CloudSpeedMax:         5,
		CloudSpeedRate:        0.01,
	}
}

// Scheduler is what the orchestrator starts and stops on phase changes.
type Scheduler interface {
	Start()
	Stop()
}

type HazardHooks interface {
	OnHazardPhaseEnter()
	OnHazardPhaseExit()
}

type SpeedSetter interface {
	SetSpeed(v float64)
}

type ShadeQuery interface {
	ShadeCount() int
}

type DamageSink interface {
	ApplyDamage(amount float64)
}

// Deps are the collaborators. Any of them may be nil.
type Deps struct {
	Calm       Scheduler
	Hazard     Scheduler
	Threats    Scheduler
	Hooks      HazardHooks
	CloudSpeed SpeedSetter
	Shade      ShadeQuery
	Damage     DamageSink
	Events     event.Sink
}

// Missing names the collaborators that were not wired, for the caller to log.
func (d Deps) Missing() []string {
	var out []string
	if d.Calm == nil {
		out = append(out, "calm scheduler")
	}
	if d.Hazard == nil {
		out = append(out, "hazard scheduler")
	}
	if d.Threats == nil {
		out = append(out, "threat scheduler")
	}
	if d.Hooks == nil {
		out = append(out, "hazard hooks")
	}
	if d.CloudSpeed == nil {
		out = append(out, "cloud speed")
	}
	if d.Shade == nil {
		out = append(out, "shade query")
	}
	if d.Damage == nil {
		out = append(out, "damage sink")
	}
	return out
}

// Orchestrator owns the calm/hazard cycle and the difficulty ramp. Each tick it advances the
// timers, handles transitions, tracks exposure, then pushes every binding.
type Orchestrator struct {
	cfg      Config
	deps     Deps
	bindings []Binding

	started    bool
	phase      Phase
	phaseIndex int
	phaseTime  float64
	elapsed    float64
	ramp       float64
	exposure   Exposure
}

func New(cfg Config, deps Deps, bindings []Binding) *Orchestrator {
	if cfg.CalmSeconds < minDwell {
		cfg.CalmSeconds = minDwell
	}
	if cfg.HazardSeconds < minDwell {
		cfg.HazardSeconds = minDwell
	}
	return &Orchestrator{
		cfg:        cfg,
		deps:       deps,
		bindings:   bindings,
		phaseIndex: 1,
		exposure:   Exposure{Grace: cfg.GraceSeconds, Cadence: cfg.DamageCadence},
	}
}

// Start enters the first calm phase and performs the initial parameter push.
func (o *Orchestrator) Start() {
	if o.started {
		return
	}
	o.started = true
	o.phase = PhaseCalm
	o.phaseTime = 0
	o.enterCalm()
	o.ramp = o.computeRamp()
	o.pushAll()
}

// Stop halts every scheduler. The orchestrator can not be restarted.
func (o *Orchestrator) Stop() {
	if o.deps.Calm != nil {
		o.deps.Calm.Stop()
	}
	if o.deps.Hazard != nil {
		o.deps.Hazard.Stop()
	}
	if o.deps.Threats != nil {
		o.deps.Threats.Stop()
	}
	o.started = false
}

func (o *Orchestrator) Tick(dt float64) {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	if dt == 0 || !o.started {
		return
	}
	o.elapsed += dt
	o.phaseTime += dt
	transitioned := false
	for o.phaseTime >= o.dwell() {
		o.phaseTime -= o.dwell()
		o.transition()
		transitioned = true
	}

	if o.phase == PhaseCalm {
		o.pushCloudSpeed()
		calmDt := dt
		if transitioned {
			calmDt = o.phaseTime
		}
		o.trackExposure(calmDt)
	}

	o.ramp = o.computeRamp()
	o.pushAll()
}

func (o *Orchestrator) dwell() float64 {
	if o.phase == PhaseHazard {
		return o.cfg.HazardSeconds
	}
	return o.cfg.CalmSeconds
}

func (o *Orchestrator) transition() {
	if o.phase == PhaseCalm {
		o.phase = PhaseHazard
		if o.deps.Calm != nil {
			o.deps.Calm.Stop()
		}
		if o.deps.Threats != nil {
			o.deps.Threats.Stop()
		}
		o.exposure.Reset()
		if o.deps.Hazard != nil {
			o.deps.Hazard.Start()
		}
		if o.deps.Hooks != nil {
			o.deps.Hooks.OnHazardPhaseEnter()
		}
		o.emit(event.Event{Kind: event.KindPhaseHazard, Value: float64(o.phaseIndex)})
		return
	}
	if o.deps.Hazard != nil {
		o.deps.Hazard.Stop()
	}
	if o.deps.Hooks != nil {
		o.deps.Hooks.OnHazardPhaseExit()
	}
	o.phaseIndex++
	o.phase = PhaseCalm
	o.enterCalm()
}

func (o *Orchestrator) enterCalm() {
	o.exposure.Reset()
	if o.deps.CloudSpeed != nil {
		o.deps.CloudSpeed.SetSpeed(o.cfg.CloudSpeedMin)
	}
	if o.deps.Calm != nil {
		o.deps.Calm.Start()
	}
	if o.deps.Threats != nil {
		o.deps.Threats.Start()
	}
	o.emit(event.Event{Kind: event.KindPhaseCalm, Value: float64(o.phaseIndex)})
}

func (o *Orchestrator) pushCloudSpeed() {
	if o.deps.CloudSpeed == nil {
		return
	}
	v := o.cfg.CloudSpeedMin + o.phaseTime*o.cfg.CloudSpeedRate
	if o.cfg.CloudSpeedMax > 0 && v > o.cfg.CloudSpeedMax {
		v = o.cfg.CloudSpeedMax
	}
	o.deps.CloudSpeed.SetSpeed(v)
}

func (o *Orchestrator) trackExposure(dt float64) {
	shade := 0
	if o.deps.Shade != nil {
		shade = o.deps.Shade.ShadeCount()
	}
	pulses := o.exposure.Tick(dt, o.IsExposed(shade))
	for i := 0; i < pulses; i++ {
		if o.deps.Damage != nil {
			o.deps.Damage.ApplyDamage(o.SunDamage())
		}
	}
}

func (o *Orchestrator) computeRamp() float64 {
	if o.cfg.DifficultyFullSeconds <= 0 {
		return 1
	}
	return curve.Clamp01(o.elapsed / o.cfg.DifficultyFullSeconds)
}

func (o *Orchestrator) pushAll() {
	for i := range o.bindings {
		o.bindings[i].push(o.ramp)
	}
}

func (o *Orchestrator) emit(e event.Event) {
	if o.deps.Events != nil {
		o.deps.Events.Emit(e)
	}
}

// IsExposed reports whether no shade volume covers the avatar.
func (o *Orchestrator) IsExposed(shadeCount int) bool { return shadeCount == 0 }

// SunDamage is the per-pulse exposure damage for the current phase index.
func (o *Orchestrator) SunDamage() float64 {
	return o.cfg.SunDamageBase + float64(o.phaseIndex-1)*o.cfg.SunDamageStep
}

// XPReward is the experience one pickup grants at the current ramp.
func (o *Orchestrator) XPReward() int {
	return int(math.Round(curve.Lerp(o.cfg.XPStart, o.cfg.XPEnd, o.ramp)))
}

// Value returns the last pushed value of a bound parameter.
func (o *Orchestrator) Value(param string) (float64, bool) {
	for i := range o.bindings {
		if o.bindings[i].Param == param {
			return o.bindings[i].last, true
		}
	}
	return 0, false
}

func (o *Orchestrator) Phase() Phase        { return o.phase }
func (o *Orchestrator) PhaseIndex() int     { return o.phaseIndex }
func (o *Orchestrator) PhaseTime() float64  { return o.phaseTime }
func (o *Orchestrator) Elapsed() float64    { return o.elapsed }
func (o *Orchestrator) Ramp() float64       { return o.ramp }
func (o *Orchestrator) Started() bool       { return o.started }
func (o *Orchestrator) Raining() bool       { return o.started && o.phase == PhaseHazard }
func (o *Orchestrator) Heat() float64       { return o.exposure.Heat() }
func (o *Orchestrator) Exposure() *Exposure { return &o.exposure }
