package player

import (
	"math"

	"skyshade.ai/internal/sim/curve"
)

// Source names where damage came from; each source has its own resistance.
type Source string

const (
	SourceSun      Source = "sun"
	SourceElectric Source = "electric"
	SourceContact  Source = "contact"
)

type Config struct {
	MaxHP        int     `yaml:"max_hp"`
	StartMaxExp  int     `yaml:"start_max_exp"`
	MaxJumps     int     `yaml:"max_jumps"`
	RegenPerSec  float64 `yaml:"regen_per_sec"`
	MoveSpeed    float64 `yaml:"move_speed"`
	StrikeDamage int     `yaml:"strike_damage"`
	ThreatDamage int     `yaml:"threat_damage"`
	HealAmount   int     `yaml:"heal_amount"`
}

func DefaultConfig() Config {
	return Config{
		MaxHP:        100,
		StartMaxExp:  100,
		MaxJumps:     2,
		RegenPerSec:  0,
		MoveSpeed:    5,
		StrikeDamage: 50,
		ThreatDamage: 10,
		HealAmount:   10,
	}
}

// State is the avatar's stats. It is mutated only from the session tick.
type State struct {
	HP     int
	MaxHP  int
	Level  int
	Exp    int
	MaxExp int

	SpeedMul  float64
	JumpMul   float64
	MaxJumps  int
	SunRes    float64
	ElecRes   float64
	Companion bool

	X, Y float64

	regenPerSec float64
	regenAcc    float64
}

func New(cfg Config) *State {
	if cfg.MaxHP <= 0 {
		cfg.MaxHP = 100
	}
	if cfg.StartMaxExp <= 0 {
		cfg.StartMaxExp = 100
	}
	return &State{
		HP:          cfg.MaxHP,
		MaxHP:       cfg.MaxHP,
		Level:       1,
		MaxExp:      cfg.StartMaxExp,
		SpeedMul:    1,
		JumpMul:     1,
		MaxJumps:    cfg.MaxJumps,
		SunRes:      1,
		ElecRes:     1,
		regenPerSec: cfg.RegenPerSec,
	}
}

func (s *State) Alive() bool { return s.HP > 0 }

// ApplyDamage scales amount by the source's resistance, rounding up, and returns what was taken.
func (s *State) ApplyDamage(src Source, amount float64) int {
	if amount <= 0 || !s.Alive() {
		return 0
	}
	res := 1.0
	switch src {
	case SourceSun:
		res = s.SunRes
	case SourceElectric:
		res = s.ElecRes
	}
	dmg := int(math.Ceil(amount*res - 1e-9))
	if dmg <= 0 {
		return 0
	}
	if dmg > s.HP {
		dmg = s.HP
	}
	s.HP -= dmg
	return dmg
}

func (s *State) Heal(n int) int {
	if n <= 0 || !s.Alive() {
		return 0
	}
	if s.HP+n > s.MaxHP {
		n = s.MaxHP - s.HP
	}
	s.HP += n
	return n
}

// Regen accumulates fractional healing and applies whole points.
func (s *State) Regen(dt float64) int {
	if s.regenPerSec <= 0 || dt <= 0 || !s.Alive() {
		return 0
	}
	s.regenAcc += s.regenPerSec * dt
	whole := int(s.regenAcc)
	if whole <= 0 {
		return 0
	}
	s.regenAcc -= float64(whole)
	return s.Heal(whole)
}

// GainExp adds experience and returns the number of levels gained.
func (s *State) GainExp(n int) int {
	if n <= 0 {
		return 0
	}
	s.Exp += n
	levels := 0
	for s.MaxExp > 0 && s.Exp >= s.MaxExp {
		s.Exp -= s.MaxExp
		s.Level++
		s.MaxExp *= 2
		levels++
	}
	return levels
}

func (s *State) AddSpeedMultiplier(v float64) { s.SpeedMul += v }
func (s *State) AddJumpMultiplier(v float64)  { s.JumpMul += v }
func (s *State) SetMaxJumps(n int)            { s.MaxJumps = n }
func (s *State) MulSunResist(f float64)       { s.SunRes = curve.Clamp01(s.SunRes * f) }
func (s *State) MulElectricResist(f float64)  { s.ElecRes = curve.Clamp01(s.ElecRes * f) }
func (s *State) EnableCompanion()             { s.Companion = true }
