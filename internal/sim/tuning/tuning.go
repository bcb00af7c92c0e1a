package tuning

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"skyshade.ai/internal/sim/director"
	"skyshade.ai/internal/sim/player"
	"skyshade.ai/internal/sim/spawners"
)

type Tuning struct {
	TickRateHz int    `yaml:"tick_rate_hz"`
	Seed       uint64 `yaml:"seed"`
	OfferCount int    `yaml:"offer_count"`

	Director      director.Config        `yaml:"director"`
	ThunderCurves director.ThunderCurves `yaml:"thunder_curves"`

	Clouds  spawners.CloudConfig  `yaml:"clouds"`
	Strikes spawners.StrikeConfig `yaml:"strikes"`
	Threats spawners.ThreatConfig `yaml:"threats"`
	Items   spawners.ItemConfig   `yaml:"items"`

	Player player.Config `yaml:"player"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:    30,
		OfferCount:    3,
		Director:      director.DefaultConfig(),
		ThunderCurves: director.DefaultThunderCurves(),
		Clouds:        spawners.DefaultCloudConfig(),
		Strikes:       spawners.DefaultStrikeConfig(),
		Threats:       spawners.DefaultThreatConfig(),
		Items:         spawners.DefaultItemConfig(),
		Player:        player.DefaultConfig(),
	}
}

// Load reads path on top of Defaults. Keys absent from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return t, errors.New("tuning.yaml: empty file")
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize clamps numeric input into safe ranges instead of rejecting it.
func (t *Tuning) Normalize() {
	if t.TickRateHz <= 0 {
		t.TickRateHz = 30
	}
	if t.TickRateHz > 240 {
		t.TickRateHz = 240
	}
	if t.OfferCount < 0 {
		t.OfferCount = 0
	}
	if t.Director.GraceSeconds < 0 {
		t.Director.GraceSeconds = 0
	}
	if t.Director.DamageCadence < 0.05 {
		t.Director.DamageCadence = 0.05
	}
	t.Clouds.Interval = t.Clouds.Interval.Normalize()
	t.Strikes.Interval = t.Strikes.Interval.Normalize()
	t.Threats.SpawnWait = t.Threats.SpawnWait.Normalize()
	if t.Strikes.Prewarm < 0 {
		t.Strikes.Prewarm = 0
	}
	if t.Items.Prewarm < 0 {
		t.Items.Prewarm = 0
	}
}

// Validate rejects shapes that no clamp can repair.
func (t Tuning) Validate() error {
	var errs []error
	if t.Clouds.RightX <= t.Clouds.LeftX {
		errs = append(errs, errors.New("clouds.right_x must exceed clouds.left_x"))
	}
	if t.Threats.RightX <= t.Threats.LeftX {
		errs = append(errs, errors.New("threats.right_x must exceed threats.left_x"))
	}
	if t.Threats.BaseSpeed <= 0 {
		errs = append(errs, errors.New("threats.base_speed must be positive"))
	}
	if t.Items.Lifetime <= 0 {
		errs = append(errs, errors.New("items.lifetime must be positive"))
	}
	if t.Player.MaxHP <= 0 {
		errs = append(errs, errors.New("player.max_hp must be positive"))
	}
	return errors.Join(errs...)
}
