// Package outcome holds the return-to-player bias controller. Once per round it
// picks one of two fixed parameter presets with a single Bernoulli draw; the
// presets only nudge combat and speed, they never decide the result.
package outcome

import (
	"math"

	"spinarena/server/internal/rng"
)

// DefaultWinProbability is the bias used when none is configured.
const DefaultWinProbability = 0.3

// Tag keys the preset table.
type Tag int

const (
	TagNeutral Tag = iota
	TagWin
	TagLose
)

func (t Tag) String() string {
	switch t {
	case TagWin:
		return "win"
	case TagLose:
		return "lose"
	default:
		return "neutral"
	}
}

// Params is the bias bundle consumed by the classifier and combatant setup.
// It is sampled once at round start and held for the whole round.
type Params struct {
	Tag Tag `json:"tag"`
	// WeaponAssist is the probability magnitude of overriding a player
	// contact's classification. Positive values favour crediting the player's
	// weapon; negative values downgrade weapon hits to body contact.
	WeaponAssist float64 `json:"weaponAssist"`
	// AttackerDamageBonus is added to weapon hits the player deals.
	AttackerDamageBonus float64 `json:"attackerDamageBonus"`
	// VictimDamageDelta is added to damage the player receives (half of it
	// for body contact).
	VictimDamageDelta float64 `json:"victimDamageDelta"`
	// PlayerSpeedMultiplier scales the player's travel speed.
	PlayerSpeedMultiplier float64 `json:"playerSpeedMultiplier"`
	TargetWin             bool    `json:"targetWin"`
}

var presets = map[Tag]Params{
	TagNeutral: {
		Tag:                   TagNeutral,
		PlayerSpeedMultiplier: 1,
	},
	TagWin: {
		Tag:                   TagWin,
		WeaponAssist:          0.7,
		AttackerDamageBonus:   15,
		VictimDamageDelta:     -15,
		PlayerSpeedMultiplier: 1.25,
		TargetWin:             true,
	},
	TagLose: {
		Tag:                   TagLose,
		WeaponAssist:          -0.9,
		AttackerDamageBonus:   -15,
		VictimDamageDelta:     30,
		PlayerSpeedMultiplier: 0.85,
	},
}

// Preset returns the fixed parameters for tag.
func Preset(tag Tag) Params {
	if p, ok := presets[tag]; ok {
		return p
	}
	return presets[TagNeutral]
}

// Neutral returns the baseline preset that applies no bias.
func Neutral() Params {
	return Preset(TagNeutral)
}

// Controller holds the configured win probability.
type Controller struct {
	winProbability float64
}

// NewController clamps p to [0,1]. NaN is treated as zero.
func NewController(p float64) *Controller {
	return &Controller{winProbability: ClampProbability(p)}
}

// ClampProbability limits p to [0,1].
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// WinProbability reports the clamped probability.
func (c *Controller) WinProbability() float64 {
	if c == nil {
		return 0
	}
	return c.winProbability
}

// SampleParams draws exactly one value from r and returns the win preset when
// it falls below the win probability, otherwise the lose preset.
func (c *Controller) SampleParams(r *rng.RNG) Params {
	if r.Float() < c.WinProbability() {
		return Preset(TagWin)
	}
	return Preset(TagLose)
}
