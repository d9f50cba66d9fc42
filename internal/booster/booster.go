// Package booster implements the pickup side of the booster mini-feature:
// spawning pickups, the overlap test and applying a collected effect.
package booster

import (
	"errors"

	"spinarena/server/internal/arena"
	"spinarena/server/internal/entity"
	"spinarena/server/internal/rng"
)

const (
	// PickupRadius is the collision radius of a pickup.
	PickupRadius = 18.0
	// HealAmount is the health restored by a healing pickup.
	HealAmount = 30.0
	// spawnMargin keeps pickups off the walls.
	spawnMargin = entity.BodyRadius + PickupRadius
)

// ErrNoBooster is returned when a purchase names no booster.
var ErrNoBooster = errors.New("booster type is required")

// Pickup is a collectible booster lying in the arena.
type Pickup struct {
	ID     int           `json:"id"`
	Effect entity.Effect `json:"effect"`
	Pos    entity.Vec2   `json:"pos"`
}

// Spawn places a pickup for effect at an RNG position inside the arena. It
// draws exactly two values.
func Spawn(r *rng.RNG, a arena.Arena, id int, effect entity.Effect) (Pickup, error) {
	if effect == entity.EffectNone {
		return Pickup{}, ErrNoBooster
	}
	pos := entity.Vec2{
		X: r.Range(a.Origin.X+spawnMargin, a.Origin.X+a.Size-spawnMargin),
		Y: r.Range(a.Origin.Y+spawnMargin, a.Origin.Y+a.Size-spawnMargin),
	}
	return Pickup{ID: id, Effect: effect, Pos: pos}, nil
}

// Overlaps reports whether the combatant's body touches the pickup.
func Overlaps(c *entity.Combatant, p Pickup) bool {
	if !c.Active() {
		return false
	}
	return entity.CircleOverlap(c.Pos, entity.BodyRadius, p.Pos, PickupRadius) > 0
}

// Collect applies the pickup to the combatant. Healing restores HealAmount
// capped at full health; glove and shield arm the single booster slot,
// replacing whatever was armed before.
func Collect(c *entity.Combatant, p Pickup) {
	switch p.Effect {
	case entity.EffectHealing:
		c.Heal(HealAmount)
	case entity.EffectGlove, entity.EffectShield:
		c.Booster = p.Effect
	}
}

// CollectOverlapping lets the player collect every pickup it touches and
// returns the remaining and collected pickups. Only the player collects.
func CollectOverlapping(player *entity.Combatant, pickups []Pickup) (remaining, collected []Pickup) {
	if player == nil || !player.IsPlayer {
		return pickups, nil
	}
	remaining = pickups[:0]
	for _, p := range pickups {
		if Overlaps(player, p) {
			Collect(player, p)
			collected = append(collected, p)
			continue
		}
		remaining = append(remaining, p)
	}
	return remaining, collected
}
