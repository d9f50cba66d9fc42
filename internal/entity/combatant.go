// Package entity holds the combatant model shared by physics, combat and the
// round driver.
package entity

import (
	"fmt"
	"math"
)

const (
	// BodyRadius is the radius of every combatant's body collider.
	BodyRadius = 28.0
	// WeaponOffset is the distance from the body centre to the weapon hitbox.
	WeaponOffset = 34.0
	// WeaponRadius is the radius of the weapon hitbox.
	WeaponRadius = 12.0
	// MaxHealth is the health every combatant starts a round with.
	MaxHealth = 100.0
	// DefaultSpeed is the travel speed in arena units per second.
	DefaultSpeed = 220.0
	// SpinRate is the rotation speed in radians per second.
	SpinRate = 4.5
	// FadeSeconds is how long a dying combatant takes to fade out.
	FadeSeconds = 0.5
	// HealPulseSeconds is how long the heal indicator stays lit.
	HealPulseSeconds = 0.6
	// MinSeparation stands in for the centre distance of two coincident bodies.
	MinSeparation = 1e-4
)

// Color identifies one of the four combatant classes.
type Color int

const (
	ColorRed Color = iota
	ColorBlue
	ColorGreen
	ColorYellow
)

// Colors lists every class in spawn order.
var Colors = []Color{ColorRed, ColorBlue, ColorGreen, ColorYellow}

func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorBlue:
		return "blue"
	case ColorGreen:
		return "green"
	case ColorYellow:
		return "yellow"
	default:
		return "unknown"
	}
}

// ParseColor validates a colour name received from the presentation layer.
func ParseColor(value string) (Color, bool) {
	for _, c := range Colors {
		if c.String() == value {
			return c, true
		}
	}
	return 0, false
}

// MarshalText encodes the colour by name.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a colour name.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, ok := ParseColor(string(text))
	if !ok {
		return fmt.Errorf("unknown color %q", text)
	}
	*c = parsed
	return nil
}

// Combatant is a spinning circular fighter. Velocity magnitude always equals
// Speed, and Weapon is refreshed whenever Pos or Rotation changes.
type Combatant struct {
	ID       int
	Color    Color
	IsPlayer bool

	Pos      Vec2
	Vel      Vec2
	Speed    float64
	Rotation float64
	Spin     float64
	Weapon   Vec2

	Health float64
	Alive  bool
	Dying  bool
	Alpha  float64

	Booster   Effect
	HealPulse float64
}

// New constructs a live combatant at pos heading along angle.
func New(id int, color Color, isPlayer bool, pos Vec2, heading, speed, rotation, spin float64) *Combatant {
	c := &Combatant{
		ID:       id,
		Color:    color,
		IsPlayer: isPlayer,
		Pos:      pos,
		Vel:      Vec2{X: math.Cos(heading) * speed, Y: math.Sin(heading) * speed},
		Speed:    speed,
		Rotation: rotation,
		Spin:     spin,
		Health:   MaxHealth,
		Alive:    true,
		Alpha:    1,
	}
	c.UpdateWeapon()
	return c
}

// Active reports whether the combatant still takes part in physics and combat.
func (c *Combatant) Active() bool {
	return c != nil && c.Alive && !c.Dying
}

// UpdateWeapon recomputes the weapon hitbox centre from position and rotation.
func (c *Combatant) UpdateWeapon() {
	c.Weapon = Vec2{
		X: c.Pos.X + math.Cos(c.Rotation)*WeaponOffset,
		Y: c.Pos.Y + math.Sin(c.Rotation)*WeaponOffset,
	}
}

// Normalize rescales the velocity back to Speed. A zero velocity is pointed
// along the current rotation so the combatant never stalls.
func (c *Combatant) Normalize() {
	mag := c.Vel.Len()
	if mag == 0 || math.IsNaN(mag) || math.IsInf(mag, 0) {
		c.Vel = Vec2{X: math.Cos(c.Rotation) * c.Speed, Y: math.Sin(c.Rotation) * c.Speed}
		return
	}
	scale := c.Speed / mag
	c.Vel.X *= scale
	c.Vel.Y *= scale
}

// TakeDamage subtracts amount from health. When health reaches zero the
// combatant starts dying and true is returned.
func (c *Combatant) TakeDamage(amount float64) bool {
	if !c.Active() || amount <= 0 {
		return false
	}
	c.Health -= amount
	if c.Health > 0 {
		return false
	}
	c.Health = 0
	c.Dying = true
	return true
}

// Heal restores up to amount health, never exceeding MaxHealth, and starts the
// heal pulse.
func (c *Combatant) Heal(amount float64) {
	if !c.Active() || amount <= 0 {
		return
	}
	c.Health = math.Min(MaxHealth, c.Health+amount)
	c.HealPulse = HealPulseSeconds
}

// AdvanceTimers decays transient status timers and the death fade. It
// returns true on the step the combatant is finally removed.
func (c *Combatant) AdvanceTimers(dt float64) bool {
	if c == nil || !c.Alive {
		return false
	}
	if c.HealPulse > 0 {
		c.HealPulse = math.Max(0, c.HealPulse-dt)
	}
	if !c.Dying {
		return false
	}
	c.Alpha -= dt / FadeSeconds
	if c.Alpha > 0 {
		return false
	}
	c.Alpha = 0
	c.Alive = false
	return true
}

// HealPulsing reports whether the heal indicator should be shown.
func (c *Combatant) HealPulsing() bool {
	return c.HealPulse > 0
}
