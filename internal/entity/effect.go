package entity

import "fmt"

// Effect is the booster variant a pickup grants. Glove and shield are armed
// on the player until consumed; healing applies immediately on collection.
type Effect int

const (
	EffectNone Effect = iota
	EffectHealing
	EffectGlove
	EffectShield
)

// Effects lists every purchasable booster.
var Effects = []Effect{EffectHealing, EffectGlove, EffectShield}

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectHealing:
		return "healing"
	case EffectGlove:
		return "glove"
	case EffectShield:
		return "shield"
	default:
		return "unknown"
	}
}

// Armable reports whether the effect occupies the player's booster slot.
func (e Effect) Armable() bool {
	return e == EffectGlove || e == EffectShield
}

// ParseEffect accepts the effect names plus the damage-boost/damage-shield
// aliases used by the presentation layer.
func ParseEffect(value string) (Effect, bool) {
	switch value {
	case "", "none":
		return EffectNone, true
	case "healing", "heal":
		return EffectHealing, true
	case "glove", "damage-boost":
		return EffectGlove, true
	case "shield", "damage-shield":
		return EffectShield, true
	default:
		return EffectNone, false
	}
}

// MarshalText encodes the effect by name.
func (e Effect) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes an effect name.
func (e *Effect) UnmarshalText(text []byte) error {
	parsed, ok := ParseEffect(string(text))
	if !ok {
		return fmt.Errorf("unknown booster %q", text)
	}
	*e = parsed
	return nil
}
