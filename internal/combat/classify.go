// Package combat turns colliding pairs into damage events and applies them.
package combat

import (
	"spinarena/server/internal/entity"
	"spinarena/server/internal/outcome"
	"spinarena/server/internal/rng"
)

// Kind classifies a contact between two combatants.
type Kind int

const (
	KindBodyToBody Kind = iota
	KindWeaponHitsBody
	KindWeaponVsWeapon
)

func (k Kind) String() string {
	switch k {
	case KindWeaponHitsBody:
		return "weapon_hit"
	case KindWeaponVsWeapon:
		return "weapon_clash"
	default:
		return "body"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Contact is the classification of one colliding pair. For weapon hits
// Attacker owns the weapon and Victim owns the body.
type Contact struct {
	Kind     Kind
	Attacker *entity.Combatant
	Victim   *entity.Combatant
	Overlap  float64
}

// Overlaps holds the three candidate penetration depths for a pair.
type Overlaps struct {
	AHitsB      float64
	BHitsA      float64
	WeaponClash float64
}

// Measure computes the weapon/body and weapon/weapon overlaps for a and b.
func Measure(a, b *entity.Combatant) Overlaps {
	return Overlaps{
		AHitsB:      entity.CircleOverlap(a.Weapon, entity.WeaponRadius, b.Pos, entity.BodyRadius),
		BHitsA:      entity.CircleOverlap(b.Weapon, entity.WeaponRadius, a.Pos, entity.BodyRadius),
		WeaponClash: entity.CircleOverlap(a.Weapon, entity.WeaponRadius, b.Weapon, entity.WeaponRadius),
	}
}

// Classify picks the contact kind for a colliding pair. It starts from body
// contact with zero credited overlap and only switches to a weapon kind when
// that overlap is strictly positive and beats the best seen so far, checking
// A-hits-B, then B-hits-A, then weapon-vs-weapon.
func Classify(a, b *entity.Combatant) Contact {
	return classifyOverlaps(a, b, Measure(a, b))
}

func classifyOverlaps(a, b *entity.Combatant, o Overlaps) Contact {
	contact := Contact{Kind: KindBodyToBody, Attacker: a, Victim: b}
	best := 0.0
	if o.AHitsB > 0 && o.AHitsB > best {
		best = o.AHitsB
		contact = Contact{Kind: KindWeaponHitsBody, Attacker: a, Victim: b, Overlap: o.AHitsB}
	}
	if o.BHitsA > 0 && o.BHitsA > best {
		best = o.BHitsA
		contact = Contact{Kind: KindWeaponHitsBody, Attacker: b, Victim: a, Overlap: o.BHitsA}
	}
	if o.WeaponClash > 0 && o.WeaponClash > best {
		contact = Contact{Kind: KindWeaponVsWeapon, Attacker: a, Victim: b, Overlap: o.WeaponClash}
	}
	return contact
}

// Assist applies the outcome bias to contacts involving the player. One value
// is drawn from r whenever the player is part of a non-clash contact. When the
// draw falls below |WeaponAssist|, a positive bias credits the player's weapon
// if it geometrically touches the other body; a negative bias downgrades a
// player weapon hit to plain body contact.
func Assist(c Contact, a, b *entity.Combatant, o Overlaps, params outcome.Params, r *rng.RNG) Contact {
	if c.Kind == KindWeaponVsWeapon || (!a.IsPlayer && !b.IsPlayer) {
		return c
	}
	bias := params.WeaponAssist
	magnitude := bias
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if r.Float() >= magnitude {
		return c
	}

	switch {
	case bias > 0:
		if a.IsPlayer && o.AHitsB > 0 {
			return Contact{Kind: KindWeaponHitsBody, Attacker: a, Victim: b, Overlap: o.AHitsB}
		}
		if b.IsPlayer && o.BHitsA > 0 {
			return Contact{Kind: KindWeaponHitsBody, Attacker: b, Victim: a, Overlap: o.BHitsA}
		}
	case bias < 0:
		if c.Kind == KindWeaponHitsBody && c.Attacker.IsPlayer {
			return Contact{Kind: KindBodyToBody, Attacker: a, Victim: b}
		}
	}
	return c
}
