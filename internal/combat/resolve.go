package combat

import (
	"math"

	"spinarena/server/internal/entity"
	"spinarena/server/internal/outcome"
	"spinarena/server/internal/physics"
	"spinarena/server/internal/rng"
)

const (
	WeaponBaseDamage = 25.0
	WeaponMinDamage  = 1.0
	WeaponMaxDamage  = 40.0
	BodyBaseDamage   = 10.0
	BodyMinDamage    = 1.0
	BodyMaxDamage    = 25.0
	// GloveBonus is added to one outgoing player weapon hit while a glove is armed.
	GloveBonus = 10.0
)

// DamageEvent is one instance of damage produced by a contact.
type DamageEvent struct {
	Attacker *entity.Combatant
	Victim   *entity.Combatant
	Kind     Kind
	Amount   float64

	// Boosted is set when an armed glove added its bonus to this hit.
	Boosted bool
}

// Resolver classifies colliding pairs and produces damage events. It borrows
// the round's cooldown table, outcome parameters and RNG.
type Resolver struct {
	Cooldowns *Cooldowns
	Params    outcome.Params
	RNG       *rng.RNG
}

// Resolve returns the damage events for a single colliding pair at nowMillis.
// A pair still inside its cooldown window yields nothing.
func (r *Resolver) Resolve(pair physics.Pair, nowMillis float64) []DamageEvent {
	a, b := pair.A, pair.B
	if a == nil || b == nil {
		return nil
	}
	if !r.Cooldowns.Ready(a.ID, b.ID, nowMillis) {
		return nil
	}

	overlaps := Measure(a, b)
	contact := classifyOverlaps(a, b, overlaps)
	contact = Assist(contact, a, b, overlaps, r.Params, r.RNG)

	switch contact.Kind {
	case KindWeaponVsWeapon:
		return nil
	case KindWeaponHitsBody:
		return []DamageEvent{{
			Attacker: contact.Attacker,
			Victim:   contact.Victim,
			Kind:     KindWeaponHitsBody,
			Amount:   WeaponDamage(contact.Attacker, contact.Victim, r.Params),
		}}
	default:
		return []DamageEvent{
			{Attacker: a, Victim: b, Kind: KindBodyToBody, Amount: BodyDamage(b, r.Params)},
			{Attacker: b, Victim: a, Kind: KindBodyToBody, Amount: BodyDamage(a, r.Params)},
		}
	}
}

// ResolveAll resolves every pair in order and concatenates the events.
func (r *Resolver) ResolveAll(pairs []physics.Pair, nowMillis float64) []DamageEvent {
	var events []DamageEvent
	for _, pair := range pairs {
		events = append(events, r.Resolve(pair, nowMillis)...)
	}
	return events
}

// WeaponDamage computes a weapon hit: the base amount plus the attacker bonus
// when the player attacks and the victim delta when the player is hit,
// clamped to [1, 40].
func WeaponDamage(attacker, victim *entity.Combatant, params outcome.Params) float64 {
	amount := WeaponBaseDamage
	if attacker.IsPlayer {
		amount += params.AttackerDamageBonus
	}
	if victim.IsPlayer {
		amount += params.VictimDamageDelta
	}
	return entity.Clamp(math.Round(amount), WeaponMinDamage, WeaponMaxDamage)
}

// BodyDamage computes what victim takes from body contact: the base amount
// plus half the victim delta when the victim is the player, rounded and
// clamped to [1, 25].
func BodyDamage(victim *entity.Combatant, params outcome.Params) float64 {
	amount := BodyBaseDamage
	if victim.IsPlayer {
		amount += params.VictimDamageDelta / 2
	}
	return entity.Clamp(math.Round(amount), BodyMinDamage, BodyMaxDamage)
}
