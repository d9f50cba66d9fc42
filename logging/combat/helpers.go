package combat

import (
	"context"

	"spinarena/server/logging"
)

const (
	// EventDamage is emitted for every damage event that reaches a victim.
	EventDamage logging.EventType = "combat.damage"
	// EventBlocked is emitted when a shield absorbs a hit.
	EventBlocked logging.EventType = "combat.blocked"
	// EventDefeat is emitted when a combatant's health reaches zero.
	EventDefeat logging.EventType = "combat.defeat"
	// EventWeaponClash is emitted when two weapons meet without damage.
	EventWeaponClash logging.EventType = "combat.weapon_clash"
)

// DamagePayload describes a resolved hit.
type DamagePayload struct {
	Kind         string  `json:"kind"`
	Amount       float64 `json:"amount"`
	HealthBefore float64 `json:"healthBefore"`
	HealthAfter  float64 `json:"healthAfter"`
	Boosted      bool    `json:"boosted,omitempty"`
}

// BlockedPayload describes a hit absorbed by a shield.
type BlockedPayload struct {
	Kind   string  `json:"kind"`
	Amount float64 `json:"amount"`
}

// DefeatPayload describes a combatant leaving play.
type DefeatPayload struct {
	Kind string `json:"kind"`
}

// Damage publishes a damage event from actor to target.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DamagePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	})
}

// Blocked publishes a shield block.
func Blocked(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload BlockedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBlocked,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	})
}

// Defeat publishes a defeat. actor is the attacker that landed the final hit.
func Defeat(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload DefeatPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDefeat,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		Extra:    extra,
	})
}

// WeaponClash publishes a weapon-vs-weapon contact.
func WeaponClash(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWeaponClash,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Extra:    extra,
	})
}
