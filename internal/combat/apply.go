package combat

import "spinarena/server/internal/entity"

// Applied reports the result of post-processing a batch of raw events.
type Applied struct {
	// Events reached their victim and must be fed to the ledger.
	Events []DamageEvent
	// Blocked were negated by a shield and never reach the ledger.
	Blocked []DamageEvent
	// Defeated lists combatants that started dying during this batch.
	Defeated []*entity.Combatant
}

// ApplyDamageEvents runs booster post-processing and applies damage. A shield
// armed on a player victim negates the event and is consumed; otherwise a
// glove armed on a player attacker adds GloveBonus to a weapon hit and is
// consumed. Events aimed at a combatant that is already dying are dropped.
func ApplyDamageEvents(events []DamageEvent) Applied {
	var out Applied
	for _, ev := range events {
		if ev.Victim == nil || !ev.Victim.Active() {
			continue
		}
		if ev.Victim.IsPlayer && ev.Victim.Booster == entity.EffectShield {
			ev.Victim.Booster = entity.EffectNone
			out.Blocked = append(out.Blocked, ev)
			continue
		}
		if ev.Kind == KindWeaponHitsBody && ev.Attacker != nil && ev.Attacker.IsPlayer && ev.Attacker.Booster == entity.EffectGlove {
			ev.Amount += GloveBonus
			ev.Boosted = true
			ev.Attacker.Booster = entity.EffectNone
		}
		if ev.Victim.TakeDamage(ev.Amount) {
			out.Defeated = append(out.Defeated, ev.Victim)
		}
		out.Events = append(out.Events, ev)
	}
	return out
}
