package round

import (
	"spinarena/server/internal/booster"
	"spinarena/server/internal/entity"
)

// CombatantView is the read-only state the presentation layer draws.
type CombatantView struct {
	ID        int           `json:"id"`
	Color     entity.Color  `json:"color"`
	IsPlayer  bool          `json:"isPlayer"`
	Pos       entity.Vec2   `json:"pos"`
	Vel       entity.Vec2   `json:"vel"`
	Rotation  float64       `json:"rotation"`
	Weapon    entity.Vec2   `json:"weapon"`
	Health    float64       `json:"health"`
	Alive     bool          `json:"alive"`
	Dying     bool          `json:"dying"`
	Alpha     float64       `json:"alpha"`
	Booster   entity.Effect `json:"booster"`
	HealPulse bool          `json:"healPulse"`
}

// LedgerView mirrors the ledger fields shown during a round.
type LedgerView struct {
	Balance     float64 `json:"balance"`
	RoundProfit float64 `json:"roundProfit"`
	FinalProfit float64 `json:"finalProfit"`
	Wagered     float64 `json:"wagered"`
}

// Snapshot is a copy of the round state at a tick boundary.
type Snapshot struct {
	RoundID      string           `json:"roundId,omitempty"`
	State        State            `json:"state"`
	Tick         uint64           `json:"tick"`
	Combatants   []CombatantView  `json:"combatants"`
	Pickups      []booster.Pickup `json:"pickups,omitempty"`
	ArmedBooster entity.Effect    `json:"armedBooster"`
	Ledger       LedgerView       `json:"ledger"`
	Result       *Result          `json:"result,omitempty"`
}

// Snapshot copies the current state. Mutating the result never affects the
// driver.
func (d *Driver) Snapshot() Snapshot {
	snap := Snapshot{
		RoundID:      d.id,
		State:        d.state,
		Tick:         d.tick,
		Combatants:   make([]CombatantView, 0, len(d.combatants)),
		ArmedBooster: d.ArmedBooster(),
		Ledger: LedgerView{
			Balance:     d.ledger.Balance(),
			RoundProfit: d.ledger.RoundProfit(),
			FinalProfit: d.ledger.FinalProfit(),
			Wagered:     d.ledger.Wagered(),
		},
	}
	for _, c := range d.combatants {
		snap.Combatants = append(snap.Combatants, CombatantView{
			ID:        c.ID,
			Color:     c.Color,
			IsPlayer:  c.IsPlayer,
			Pos:       c.Pos,
			Vel:       c.Vel,
			Rotation:  c.Rotation,
			Weapon:    c.Weapon,
			Health:    c.Health,
			Alive:     c.Alive,
			Dying:     c.Dying,
			Alpha:     c.Alpha,
			Booster:   c.Booster,
			HealPulse: c.HealPulsing(),
		})
	}
	if len(d.pickups) > 0 {
		snap.Pickups = append([]booster.Pickup(nil), d.pickups...)
	}
	if d.state.Terminal() {
		result := d.result
		snap.Result = &result
	}
	return snap
}
