// Package economy holds the wagering ledger: the persistent balance plus the
// per-round profit accumulated from damage events.
package economy

import (
	"errors"

	"spinarena/server/internal/combat"
)

const (
	StartingBalance = 1000.0
	Stake           = 100.0
	SideBetCost     = 25.0
	WeaponHitReward = 15.0
	DamagePenalty   = 2.0
	WinMultiplier   = 1.5
	WinBonus        = 250.0
)

// ErrInsufficientBalance is returned when the balance cannot cover a wager.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Rules groups the tunable payout constants.
type Rules struct {
	Stake           float64
	SideBetCost     float64
	WeaponHitReward float64
	DamagePenalty   float64
	WinMultiplier   float64
	WinBonus        float64
}

// DefaultRules returns the standard payout table.
func DefaultRules() Rules {
	return Rules{
		Stake:           Stake,
		SideBetCost:     SideBetCost,
		WeaponHitReward: WeaponHitReward,
		DamagePenalty:   DamagePenalty,
		WinMultiplier:   WinMultiplier,
		WinBonus:        WinBonus,
	}
}

// FinalProfit is the three-stage payout: raw profit, multiplied only on a win
// with positive profit, then the win bonus added only on a win.
func (r Rules) FinalProfit(roundProfit float64, win bool) float64 {
	profit := roundProfit
	if win && profit > 0 {
		profit *= r.WinMultiplier
	}
	if win {
		profit += r.WinBonus
	}
	return profit
}

// FinalProfit applies the default rules.
func FinalProfit(roundProfit float64, win bool) float64 {
	return DefaultRules().FinalProfit(roundProfit, win)
}

// Ledger tracks the process-lifetime balance and the current round's profit.
// Balance never goes negative.
type Ledger struct {
	rules       Rules
	balance     float64
	roundProfit float64
	finalProfit float64
	wagered     float64
}

// NewLedger returns a ledger with the given opening balance.
func NewLedger(balance float64, rules Rules) *Ledger {
	if balance < 0 {
		balance = 0
	}
	return &Ledger{rules: rules, balance: balance}
}

// Rules reports the payout table.
func (l *Ledger) Rules() Rules { return l.rules }

// Balance reports the current balance.
func (l *Ledger) Balance() float64 { return l.balance }

// RoundProfit reports the live profit of the current round.
func (l *Ledger) RoundProfit() float64 { return l.roundProfit }

// FinalProfit reports the profit settled by the last FinaliseRound.
func (l *Ledger) FinalProfit() float64 { return l.finalProfit }

// Wagered reports the stake plus side bets deducted for the current round.
func (l *Ledger) Wagered() float64 { return l.wagered }

// RoundCost returns the amount StartRound deducts.
func (l *Ledger) RoundCost(hasSideBet bool) float64 {
	cost := l.rules.Stake
	if hasSideBet {
		cost += l.rules.SideBetCost
	}
	return cost
}

// CanAffordRound reports whether the balance covers the stake plus the
// optional side bet.
func (l *Ledger) CanAffordRound(hasSideBet bool) bool {
	return l.balance >= l.RoundCost(hasSideBet)
}

// StartRound deducts the wager and resets the round profit fields. It leaves
// the ledger untouched when the balance is short.
func (l *Ledger) StartRound(hasSideBet bool) error {
	if !l.CanAffordRound(hasSideBet) {
		return ErrInsufficientBalance
	}
	cost := l.RoundCost(hasSideBet)
	l.balance -= cost
	l.wagered = cost
	l.roundProfit = 0
	l.finalProfit = 0
	return nil
}

// PurchaseSideBet deducts a mid-round booster purchase.
func (l *Ledger) PurchaseSideBet() error {
	if l.balance < l.rules.SideBetCost {
		return ErrInsufficientBalance
	}
	l.balance -= l.rules.SideBetCost
	l.wagered += l.rules.SideBetCost
	return nil
}

// ProcessDamageEvent credits player weapon hits and charges every event where
// the player is the victim. It returns the profit delta.
func (l *Ledger) ProcessDamageEvent(ev combat.DamageEvent) float64 {
	delta := 0.0
	if ev.Attacker != nil && ev.Attacker.IsPlayer && ev.Kind == combat.KindWeaponHitsBody {
		delta += l.rules.WeaponHitReward
	}
	if ev.Victim != nil && ev.Victim.IsPlayer {
		delta -= l.rules.DamagePenalty
	}
	l.roundProfit += delta
	return delta
}

// FinaliseRound settles the round: it computes the final profit, credits it
// and clamps the balance at zero. It returns the amount actually credited,
// which differs from FinalProfit only when the clamp kicks in.
func (l *Ledger) FinaliseRound(win bool) float64 {
	l.finalProfit = l.rules.FinalProfit(l.roundProfit, win)
	before := l.balance
	l.balance += l.finalProfit
	if l.balance < 0 {
		l.balance = 0
	}
	return l.balance - before
}
