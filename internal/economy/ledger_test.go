package economy

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"spinarena/server/internal/combat"
	"spinarena/server/internal/entity"
)

func TestStartRoundDeductsStakeAndSideBet(t *testing.T) {
	l := NewLedger(StartingBalance, DefaultRules())
	if err := l.StartRound(true); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}
	if want := StartingBalance - Stake - SideBetCost; l.Balance() != want {
		t.Fatalf("expected balance %v, got %v", want, l.Balance())
	}
	if l.Wagered() != Stake+SideBetCost {
		t.Fatalf("expected wager recorded, got %v", l.Wagered())
	}
}

func TestStartRoundRejectsShortBalanceWithoutSideEffects(t *testing.T) {
	l := NewLedger(Stake+SideBetCost-1, DefaultRules())
	l.roundProfit = 42
	if l.CanAffordRound(true) {
		t.Fatalf("expected side bet round to be unaffordable")
	}
	err := l.StartRound(true)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if l.Balance() != Stake+SideBetCost-1 || l.RoundProfit() != 42 {
		t.Fatalf("expected ledger untouched, got balance=%v profit=%v", l.Balance(), l.RoundProfit())
	}
	if !l.CanAffordRound(false) {
		t.Fatalf("expected plain round to be affordable")
	}
}

func TestProcessDamageEvent(t *testing.T) {
	player := &entity.Combatant{ID: 0, IsPlayer: true}
	npc := &entity.Combatant{ID: 1}
	cases := []struct {
		name  string
		event combat.DamageEvent
		delta float64
	}{
		{name: "player weapon hit", event: combat.DamageEvent{Attacker: player, Victim: npc, Kind: combat.KindWeaponHitsBody}, delta: WeaponHitReward},
		{name: "player body contact", event: combat.DamageEvent{Attacker: player, Victim: npc, Kind: combat.KindBodyToBody}, delta: 0},
		{name: "player hit by weapon", event: combat.DamageEvent{Attacker: npc, Victim: player, Kind: combat.KindWeaponHitsBody}, delta: -DamagePenalty},
		{name: "player hit by body", event: combat.DamageEvent{Attacker: npc, Victim: player, Kind: combat.KindBodyToBody}, delta: -DamagePenalty},
		{name: "npc on npc", event: combat.DamageEvent{Attacker: npc, Victim: npc, Kind: combat.KindWeaponHitsBody}, delta: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLedger(StartingBalance, DefaultRules())
			if got := l.ProcessDamageEvent(tc.event); got != tc.delta {
				t.Fatalf("expected delta %v, got %v", tc.delta, got)
			}
			if l.RoundProfit() != tc.delta {
				t.Fatalf("expected round profit %v, got %v", tc.delta, l.RoundProfit())
			}
		})
	}
}

func TestFinalProfitStages(t *testing.T) {
	cases := []struct {
		profit float64
		win    bool
		want   float64
	}{
		{profit: 30, win: true, want: 30*WinMultiplier + WinBonus},
		{profit: -20, win: true, want: -20 + WinBonus},
		{profit: 0, win: true, want: WinBonus},
		{profit: 30, win: false, want: 30},
		{profit: -20, win: false, want: -20},
	}
	for _, tc := range cases {
		if got := FinalProfit(tc.profit, tc.win); got != tc.want {
			t.Errorf("FinalProfit(%v, %v) = %v, want %v", tc.profit, tc.win, got, tc.want)
		}
	}
}

func TestFinaliseRoundDoesNotResetProfit(t *testing.T) {
	l := NewLedger(StartingBalance, DefaultRules())
	if err := l.StartRound(false); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}
	l.roundProfit = 10
	credited := l.FinaliseRound(true)
	if credited != l.FinalProfit() || l.RoundProfit() != 10 {
		t.Fatalf("expected profit fields retained, got round=%v final=%v credited=%v", l.RoundProfit(), l.FinalProfit(), credited)
	}
	if err := l.StartRound(false); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}
	if l.RoundProfit() != 0 || l.FinalProfit() != 0 {
		t.Fatalf("expected new round to reset profits")
	}
}

func TestPayoutInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Float64Range(Stake, 5000).Draw(t, "balance")
		win := rapid.Bool().Draw(t, "win")
		l := NewLedger(balance, DefaultRules())
		if err := l.StartRound(false); err != nil {
			t.Fatalf("StartRound returned error: %v", err)
		}
		l.roundProfit = rapid.Float64Range(-(WinBonus - 1), 2000).Draw(t, "profit")
		if !win {
			l.roundProfit = rapid.Float64Range(-10000, 2000).Draw(t, "lossProfit")
		}
		l.FinaliseRound(win)
		if win && l.FinalProfit() <= 0 {
			t.Fatalf("win settled with non-positive profit %v", l.FinalProfit())
		}
		if l.Balance() < 0 {
			t.Fatalf("balance went negative: %v", l.Balance())
		}
	})
}

func TestPurchaseSideBet(t *testing.T) {
	l := NewLedger(Stake+SideBetCost, DefaultRules())
	if err := l.StartRound(false); err != nil {
		t.Fatalf("StartRound returned error: %v", err)
	}
	if err := l.PurchaseSideBet(); err != nil {
		t.Fatalf("PurchaseSideBet returned error: %v", err)
	}
	if l.Balance() != 0 || l.Wagered() != Stake+SideBetCost {
		t.Fatalf("unexpected ledger state balance=%v wagered=%v", l.Balance(), l.Wagered())
	}
	if err := l.PurchaseSideBet(); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}
