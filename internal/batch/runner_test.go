package batch

import (
	"context"
	"errors"
	"math"
	"testing"

	"spinarena/server/internal/economy"
	"spinarena/server/internal/entity"
	"spinarena/server/internal/round"
	"spinarena/server/internal/telemetry"
)

func TestZeroWinProbabilityAlmostNeverWins(t *testing.T) {
	if testing.Short() {
		t.Skip("runs ten thousand rounds")
	}
	runner := NewRunner(0)
	report, err := runner.Run(context.Background(), Scenario{
		Name:           "never",
		Combatants:     4,
		WinProbability: 0,
		Rounds:         10000,
		SeedBase:       42,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Rounds != 10000 {
		t.Fatalf("expected 10000 rounds, got %d", report.Rounds)
	}
	if report.WinRate > 0.005 {
		t.Fatalf("expected a win rate indistinguishable from zero, got %.4f (%d wins)", report.WinRate, report.Wins)
	}
}

func TestFullBiasMostlyWins(t *testing.T) {
	runner := NewRunner(4)
	report, err := runner.Run(context.Background(), Scenario{
		Name:           "always",
		Combatants:     2,
		WinProbability: 1,
		Rounds:         200,
		SeedBase:       42,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.WinRate < 0.6 {
		t.Fatalf("expected most rounds won, got %.3f", report.WinRate)
	}
	if report.Wins+report.Timeouts > report.Rounds {
		t.Fatalf("inconsistent counts %+v", report)
	}
}

func TestReportIsIndependentOfWorkerCount(t *testing.T) {
	s := Scenario{Name: "mixed", Combatants: 3, WinProbability: 0.3, SideBet: true, Rounds: 40, SeedBase: 7}
	serial, err := NewRunner(1).Run(context.Background(), s)
	if err != nil {
		t.Fatalf("serial Run: %v", err)
	}
	parallel, err := NewRunner(8).Run(context.Background(), s)
	if err != nil {
		t.Fatalf("parallel Run: %v", err)
	}
	if serial != parallel {
		t.Fatalf("reports differ:\n%+v\n%+v", serial, parallel)
	}
}

func TestRTPAccounting(t *testing.T) {
	counters := telemetry.NewCounters()
	runner := NewRunner(2)
	runner.Metrics = counters
	report, err := runner.Run(context.Background(), Scenario{Name: "rtp", Combatants: 4, WinProbability: 0.3, Rounds: 30, SeedBase: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Wagered != 30*economy.Stake {
		t.Fatalf("expected wagered %v, got %v", 30*economy.Stake, report.Wagered)
	}
	if report.RTP != report.Returned/report.Wagered {
		t.Fatalf("rtp %v does not match returned/wagered", report.RTP)
	}
	if got := counters.Snapshot()["batch_rounds_total"]; got != 30 {
		t.Fatalf("expected 30 rounds recorded, got %d", got)
	}

	sideBet, err := runner.Run(context.Background(), Scenario{Name: "rtp-side", Combatants: 4, SideBet: true, Rounds: 10, SeedBase: 1})
	if err != nil {
		t.Fatalf("Run side bet: %v", err)
	}
	if sideBet.Wagered != 10*(economy.Stake+economy.SideBetCost) {
		t.Fatalf("expected side bets in wagered total, got %v", sideBet.Wagered)
	}
}

func TestReturnedMatchesSummedFinalProfit(t *testing.T) {
	s := Scenario{Name: "side-loss", Combatants: 4, WinProbability: 0, SideBet: true, Rounds: 200, SeedBase: 42}
	report, err := NewRunner(4).Run(context.Background(), s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var want float64
	rules := economy.DefaultRules()
	for i := 0; i < s.Rounds; i++ {
		out, err := playRound(s, i, rules)
		if err != nil {
			t.Fatalf("playRound %d: %v", i, err)
		}
		want += out.finalProfit
	}
	if math.Abs(report.Returned-want) > 1e-6 {
		t.Fatalf("returned %v, want summed final profit %v", report.Returned, want)
	}
	if math.Abs(report.Returned-report.AverageProfit*float64(report.Rounds)) > 1e-6 {
		t.Fatalf("returned %v disagrees with average profit %v over %d rounds", report.Returned, report.AverageProfit, report.Rounds)
	}
	if report.RTP != report.Returned/report.Wagered {
		t.Fatalf("rtp %v does not match returned/wagered", report.RTP)
	}
}

func TestRunRejectsInvalidScenarios(t *testing.T) {
	runner := NewRunner(1)
	if _, err := runner.Run(context.Background(), Scenario{Combatants: 2}); !errors.Is(err, ErrNoRounds) {
		t.Fatalf("expected ErrNoRounds, got %v", err)
	}
	if _, err := runner.Run(context.Background(), Scenario{Combatants: 6, Rounds: 1}); !errors.Is(err, round.ErrInvalidCombatantCount) {
		t.Fatalf("expected ErrInvalidCombatantCount, got %v", err)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRunner(2).Run(ctx, Scenario{Combatants: 2, Rounds: 100}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseScenarios(t *testing.T) {
	data := []byte(`
workers: 3
scenarios:
  - name: baseline
    combatants: 4
    winProbability: 0.3
    rounds: 500
    seedBase: 42
  - combatants: 2
    playerColor: yellow
    sideBet: true
    winProbability: 1
    rounds: 10
`)
	file, err := ParseScenarios(data)
	if err != nil {
		t.Fatalf("ParseScenarios: %v", err)
	}
	if file.Workers != 3 || len(file.Scenarios) != 2 {
		t.Fatalf("unexpected file %+v", file)
	}
	first, second := file.Scenarios[0], file.Scenarios[1]
	if first.Name != "baseline" || first.Combatants != 4 || first.WinProbability != 0.3 || first.SeedBase != 42 {
		t.Fatalf("unexpected first scenario %+v", first)
	}
	if second.Name != "scenario-2" || second.PlayerColor != entity.ColorYellow || !second.SideBet {
		t.Fatalf("unexpected second scenario %+v", second)
	}

	if _, err := ParseScenarios([]byte("scenarios: []")); err == nil {
		t.Fatalf("expected an error for an empty file")
	}
	if _, err := ParseScenarios([]byte("scenarios:\n  - combatants: 9\n    rounds: 1\n")); !errors.Is(err, round.ErrInvalidCombatantCount) {
		t.Fatalf("expected ErrInvalidCombatantCount, got %v", err)
	}
}
