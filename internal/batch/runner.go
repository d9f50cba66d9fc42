// Package batch runs many independent headless rounds and aggregates the
// statistics used to validate the configured return to player.
package batch

import (
	"context"
	"fmt"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"spinarena/server/internal/economy"
	"spinarena/server/internal/rng"
	"spinarena/server/internal/round"
	"spinarena/server/internal/telemetry"
)

const tracerName = "spinarena/server/internal/batch"

// Report aggregates one scenario.
type Report struct {
	Scenario       string  `json:"scenario"`
	Rounds         int     `json:"rounds"`
	Wins           int     `json:"wins"`
	Timeouts       int     `json:"timeouts"`
	WinProbability float64 `json:"winProbability"`
	WinRate        float64 `json:"winRate"`
	AverageProfit  float64 `json:"averageProfit"`
	AverageTicks   float64 `json:"averageTicks"`
	Wagered        float64 `json:"wagered"`
	Returned       float64 `json:"returned"`
	// RTP is Returned divided by Wagered. Returned sums each round's final
	// profit, the amount settlement credits before the balance floor.
	RTP float64 `json:"rtp"`
}

// Runner executes scenarios on a bounded worker pool. Every round gets its own
// driver, ledger, cooldown table and RNG, so rounds never share state.
type Runner struct {
	Workers int
	Rules   economy.Rules
	Metrics telemetry.Metrics
	Logger  telemetry.Logger
	Tracer  trace.Tracer
}

// NewRunner returns a runner with the default payout rules.
func NewRunner(workers int) *Runner {
	return &Runner{Workers: workers, Rules: economy.DefaultRules()}
}

type roundOutcome struct {
	win         bool
	timeout     bool
	ticks       uint64
	finalProfit float64
	wagered     float64
}

// Run plays every round of s and aggregates the results. The aggregate does
// not depend on the worker count.
func (r *Runner) Run(ctx context.Context, s Scenario) (Report, error) {
	if err := s.Validate(); err != nil {
		return Report{}, err
	}
	tracer := r.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	ctx, span := tracer.Start(ctx, "batch.scenario", trace.WithAttributes(
		attribute.String("scenario", s.Name),
		attribute.Int("rounds", s.Rounds),
		attribute.Int("combatants", s.Combatants),
		attribute.Float64("win_probability", s.WinProbability),
	))
	defer span.End()

	rules := r.Rules
	if rules == (economy.Rules{}) {
		rules = economy.DefaultRules()
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]roundOutcome, s.Rounds)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < s.Rounds; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := playRound(s, i, rules)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return Report{}, fmt.Errorf("run scenario %q: %w", s.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	report := aggregate(s, outcomes)
	span.SetAttributes(
		attribute.Float64("win_rate", report.WinRate),
		attribute.Float64("rtp", report.RTP),
	)
	r.record(report)
	return report, nil
}

// RunAll runs the scenarios in order.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) ([]Report, error) {
	reports := make([]Report, 0, len(scenarios))
	for _, s := range scenarios {
		report, err := r.Run(ctx, s)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func playRound(s Scenario, index int, rules economy.Rules) (roundOutcome, error) {
	// Each round plays from a fresh full balance so the zero floor never
	// clips a loss out of the aggregate.
	ledger := economy.NewLedger(max(economy.StartingBalance, rules.Stake+rules.SideBetCost), rules)
	driver := round.NewDriver(ledger, round.Config{
		NewID: func() string { return fmt.Sprintf("%s-%d", s.Name, index) },
	})
	if err := driver.Start(s.Options(rng.RoundSeed(s.SeedBase, index))); err != nil {
		return roundOutcome{}, fmt.Errorf("round %d: %w", index, err)
	}
	result, err := driver.RunToCompletion()
	if err != nil {
		return roundOutcome{}, fmt.Errorf("round %d: %w", index, err)
	}
	return roundOutcome{
		win:         result.Win,
		timeout:     result.Timeout,
		ticks:       result.Ticks,
		finalProfit: result.FinalProfit,
		wagered:     result.Wagered,
	}, nil
}

func aggregate(s Scenario, outcomes []roundOutcome) Report {
	report := Report{
		Scenario:       s.Name,
		Rounds:         len(outcomes),
		WinProbability: s.WinProbability,
	}
	var profit, ticks float64
	for _, out := range outcomes {
		if out.win {
			report.Wins++
		}
		if out.timeout {
			report.Timeouts++
		}
		profit += out.finalProfit
		ticks += float64(out.ticks)
		report.Wagered += out.wagered
		report.Returned += out.finalProfit
	}
	if n := float64(len(outcomes)); n > 0 {
		report.WinRate = float64(report.Wins) / n
		report.AverageProfit = profit / n
		report.AverageTicks = ticks / n
	}
	if report.Wagered > 0 {
		report.RTP = report.Returned / report.Wagered
	}
	return report
}

func (r *Runner) record(report Report) {
	if r.Metrics != nil {
		r.Metrics.Add("batch_rounds_total", uint64(report.Rounds))
		r.Metrics.Add("batch_wins_total", uint64(report.Wins))
		r.Metrics.Add("batch_timeouts_total", uint64(report.Timeouts))
	}
	if r.Logger != nil {
		r.Logger.Printf("[batch] scenario=%s rounds=%d wins=%d win_rate=%.4f rtp=%.4f avg_profit=%.2f timeouts=%d",
			report.Scenario, report.Rounds, report.Wins, report.WinRate, report.RTP, report.AverageProfit, report.Timeouts)
	}
}
