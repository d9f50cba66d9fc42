// Command simulate plays headless rounds in parallel and prints one JSON
// report per scenario.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"spinarena/server/internal/batch"
	"spinarena/server/internal/config"
	"spinarena/server/internal/entity"
	"spinarena/server/internal/observability"
	"spinarena/server/internal/telemetry"
)

func main() {
	cfg, err := config.ParseSimulate(flag.NewFlagSet("simulate", flag.ExitOnError), os.Args[1:])
	if err != nil {
		config.Exitf("simulate: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		config.Exitf("simulate: %v", err)
	}
}

func run(ctx context.Context, cfg config.Simulate, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	shutdown, err := observability.Setup(ctx, observability.Config{ServiceName: "spinarena-simulate", Endpoint: cfg.OTelEndpoint})
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	scenarios, workers, err := loadScenarios(cfg)
	if err != nil {
		return err
	}

	runner := batch.NewRunner(workers)
	if cfg.Verbose {
		runner.Logger = telemetry.WrapLogger(log.New(errOut, "", log.LstdFlags))
	}

	reports, err := runner.RunAll(ctx, scenarios)
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	for _, report := range reports {
		if encErr := encoder.Encode(report); encErr != nil {
			return fmt.Errorf("encode report: %w", encErr)
		}
	}
	return err
}

func loadScenarios(cfg config.Simulate) ([]batch.Scenario, int, error) {
	if cfg.ScenarioFile != "" {
		file, err := batch.LoadScenarios(cfg.ScenarioFile)
		if err != nil {
			return nil, 0, err
		}
		workers := cfg.Workers
		if file.Workers > 0 {
			workers = file.Workers
		}
		return file.Scenarios, workers, nil
	}

	color, ok := entity.ParseColor(cfg.PlayerColor)
	if !ok {
		return nil, 0, fmt.Errorf("unknown player colour %q", cfg.PlayerColor)
	}
	s := batch.Scenario{
		Name:           fmt.Sprintf("%dp-wp%.2f", cfg.Combatants, cfg.WinProbability),
		Combatants:     cfg.Combatants,
		PlayerColor:    color,
		WinProbability: cfg.WinProbability,
		SideBet:        cfg.SideBet,
		Rounds:         cfg.Rounds,
		SeedBase:       uint32(cfg.SeedBase),
	}
	if err := s.Validate(); err != nil {
		return nil, 0, err
	}
	return []batch.Scenario{s}, cfg.Workers, nil
}
