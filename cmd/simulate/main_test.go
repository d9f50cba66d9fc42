package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spinarena/server/internal/batch"
	"spinarena/server/internal/config"
	"spinarena/server/internal/round"
)

func decodeReports(t *testing.T, data []byte) []batch.Report {
	t.Helper()
	decoder := json.NewDecoder(bytes.NewReader(data))
	var reports []batch.Report
	for decoder.More() {
		var report batch.Report
		if err := decoder.Decode(&report); err != nil {
			t.Fatalf("decode report: %v", err)
		}
		reports = append(reports, report)
	}
	return reports
}

func TestRunSingleScenarioFromFlags(t *testing.T) {
	var out bytes.Buffer
	cfg := config.Simulate{Workers: 2, Rounds: 20, Combatants: 2, PlayerColor: "blue", WinProbability: 0.5, SeedBase: 3}
	if err := run(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	reports := decodeReports(t, out.Bytes())
	if len(reports) != 1 {
		t.Fatalf("expected one report, got %d", len(reports))
	}
	if reports[0].Rounds != 20 || reports[0].Wagered != 20*100 {
		t.Fatalf("unexpected report %+v", reports[0])
	}
}

func TestRunScenarioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	data := `workers: 2
scenarios:
  - name: duel
    combatants: 2
    winProbability: 1
    rounds: 5
    seedBase: 11
  - combatants: 4
    playerColor: green
    winProbability: 0
    sideBet: true
    rounds: 5
    seedBase: 12
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write scenarios: %v", err)
	}
	var out, errOut bytes.Buffer
	if err := run(context.Background(), config.Simulate{ScenarioFile: path, Verbose: true}, &out, &errOut); err != nil {
		t.Fatalf("run: %v", err)
	}
	reports := decodeReports(t, out.Bytes())
	if len(reports) != 2 || reports[0].Scenario != "duel" || reports[1].Scenario != "scenario-2" {
		t.Fatalf("unexpected reports %+v", reports)
	}
	if reports[1].Wagered != 5*125 {
		t.Fatalf("expected side bet wagered, got %v", reports[1].Wagered)
	}
	if !strings.Contains(errOut.String(), "scenario=duel") {
		t.Fatalf("expected verbose log line, got %q", errOut.String())
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if err := run(context.Background(), config.Simulate{Rounds: 1, Combatants: 2, PlayerColor: "purple"}, nil, nil); err == nil {
		t.Fatalf("expected colour error")
	}
	err := run(context.Background(), config.Simulate{Rounds: 1, Combatants: 9, PlayerColor: "red"}, nil, nil)
	if !errors.Is(err, round.ErrInvalidCombatantCount) {
		t.Fatalf("expected combatant count error, got %v", err)
	}
	if err := run(context.Background(), config.Simulate{ScenarioFile: filepath.Join(t.TempDir(), "missing.yaml")}, nil, nil); err == nil {
		t.Fatalf("expected missing file error")
	}
}
