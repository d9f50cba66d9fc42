package batch

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"spinarena/server/internal/entity"
	"spinarena/server/internal/outcome"
	"spinarena/server/internal/round"
)

// ErrNoRounds is returned for scenarios that ask for zero rounds.
var ErrNoRounds = errors.New("scenario must run at least one round")

// Scenario is one (mode, win probability, side bet, seed) tuple run many
// times. Round i is seeded with rng.RoundSeed(SeedBase, i).
type Scenario struct {
	Name           string       `json:"name" yaml:"name"`
	Combatants     int          `json:"combatants" yaml:"combatants"`
	PlayerColor    entity.Color `json:"playerColor,omitempty" yaml:"playerColor,omitempty"`
	WinProbability float64      `json:"winProbability" yaml:"winProbability"`
	SideBet        bool         `json:"sideBet,omitempty" yaml:"sideBet,omitempty"`
	Rounds         int          `json:"rounds" yaml:"rounds"`
	SeedBase       uint32       `json:"seedBase" yaml:"seedBase"`
}

// Validate reports configuration errors before any round runs.
func (s Scenario) Validate() error {
	if s.Rounds <= 0 {
		return fmt.Errorf("scenario %q: %w", s.Name, ErrNoRounds)
	}
	opts := round.Options{Combatants: s.Combatants, PlayerColor: s.PlayerColor}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return nil
}

// Options builds the round options for the index-th round.
func (s Scenario) Options(seed uint32) round.Options {
	return round.Options{
		Combatants:     s.Combatants,
		PlayerColor:    s.PlayerColor,
		SideBet:        s.SideBet,
		WinProbability: outcome.ClampProbability(s.WinProbability),
		Seed:           fmt.Sprint(seed),
	}
}

// ScenarioFile is the on-disk batch description.
type ScenarioFile struct {
	Workers   int        `json:"workers,omitempty" yaml:"workers,omitempty"`
	Scenarios []Scenario `json:"scenarios" yaml:"scenarios"`
}

// ParseScenarios decodes a YAML scenario file and validates every entry.
func ParseScenarios(data []byte) (ScenarioFile, error) {
	var file ScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return ScenarioFile{}, fmt.Errorf("decode scenarios: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return ScenarioFile{}, errors.New("scenario file lists no scenarios")
	}
	for i := range file.Scenarios {
		if file.Scenarios[i].Name == "" {
			file.Scenarios[i].Name = fmt.Sprintf("scenario-%d", i+1)
		}
		if err := file.Scenarios[i].Validate(); err != nil {
			return ScenarioFile{}, err
		}
	}
	return file, nil
}

// LoadScenarios reads and parses the YAML file at path.
func LoadScenarios(path string) (ScenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScenarioFile{}, fmt.Errorf("read scenarios: %w", err)
	}
	return ParseScenarios(data)
}
