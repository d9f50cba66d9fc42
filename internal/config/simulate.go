package config

import (
	"flag"
	"runtime"
)

// Simulate holds the headless batch simulator configuration. A scenario file
// takes precedence over the single-scenario flags.
type Simulate struct {
	ScenarioFile   string  `env:"SPINARENA_SCENARIO_FILE"`
	Workers        int     `env:"SPINARENA_WORKERS"`
	Rounds         int     `env:"SPINARENA_ROUNDS"          envDefault:"1000"`
	Combatants     int     `env:"SPINARENA_COMBATANTS"      envDefault:"4"`
	PlayerColor    string  `env:"SPINARENA_PLAYER_COLOR"    envDefault:"red"`
	WinProbability float64 `env:"SPINARENA_WIN_PROBABILITY" envDefault:"0.3"`
	SideBet        bool    `env:"SPINARENA_SIDE_BET"`
	SeedBase       uint    `env:"SPINARENA_SEED_BASE"       envDefault:"1"`
	OTelEndpoint   string  `env:"SPINARENA_OTEL_ENDPOINT"`
	Verbose        bool    `env:"SPINARENA_VERBOSE"`
}

// ParseSimulate reads the environment, then lets args override it.
func ParseSimulate(fs *flag.FlagSet, args []string) (Simulate, error) {
	var cfg Simulate
	if err := ParseEnv(&cfg); err != nil {
		return Simulate{}, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	fs.StringVar(&cfg.ScenarioFile, "scenarios", cfg.ScenarioFile, "YAML scenario file")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel rounds")
	fs.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "rounds to play")
	fs.IntVar(&cfg.Combatants, "combatants", cfg.Combatants, "combatants per round (2-4)")
	fs.StringVar(&cfg.PlayerColor, "color", cfg.PlayerColor, "player colour (red, blue, green, yellow)")
	fs.Float64Var(&cfg.WinProbability, "win-probability", cfg.WinProbability, "outcome bias")
	fs.BoolVar(&cfg.SideBet, "side-bet", cfg.SideBet, "pay the side bet every round")
	fs.UintVar(&cfg.SeedBase, "seed", cfg.SeedBase, "base seed; round i uses a seed derived from it")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP trace collector URL")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log each scenario as it finishes")
	if err := fs.Parse(args); err != nil {
		return Simulate{}, err
	}
	if cfg.ScenarioFile == "" {
		if err := validateProbability(cfg.WinProbability); err != nil {
			return Simulate{}, err
		}
	}
	return cfg, nil
}
