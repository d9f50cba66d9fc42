package config

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"strings"
	"time"

	"spinarena/server/internal/observability"
	"spinarena/server/logging"
	"spinarena/server/logging/lifecycle"
)

var (
	ErrWinProbabilityRange = errors.New("win probability must be within [0, 1]")
	ErrUnknownSink         = errors.New("unknown log sink")
	ErrJSONPathRequired    = errors.New("json log sink needs a file path")
)

// Server holds the interactive server configuration.
type Server struct {
	Addr            string        `env:"SPINARENA_ADDR"             envDefault:":8080"`
	ClientDir       string        `env:"SPINARENA_CLIENT_DIR"`
	LogSinks        []string      `env:"SPINARENA_LOG_SINKS"        envDefault:"console" envSeparator:","`
	LogJSONPath     string        `env:"SPINARENA_LOG_JSON_PATH"`
	LogLevel        string        `env:"SPINARENA_LOG_LEVEL"        envDefault:"info"`
	WinProbability  float64       `env:"SPINARENA_WIN_PROBABILITY"  envDefault:"0.3"`
	StartingBalance float64       `env:"SPINARENA_STARTING_BALANCE" envDefault:"1000"`
	TickRate        int           `env:"SPINARENA_TICK_RATE"        envDefault:"60"`
	ShutdownTimeout time.Duration `env:"SPINARENA_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	OTelEndpoint    string        `env:"SPINARENA_OTEL_ENDPOINT"`
	ServiceName     string        `env:"SPINARENA_SERVICE_NAME"     envDefault:"spinarena"`
	PprofTrace      bool          `env:"SPINARENA_ENABLE_PPROF_TRACE"`
}

// ParseServer reads the environment, then lets args override it.
func ParseServer(fs *flag.FlagSet, args []string) (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}

	sinks := strings.Join(cfg.LogSinks, ",")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.ClientDir, "client-dir", cfg.ClientDir, "directory of static presentation assets")
	fs.StringVar(&sinks, "log-sinks", sinks, "comma separated log sinks (console, json)")
	fs.StringVar(&cfg.LogJSONPath, "log-json-path", cfg.LogJSONPath, "file receiving JSON log lines")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "minimum event severity (debug, info, warn, error)")
	fs.Float64Var(&cfg.WinProbability, "win-probability", cfg.WinProbability, "default outcome bias for new rounds")
	fs.Float64Var(&cfg.StartingBalance, "starting-balance", cfg.StartingBalance, "session starting balance")
	fs.IntVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "wall-clock updates per second")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown deadline")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP trace collector URL")
	fs.BoolVar(&cfg.PprofTrace, "pprof-trace", cfg.PprofTrace, "expose /debug/pprof/trace")
	if err := fs.Parse(args); err != nil {
		return Server{}, err
	}
	cfg.LogSinks = splitList(sinks)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks ranges and sink names.
func (c Server) Validate() error {
	if err := validateProbability(c.WinProbability); err != nil {
		return err
	}
	for _, sink := range c.LogSinks {
		switch sink {
		case logging.SinkConsole:
		case logging.SinkJSON:
			if c.LogJSONPath == "" {
				return ErrJSONPathRequired
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnknownSink, sink)
		}
	}
	return nil
}

// Logging converts the log settings into a router configuration.
func (c Server) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = append([]string(nil), c.LogSinks...)
	cfg.MinimumSeverity = logging.ParseSeverity(c.LogLevel)
	cfg.JSON.FilePath = c.LogJSONPath
	cfg.Fields = map[string]any{"service": c.ServiceName}
	cfg.SettleOn = []logging.EventType{lifecycle.EventRoundFinished}
	return cfg
}

// Observability converts the tracing settings.
func (c Server) Observability() observability.Config {
	return observability.Config{
		ServiceName:      c.ServiceName,
		Endpoint:         c.OTelEndpoint,
		EnablePprofTrace: c.PprofTrace,
	}
}

func validateProbability(p float64) error {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return fmt.Errorf("%w: got %v", ErrWinProbabilityRange, p)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
