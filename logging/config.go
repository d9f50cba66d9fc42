package logging

import (
	"maps"
	"slices"
	"time"
)

const (
	SinkConsole = "console"
	SinkJSON    = "json"
)

// Config controls how the router buffers events, which sinks it feeds and
// when it considers a round's event stream complete.
type Config struct {
	EnabledSinks    []string
	BufferSize      int
	MinimumSeverity Severity
	Fields          map[string]any
	JSON            JSONConfig

	// DropWarnInterval rate-limits the fallback warning for dropped events.
	DropWarnInterval time.Duration
	// SettleOn lists the event types that close a round. When one is routed
	// the round's tally moves to history and flushable sinks are flushed.
	SettleOn []EventType
	// RoundHistory bounds how many settled round tallies are retained.
	RoundHistory int
	// SinkFailureLimit is the number of consecutive write errors after which
	// a sink is disabled.
	SinkFailureLimit int
}

type JSONConfig struct {
	FilePath      string
	FlushInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{SinkConsole},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		RoundHistory:     16,
		SinkFailureLimit: 5,
		JSON:             JSONConfig{FlushInterval: 2 * time.Second},
	}
}

func (c Config) HasSink(name string) bool {
	return slices.Contains(c.EnabledSinks, name)
}

func (c Config) settles(eventType EventType) bool {
	return slices.Contains(c.SettleOn, eventType)
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BufferSize <= 0 {
		c.BufferSize = defaults.BufferSize
	}
	if c.DropWarnInterval <= 0 {
		c.DropWarnInterval = defaults.DropWarnInterval
	}
	if c.RoundHistory <= 0 {
		c.RoundHistory = defaults.RoundHistory
	}
	if c.SinkFailureLimit <= 0 {
		c.SinkFailureLimit = defaults.SinkFailureLimit
	}
	c.Fields = maps.Clone(c.Fields)
	c.SettleOn = slices.Clone(c.SettleOn)
	return c
}
