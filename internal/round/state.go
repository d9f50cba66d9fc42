// Package round drives a single wagering round: it spawns the combatants,
// advances the fixed-step simulation and settles the ledger exactly once when
// a terminal condition first holds.
package round

import (
	"errors"
	"fmt"

	"spinarena/server/internal/entity"
)

const (
	// StepSeconds is the fixed simulation step.
	StepSeconds = 1.0 / 120.0
	// MaxStepsPerUpdate caps how many steps one Update call may run.
	MaxStepsPerUpdate = 8
	// DefaultTickBudget ends a round after 90 simulated seconds.
	DefaultTickBudget uint64 = 10800

	MinCombatants = 2
	MaxCombatants = 4
)

var (
	ErrInvalidCombatantCount = errors.New("combatant count must be between 2 and 4")
	ErrRoundInProgress       = errors.New("round already in progress")
	ErrNotRunning            = errors.New("no round is running")
	ErrNotReady              = errors.New("settled round must be replayed before the next start")
	ErrInvalidPlayerColor    = errors.New("unknown player colour")
)

// State is the round driver's lifecycle position.
type State int

const (
	StateReady State = iota
	StateRunning
	StateWin
	StateLose
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateWin:
		return "win"
	case StateLose:
		return "lose"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateReady, StateRunning, StateWin, StateLose} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown round state %q", text)
}

// Terminal reports whether the round has been settled.
func (s State) Terminal() bool {
	return s == StateWin || s == StateLose
}

// Finish reasons reported in Result.Reason.
const (
	ReasonEliminated   = "eliminated"
	ReasonLastStanding = "last_standing"
	ReasonTimeout      = "timeout"
)

// Options describe how a round is set up.
type Options struct {
	Combatants  int          `json:"combatants"`
	PlayerColor entity.Color `json:"playerColor"`
	// Booster is the pre-purchased booster, spawned as a pickup at round
	// start. A non-empty booster always pays the side bet.
	Booster entity.Effect `json:"booster"`
	// SideBet pays the side bet. When Booster is empty the booster kind is
	// drawn from the round's RNG.
	SideBet        bool    `json:"sideBet"`
	WinProbability float64 `json:"winProbability"`
	// Seed is parsed as an integer, hashed when non-numeric and replaced by
	// a random seed when blank.
	Seed string `json:"seed,omitempty"`
}

// HasSideBet reports whether starting the round charges the side bet.
func (o Options) HasSideBet() bool {
	return o.SideBet || o.Booster != entity.EffectNone
}

// Validate checks the combatant count and player colour.
func (o Options) Validate() error {
	if o.Combatants < MinCombatants || o.Combatants > MaxCombatants {
		return fmt.Errorf("%w: got %d", ErrInvalidCombatantCount, o.Combatants)
	}
	if o.PlayerColor < entity.ColorRed || o.PlayerColor > entity.ColorYellow {
		return fmt.Errorf("%w: %d", ErrInvalidPlayerColor, o.PlayerColor)
	}
	return nil
}
