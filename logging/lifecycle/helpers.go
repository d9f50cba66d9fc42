package lifecycle

import (
	"context"

	"spinarena/server/logging"
)

const (
	// EventRoundStarted is emitted after combatants are spawned.
	EventRoundStarted logging.EventType = "lifecycle.round_started"
	// EventRoundFinished is emitted when a round reaches a terminal state.
	EventRoundFinished logging.EventType = "lifecycle.round_finished"
)

// RoundStartedPayload captures the round setup.
type RoundStartedPayload struct {
	Seed           uint32  `json:"seed"`
	Combatants     int     `json:"combatants"`
	PlayerColor    string  `json:"playerColor"`
	Booster        string  `json:"booster,omitempty"`
	WinProbability float64 `json:"winProbability"`
	Outcome        string  `json:"outcome"`
}

// RoundFinishedPayload captures how a round ended.
type RoundFinishedPayload struct {
	Result  string `json:"result"`
	Reason  string `json:"reason"`
	Ticks   uint64 `json:"ticks"`
	Timeout bool   `json:"timeout,omitempty"`
}

// RoundStarted publishes a round start event.
func RoundStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RoundStartedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoundStarted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		Extra:    extra,
	})
}

// RoundFinished publishes a round end event.
func RoundFinished(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RoundFinishedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoundFinished,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		Extra:    extra,
	})
}
