package simulation

import (
	"context"

	"spinarena/server/logging"
)

const (
	// EventBacklogDiscarded is emitted when an update had more accumulated
	// time than the step cap allows and the remainder was dropped.
	EventBacklogDiscarded logging.EventType = "simulation.backlog_discarded"
	// EventTickBudgetExhausted is emitted when a round hits its tick limit.
	EventTickBudgetExhausted logging.EventType = "simulation.tick_budget_exhausted"
)

// BacklogDiscardedPayload captures how much simulated time was dropped.
type BacklogDiscardedPayload struct {
	Steps            int     `json:"steps"`
	DiscardedSeconds float64 `json:"discardedSeconds"`
}

// TickBudgetExhaustedPayload captures the budget that was reached.
type TickBudgetExhaustedPayload struct {
	Budget uint64 `json:"budget"`
}

// BacklogDiscarded publishes a warning when catch-up time is dropped.
func BacklogDiscarded(ctx context.Context, pub logging.Publisher, tick uint64, payload BacklogDiscardedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBacklogDiscarded,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindArena},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}

// TickBudgetExhausted publishes the round timeout.
func TickBudgetExhausted(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetExhaustedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetExhausted,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindArena},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}
