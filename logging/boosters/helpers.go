package boosters

import (
	"context"

	"spinarena/server/logging"
)

const (
	// EventCollected is emitted when the player picks up a booster.
	EventCollected logging.EventType = "boosters.collected"
	// EventConsumed is emitted when an armed glove or shield fires.
	EventConsumed logging.EventType = "boosters.consumed"
)

// CollectedPayload describes a pickup.
type CollectedPayload struct {
	Booster string  `json:"booster"`
	Healed  float64 `json:"healed,omitempty"`
}

// ConsumedPayload describes the hit an armed booster modified.
type ConsumedPayload struct {
	Booster string  `json:"booster"`
	Amount  float64 `json:"amount"`
}

// Collected publishes a booster pickup.
func Collected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CollectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCollected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		Extra:    extra,
	})
}

// Consumed publishes the use of an armed booster against target.
func Consumed(ctx context.Context, pub logging.Publisher, tick uint64, actor, target logging.EntityRef, payload ConsumedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventConsumed,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
		Extra:    extra,
	})
}
