package economy

import (
	"context"

	"spinarena/server/logging"
)

const (
	// EventStakePlaced is emitted when a round's stake is deducted.
	EventStakePlaced logging.EventType = "economy.stake_placed"
	// EventRoundRejected is emitted when the balance cannot cover a round.
	EventRoundRejected logging.EventType = "economy.round_rejected"
	// EventBoosterPurchased is emitted when a side bet is bought.
	EventBoosterPurchased logging.EventType = "economy.booster_purchased"
	// EventRoundSettled is emitted once per round when the payout is credited.
	EventRoundSettled logging.EventType = "economy.round_settled"
)

// StakePlacedPayload records the deduction.
type StakePlacedPayload struct {
	Stake        float64 `json:"stake"`
	SideBet      float64 `json:"sideBet,omitempty"`
	BalanceAfter float64 `json:"balanceAfter"`
}

// RoundRejectedPayload records why the round could not start.
type RoundRejectedPayload struct {
	Balance  float64 `json:"balance"`
	Required float64 `json:"required"`
}

// BoosterPurchasedPayload records the side bet.
type BoosterPurchasedPayload struct {
	Booster string  `json:"booster"`
	Cost    float64 `json:"cost"`
}

// RoundSettledPayload records the final accounting of a round.
type RoundSettledPayload struct {
	Win          bool    `json:"win"`
	RoundProfit  float64 `json:"roundProfit"`
	FinalProfit  float64 `json:"finalProfit"`
	Credited     float64 `json:"credited"`
	BalanceAfter float64 `json:"balanceAfter"`
}

// StakePlaced publishes a stake deduction.
func StakePlaced(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StakePlacedPayload, extra map[string]any) {
	publish(ctx, pub, EventStakePlaced, logging.SeverityInfo, tick, actor, payload, extra)
}

// RoundRejected publishes a warning when the stake cannot be covered.
func RoundRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RoundRejectedPayload, extra map[string]any) {
	publish(ctx, pub, EventRoundRejected, logging.SeverityWarn, tick, actor, payload, extra)
}

// BoosterPurchased publishes a side bet purchase.
func BoosterPurchased(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BoosterPurchasedPayload, extra map[string]any) {
	publish(ctx, pub, EventBoosterPurchased, logging.SeverityInfo, tick, actor, payload, extra)
}

// RoundSettled publishes the round payout.
func RoundSettled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RoundSettledPayload, extra map[string]any) {
	publish(ctx, pub, EventRoundSettled, logging.SeverityInfo, tick, actor, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryEconomy,
		Payload:  payload,
		Extra:    extra,
	})
}
