package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"spinarena/server/internal/booster"
	"spinarena/server/internal/economy"
	"spinarena/server/internal/entity"
	"spinarena/server/internal/round"
	"spinarena/server/internal/telemetry"
	"spinarena/server/logging"
	"spinarena/server/logging/lifecycle"
	"spinarena/server/logging/sinks"
)

func fixedClock() logging.Clock {
	now := time.Unix(1700000000, 0)
	return logging.ClockFunc(func() time.Time { return now })
}

func winningOptions() round.Options {
	return round.Options{Combatants: 2, PlayerColor: entity.ColorBlue, WinProbability: 1, Seed: "42"}
}

func TestStartRoundBroadcastsStartedFrame(t *testing.T) {
	s := New(Config{Clock: fixedClock()})
	frames, cancel := s.Subscribe(4)
	defer cancel()

	frame, err := s.StartRound(context.Background(), winningOptions())
	if err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if frame.Type != FrameStarted || frame.Sequence != 1 {
		t.Fatalf("unexpected frame %+v", frame)
	}
	if frame.SessionID != s.ID() {
		t.Fatalf("frame session %q, want %q", frame.SessionID, s.ID())
	}
	if frame.Snapshot.State != round.StateRunning || len(frame.Snapshot.Combatants) != 2 {
		t.Fatalf("unexpected snapshot %+v", frame.Snapshot)
	}

	select {
	case got := <-frames:
		if got.Sequence != frame.Sequence {
			t.Fatalf("subscriber saw seq %d, want %d", got.Sequence, frame.Sequence)
		}
	default:
		t.Fatalf("expected subscriber to receive the started frame")
	}
	if s.Balance() != economy.StartingBalance-economy.Stake {
		t.Fatalf("expected stake deducted, balance=%v", s.Balance())
	}
}

func TestStartRoundErrors(t *testing.T) {
	s := New(Config{StartingBalance: 50})
	_, err := s.StartRound(context.Background(), winningOptions())
	if !errors.Is(err, economy.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	s = New(Config{})
	if _, err := s.StartRound(context.Background(), round.Options{Combatants: 7}); !errors.Is(err, round.ErrInvalidCombatantCount) {
		t.Fatalf("expected invalid combatant count, got %v", err)
	}
	if _, err := s.StartRound(context.Background(), winningOptions()); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if _, err := s.StartRound(context.Background(), winningOptions()); !errors.Is(err, round.ErrRoundInProgress) {
		t.Fatalf("expected round in progress, got %v", err)
	}
	if _, err := s.Replay(); !errors.Is(err, round.ErrRoundInProgress) {
		t.Fatalf("expected replay to be refused mid-round, got %v", err)
	}
}

func TestAdvanceSettlesRoundOnce(t *testing.T) {
	counters := telemetry.NewCounters()
	s := New(Config{Clock: fixedClock(), Metrics: counters})
	if _, err := s.StartRound(context.Background(), winningOptions()); err != nil {
		t.Fatalf("StartRound: %v", err)
	}

	var settled []Frame
	limit := int(round.DefaultTickBudget/round.MaxStepsPerUpdate) + 10
	for i := 0; i < limit; i++ {
		frame, ok := s.Advance(1)
		if !ok {
			break
		}
		if frame.Type == FrameSettled {
			settled = append(settled, frame)
		}
	}
	if len(settled) != 1 {
		t.Fatalf("expected exactly one settled frame, got %d", len(settled))
	}
	result := settled[0].Snapshot.Result
	if result == nil || !result.Win {
		t.Fatalf("expected a winning result, got %+v", result)
	}
	if _, ok := s.Advance(1); ok {
		t.Fatalf("advance after settlement must not run steps")
	}
	if _, err := s.StartRound(context.Background(), winningOptions()); !errors.Is(err, round.ErrNotReady) {
		t.Fatalf("expected ErrNotReady before replay, got %v", err)
	}
	if got := counters.Snapshot()["session_rounds_settled_total"]; got != 1 {
		t.Fatalf("settled counter = %d, want 1", got)
	}

	frame, err := s.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if frame.Type != FrameReplay || frame.Snapshot.State != round.StateReady {
		t.Fatalf("unexpected replay frame %+v", frame)
	}
}

func TestAdvanceIgnoresIdleSession(t *testing.T) {
	s := New(Config{})
	if _, ok := s.Advance(1); ok {
		t.Fatalf("idle session must not produce frames")
	}
}

func TestPurchaseBooster(t *testing.T) {
	s := New(Config{})
	if _, _, err := s.PurchaseBooster(entity.EffectShield); !errors.Is(err, round.ErrNotRunning) {
		t.Fatalf("expected not running, got %v", err)
	}
	if _, err := s.StartRound(context.Background(), winningOptions()); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if _, _, err := s.PurchaseBooster(entity.EffectNone); !errors.Is(err, booster.ErrNoBooster) {
		t.Fatalf("expected no booster error, got %v", err)
	}
	before := s.Balance()
	pickup, frame, err := s.PurchaseBooster(entity.EffectGlove)
	if err != nil {
		t.Fatalf("PurchaseBooster: %v", err)
	}
	if pickup.Effect != entity.EffectGlove {
		t.Fatalf("unexpected pickup %+v", pickup)
	}
	if frame.Type != FrameBooster || len(frame.Snapshot.Pickups) == 0 {
		t.Fatalf("expected booster frame with pickups, got %+v", frame)
	}
	if s.Balance() != before-economy.SideBetCost {
		t.Fatalf("expected side bet deducted, balance=%v", s.Balance())
	}
}

func TestSlowSubscriberDropsFrames(t *testing.T) {
	s := New(Config{})
	frames, cancel := s.Subscribe(1)
	if _, err := s.StartRound(context.Background(), winningOptions()); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	s.Advance(1)
	s.Advance(1)
	if s.Dropped() != 2 {
		t.Fatalf("dropped = %d, want 2", s.Dropped())
	}
	if s.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", s.Subscribers())
	}
	cancel()
	cancel()
	if s.Subscribers() != 0 {
		t.Fatalf("expected subscriber removed")
	}
	<-frames
	if _, open := <-frames; open {
		t.Fatalf("expected channel closed after cancel")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Config{TickRate: 240})
	if _, err := s.StartRound(context.Background(), winningOptions()); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if s.Snapshot().Snapshot.Tick == 0 {
		t.Fatalf("expected Run to advance the round")
	}
}

func TestRoundEventsCarrySessionID(t *testing.T) {
	memory := sinks.NewMemorySink()
	s := New(Config{Round: round.Config{Publisher: memory}})
	if _, err := s.StartRound(context.Background(), winningOptions()); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	started := memory.OfType(lifecycle.EventRoundStarted)
	if len(started) != 1 {
		t.Fatalf("expected one round started event, got %d", len(started))
	}
	if got := started[0].Extra["sessionId"]; got != s.ID() {
		t.Fatalf("expected sessionId %q, got %v", s.ID(), got)
	}
}
