// Package session owns the process-lifetime balance and round driver behind
// the interactive server. Every call is serialised under one mutex; frames are
// fanned out to subscribers after each state change.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"spinarena/server/internal/booster"
	"spinarena/server/internal/economy"
	"spinarena/server/internal/entity"
	"spinarena/server/internal/round"
	"spinarena/server/internal/telemetry"
	"spinarena/server/logging"
)

const (
	tracerName = "spinarena/server/internal/session"

	// DefaultTickRate is how often Run feeds wall time into the driver.
	DefaultTickRate = 60
	// DefaultSubscriberBuffer is the frame backlog kept per subscriber.
	DefaultSubscriberBuffer = 16
)

// FrameType tags what produced a frame.
type FrameType string

const (
	FrameState   FrameType = "state"
	FrameStarted FrameType = "started"
	FrameSettled FrameType = "settled"
	FrameReplay  FrameType = "replay"
	FrameBooster FrameType = "booster"
)

// Frame is the message streamed to the presentation layer.
type Frame struct {
	Type       FrameType      `json:"type"`
	SessionID  string         `json:"sessionId"`
	Sequence   uint64         `json:"seq"`
	ServerTime int64          `json:"serverTime"`
	Snapshot   round.Snapshot `json:"snapshot"`
}

// Config wires a session's collaborators. Zero values select defaults.
type Config struct {
	StartingBalance float64
	Rules           economy.Rules
	Round           round.Config
	TickRate        int
	Clock           logging.Clock
	Logger          telemetry.Logger
	Metrics         telemetry.Metrics
	Tracer          trace.Tracer
}

// Session is safe for concurrent use.
type Session struct {
	id      string
	clock   logging.Clock
	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  trace.Tracer
	rate    int

	mu      sync.Mutex
	ledger  *economy.Ledger
	driver  *round.Driver
	seq     uint64
	subs    map[int]chan Frame
	nextSub int
	dropped uint64
}

// New creates a session with a funded ledger and an idle driver.
func New(cfg Config) *Session {
	balance := cfg.StartingBalance
	if balance <= 0 {
		balance = economy.StartingBalance
	}
	rules := cfg.Rules
	if rules == (economy.Rules{}) {
		rules = economy.DefaultRules()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	rate := cfg.TickRate
	if rate <= 0 {
		rate = DefaultTickRate
	}
	id := uuid.NewString()
	roundCfg := cfg.Round
	if roundCfg.Publisher != nil {
		roundCfg.Publisher = logging.WithFields(roundCfg.Publisher, map[string]any{"sessionId": id})
	}
	ledger := economy.NewLedger(balance, rules)
	return &Session{
		id:      id,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		rate:    rate,
		ledger:  ledger,
		driver:  round.NewDriver(ledger, roundCfg),
		subs:    make(map[int]chan Frame),
	}
}

// ID returns the session identifier carried on every frame.
func (s *Session) ID() string { return s.id }

// Balance reports the current ledger balance.
func (s *Session) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balance()
}

// StartRound starts a round with opts and broadcasts the opening frame.
func (s *Session) StartRound(ctx context.Context, opts round.Options) (Frame, error) {
	_, span := s.tracer.Start(ctx, "session.start_round", trace.WithAttributes(
		attribute.String("session_id", s.id),
		attribute.Int("combatants", opts.Combatants),
		attribute.String("player_color", opts.PlayerColor.String()),
		attribute.Float64("win_probability", opts.WinProbability),
		attribute.Bool("side_bet", opts.HasSideBet()),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.driver.Start(opts); err != nil {
		span.RecordError(err)
		s.metrics.Add("session_rounds_rejected_total", 1)
		return Frame{}, err
	}
	span.SetAttributes(attribute.String("round_id", s.driver.RoundID()))
	s.metrics.Add("session_rounds_started_total", 1)
	return s.broadcastLocked(FrameStarted), nil
}

// Replay returns a settled round to ready.
func (s *Session) Replay() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.driver.Replay(); err != nil {
		return Frame{}, err
	}
	return s.broadcastLocked(FrameReplay), nil
}

// PurchaseBooster buys a booster for the running round.
func (s *Session) PurchaseBooster(effect entity.Effect) (booster.Pickup, Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.driver.PurchaseBooster(effect)
	if err != nil {
		return booster.Pickup{}, Frame{}, err
	}
	s.metrics.Add("session_boosters_purchased_total", 1)
	return p, s.broadcastLocked(FrameBooster), nil
}

// Snapshot returns the current state without broadcasting it.
func (s *Session) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked(FrameState)
}

// Advance feeds elapsed wall seconds into the driver. A frame is broadcast when
// at least one step ran; the bool reports whether that happened.
func (s *Session) Advance(elapsed float64) (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver.State() != round.StateRunning {
		return Frame{}, false
	}
	if s.driver.Update(elapsed) == 0 {
		return Frame{}, false
	}
	if s.driver.State().Terminal() {
		s.metrics.Add("session_rounds_settled_total", 1)
		return s.broadcastLocked(FrameSettled), true
	}
	return s.broadcastLocked(FrameState), true
}

// Subscribe registers a frame listener. The returned cancel func removes it
// and closes the channel. A subscriber that falls behind loses frames rather
// than stalling the session.
func (s *Session) Subscribe(buffer int) (<-chan Frame, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	ch := make(chan Frame, buffer)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.metrics.Store("session_subscribers", uint64(len(s.subs)))
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
			s.metrics.Store("session_subscribers", uint64(len(s.subs)))
		})
	}
	return ch, cancel
}

// Subscribers reports how many listeners are registered.
func (s *Session) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Dropped reports how many frames were discarded for slow subscribers.
func (s *Session) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Run advances the driver from the wall clock until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	interval := time.Second / time.Duration(s.rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	budgetSeconds := interval.Seconds()
	last := s.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.clock.Now()
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = budgetSeconds
			}
			last = now
			s.Advance(dt)
		}
	}
}

func (s *Session) frameLocked(kind FrameType) Frame {
	return Frame{
		Type:       kind,
		SessionID:  s.id,
		Sequence:   s.seq,
		ServerTime: s.clock.Now().UnixMilli(),
		Snapshot:   s.driver.Snapshot(),
	}
}

func (s *Session) broadcastLocked(kind FrameType) Frame {
	s.seq++
	frame := s.frameLocked(kind)
	for id, ch := range s.subs {
		select {
		case ch <- frame:
		default:
			s.dropped++
			s.metrics.Add("session_frames_dropped_total", 1)
			s.logger.Printf("dropping frame %d for slow subscriber %d", frame.Sequence, id)
		}
	}
	return frame
}
