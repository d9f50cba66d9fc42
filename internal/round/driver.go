package round

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"spinarena/server/internal/arena"
	"spinarena/server/internal/booster"
	"spinarena/server/internal/combat"
	"spinarena/server/internal/economy"
	"spinarena/server/internal/entity"
	"spinarena/server/internal/outcome"
	"spinarena/server/internal/physics"
	"spinarena/server/internal/rng"
	"spinarena/server/logging"
	loggingboosters "spinarena/server/logging/boosters"
	loggingcombat "spinarena/server/logging/combat"
	loggingeconomy "spinarena/server/logging/economy"
	logginglifecycle "spinarena/server/logging/lifecycle"
	loggingsimulation "spinarena/server/logging/simulation"
)

// spawnJitter bounds the random offset from a quadrant centre.
const spawnJitter = 40.0

// boosterKinds is the draw table for side bets that leave the kind open.
var boosterKinds = []entity.Effect{entity.EffectHealing, entity.EffectGlove, entity.EffectShield}

// Config wires the driver's collaborators. Zero values select defaults.
type Config struct {
	Arena      arena.Arena
	Publisher  logging.Publisher
	TickBudget uint64
	NewID      func() string
}

// Result is the settled outcome of a round.
type Result struct {
	RoundID     string         `json:"roundId"`
	Seed        uint32         `json:"seed"`
	State       State          `json:"state"`
	Win         bool           `json:"win"`
	Reason      string         `json:"reason"`
	Timeout     bool           `json:"timeout,omitempty"`
	Ticks       uint64         `json:"ticks"`
	Params      outcome.Params `json:"params"`
	Wagered     float64        `json:"wagered"`
	RoundProfit float64        `json:"roundProfit"`
	FinalProfit float64        `json:"finalProfit"`
	Credited    float64        `json:"credited"`
	Balance     float64        `json:"balance"`
}

// Driver owns every piece of mutable round state: combatants, the pair
// cooldown table, pickups and the RNG. The ledger is borrowed so the balance
// outlives the round. A Driver is not safe for concurrent use.
type Driver struct {
	arena      arena.Arena
	ledger     *economy.Ledger
	basePub    logging.Publisher
	pub        logging.Publisher
	tickBudget uint64
	newID      func() string

	state      State
	id         string
	opts       Options
	seed       uint32
	rng        *rng.RNG
	params     outcome.Params
	cooldowns  *combat.Cooldowns
	resolver   combat.Resolver
	combatants []*entity.Combatant
	player     *entity.Combatant
	pickups    []booster.Pickup
	nextPickup int

	tick        uint64
	accumulator float64
	result      Result
}

// NewDriver constructs an idle driver settling into ledger.
func NewDriver(ledger *economy.Ledger, cfg Config) *Driver {
	if ledger == nil {
		ledger = economy.NewLedger(economy.StartingBalance, economy.DefaultRules())
	}
	a := cfg.Arena
	if a.Size <= 0 {
		a = arena.Default()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	budget := cfg.TickBudget
	if budget == 0 {
		budget = DefaultTickBudget
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Driver{
		arena:      a,
		ledger:     ledger,
		basePub:    pub,
		pub:        pub,
		tickBudget: budget,
		newID:      newID,
		cooldowns:  combat.NewCooldowns(),
	}
}

// State reports the lifecycle state.
func (d *Driver) State() State { return d.state }

// RoundID returns the id of the current or last round.
func (d *Driver) RoundID() string { return d.id }

// Tick returns the number of steps the current round has run.
func (d *Driver) Tick() uint64 { return d.tick }

// Ledger exposes the borrowed ledger.
func (d *Driver) Ledger() *economy.Ledger { return d.ledger }

// Result returns the settled result. ok is false until the round ends.
func (d *Driver) Result() (Result, bool) {
	return d.result, d.state.Terminal()
}

// Start validates opts, deducts the wager and spawns the combatants. Nothing
// is deducted or spawned when it fails. Only a ready driver starts: a settled
// round has to go through Replay first.
func (d *Driver) Start(opts Options) error {
	switch d.state {
	case StateRunning:
		return ErrRoundInProgress
	case StateWin, StateLose:
		return ErrNotReady
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	hasSideBet := opts.HasSideBet()
	if !d.ledger.CanAffordRound(hasSideBet) {
		loggingeconomy.RoundRejected(context.Background(), d.basePub, 0, logging.EntityRef{Kind: logging.EntityKindLedger}, loggingeconomy.RoundRejectedPayload{
			Balance:  d.ledger.Balance(),
			Required: d.ledger.RoundCost(hasSideBet),
		}, nil)
		return fmt.Errorf("start round: %w", economy.ErrInsufficientBalance)
	}
	if err := d.ledger.StartRound(hasSideBet); err != nil {
		return fmt.Errorf("start round: %w", err)
	}

	seed, ok := rng.ParseSeed(opts.Seed)
	if !ok {
		seed = rng.DefaultSeed()
	}
	d.id = d.newID()
	d.pub = logging.WithRound(d.basePub, d.id)
	d.opts = opts
	d.seed = seed
	d.rng = rng.New(seed)
	d.tick = 0
	d.accumulator = 0
	d.result = Result{}
	d.pickups = nil
	d.nextPickup = 0
	d.cooldowns.Clear()

	controller := outcome.NewController(opts.WinProbability)
	d.params = controller.SampleParams(d.rng)
	d.resolver = combat.Resolver{Cooldowns: d.cooldowns, Params: d.params, RNG: d.rng}

	effect := opts.Booster
	if hasSideBet && effect == entity.EffectNone {
		effect = boosterKinds[d.rng.Int(0, len(boosterKinds)-1)]
	}

	d.spawnCombatants(opts)

	ctx := context.Background()
	loggingeconomy.StakePlaced(ctx, d.pub, 0, d.playerRef(), loggingeconomy.StakePlacedPayload{
		Stake:        d.ledger.Rules().Stake,
		SideBet:      d.ledger.Wagered() - d.ledger.Rules().Stake,
		BalanceAfter: d.ledger.Balance(),
	}, nil)

	if effect != entity.EffectNone {
		if _, err := d.spawnPickup(effect); err != nil {
			return fmt.Errorf("start round: %w", err)
		}
	}

	d.state = StateRunning
	logginglifecycle.RoundStarted(ctx, d.pub, 0, d.playerRef(), logginglifecycle.RoundStartedPayload{
		Seed:           seed,
		Combatants:     opts.Combatants,
		PlayerColor:    opts.PlayerColor.String(),
		Booster:        boosterName(effect),
		WinProbability: controller.WinProbability(),
		Outcome:        d.params.Tag.String(),
	}, nil)
	return nil
}

func (d *Driver) spawnCombatants(opts Options) {
	colors := make([]entity.Color, 0, len(entity.Colors))
	colors = append(colors, opts.PlayerColor)
	for _, c := range entity.Colors {
		if c != opts.PlayerColor {
			colors = append(colors, c)
		}
	}

	quarter := d.arena.Size / 4
	centres := []entity.Vec2{
		{X: d.arena.Origin.X + quarter, Y: d.arena.Origin.Y + quarter},
		{X: d.arena.Origin.X + 3*quarter, Y: d.arena.Origin.Y + 3*quarter},
		{X: d.arena.Origin.X + 3*quarter, Y: d.arena.Origin.Y + quarter},
		{X: d.arena.Origin.X + quarter, Y: d.arena.Origin.Y + 3*quarter},
	}

	d.combatants = make([]*entity.Combatant, 0, opts.Combatants)
	for i := 0; i < opts.Combatants; i++ {
		pos := entity.Vec2{
			X: centres[i].X + d.rng.Range(-spawnJitter, spawnJitter),
			Y: centres[i].Y + d.rng.Range(-spawnJitter, spawnJitter),
		}
		heading := d.rng.Angle()
		rotation := d.rng.Angle()
		isPlayer := i == 0
		speed := entity.DefaultSpeed
		if isPlayer {
			speed *= d.params.PlayerSpeedMultiplier
		}
		c := entity.New(i, colors[i], isPlayer, pos, heading, speed, rotation, entity.SpinRate)
		d.combatants = append(d.combatants, c)
		if isPlayer {
			d.player = c
		}
	}
}

func (d *Driver) spawnPickup(effect entity.Effect) (booster.Pickup, error) {
	p, err := booster.Spawn(d.rng, d.arena, d.nextPickup, effect)
	if err != nil {
		return booster.Pickup{}, err
	}
	d.nextPickup++
	d.pickups = append(d.pickups, p)
	return p, nil
}

// Update feeds elapsed seconds into the fixed-step accumulator and runs up to
// MaxStepsPerUpdate steps. Backlog beyond the cap is discarded. It returns the
// number of steps run.
func (d *Driver) Update(elapsed float64) int {
	if d.state != StateRunning || elapsed <= 0 || math.IsNaN(elapsed) || math.IsInf(elapsed, 0) {
		return 0
	}
	d.accumulator += elapsed
	steps := 0
	for d.accumulator >= StepSeconds && steps < MaxStepsPerUpdate && d.state == StateRunning {
		d.accumulator -= StepSeconds
		d.step()
		steps++
	}
	if d.state != StateRunning {
		d.accumulator = 0
		return steps
	}
	if d.accumulator >= StepSeconds {
		loggingsimulation.BacklogDiscarded(context.Background(), d.pub, d.tick, loggingsimulation.BacklogDiscardedPayload{
			Steps:            steps,
			DiscardedSeconds: d.accumulator,
		}, nil)
		d.accumulator = 0
	}
	return steps
}

// Step runs exactly one fixed step.
func (d *Driver) Step() error {
	if d.state != StateRunning {
		return ErrNotRunning
	}
	d.step()
	return nil
}

// RunToCompletion steps the running round until it settles. This is the
// headless path used by the batch runner.
func (d *Driver) RunToCompletion() (Result, error) {
	if d.state != StateRunning {
		return Result{}, ErrNotRunning
	}
	for d.state == StateRunning {
		d.step()
	}
	return d.result, nil
}

// Replay returns a settled driver to ready. It is a no-op when ready.
func (d *Driver) Replay() error {
	if d.state == StateRunning {
		return ErrRoundInProgress
	}
	d.state = StateReady
	d.combatants = nil
	d.player = nil
	d.pickups = nil
	d.accumulator = 0
	return nil
}

// PurchaseBooster buys a booster mid-round: the side bet is deducted and a
// pickup spawns at a random position.
func (d *Driver) PurchaseBooster(effect entity.Effect) (booster.Pickup, error) {
	if d.state != StateRunning {
		return booster.Pickup{}, ErrNotRunning
	}
	if effect == entity.EffectNone {
		return booster.Pickup{}, booster.ErrNoBooster
	}
	if err := d.ledger.PurchaseSideBet(); err != nil {
		return booster.Pickup{}, fmt.Errorf("purchase booster: %w", err)
	}
	p, err := d.spawnPickup(effect)
	if err != nil {
		return booster.Pickup{}, err
	}
	loggingeconomy.BoosterPurchased(context.Background(), d.pub, d.tick, d.playerRef(), loggingeconomy.BoosterPurchasedPayload{
		Booster: effect.String(),
		Cost:    d.ledger.Rules().SideBetCost,
	}, nil)
	return p, nil
}

// ArmedBooster reports the glove or shield currently armed on the player.
func (d *Driver) ArmedBooster() entity.Effect {
	if d.player == nil {
		return entity.EffectNone
	}
	return d.player.Booster
}

// PickupOverlaps reports whether the player currently touches pickup id.
func (d *Driver) PickupOverlaps(id int) bool {
	for _, p := range d.pickups {
		if p.ID == id {
			return booster.Overlaps(d.player, p)
		}
	}
	return false
}

func (d *Driver) step() {
	d.tick++
	ctx := context.Background()

	for _, c := range d.combatants {
		c.AdvanceTimers(StepSeconds)
	}

	pairs := physics.Step(d.arena, d.combatants, StepSeconds)
	nowMillis := float64(d.tick) * StepSeconds * 1000
	raw := d.resolver.ResolveAll(pairs, nowMillis)
	d.publishClashes(ctx, pairs, raw)

	before := make(map[*entity.Combatant]float64, len(raw))
	for _, ev := range raw {
		if _, seen := before[ev.Victim]; !seen {
			before[ev.Victim] = ev.Victim.Health
		}
	}
	applied := combat.ApplyDamageEvents(raw)
	for _, ev := range applied.Blocked {
		loggingcombat.Blocked(ctx, d.pub, d.tick, d.ref(ev.Attacker), d.ref(ev.Victim), loggingcombat.BlockedPayload{
			Kind:   ev.Kind.String(),
			Amount: ev.Amount,
		}, nil)
		loggingboosters.Consumed(ctx, d.pub, d.tick, d.ref(ev.Victim), d.ref(ev.Attacker), loggingboosters.ConsumedPayload{
			Booster: entity.EffectShield.String(),
			Amount:  ev.Amount,
		}, nil)
	}
	for _, ev := range applied.Events {
		d.ledger.ProcessDamageEvent(ev)
		healthBefore := before[ev.Victim]
		healthAfter := math.Max(0, healthBefore-ev.Amount)
		before[ev.Victim] = healthAfter
		loggingcombat.Damage(ctx, d.pub, d.tick, d.ref(ev.Attacker), d.ref(ev.Victim), loggingcombat.DamagePayload{
			Kind:         ev.Kind.String(),
			Amount:       ev.Amount,
			HealthBefore: healthBefore,
			HealthAfter:  healthAfter,
			Boosted:      ev.Boosted,
		}, nil)
		if ev.Boosted {
			loggingboosters.Consumed(ctx, d.pub, d.tick, d.ref(ev.Attacker), d.ref(ev.Victim), loggingboosters.ConsumedPayload{
				Booster: entity.EffectGlove.String(),
				Amount:  ev.Amount,
			}, nil)
		}
		if healthAfter == 0 && healthBefore > 0 {
			loggingcombat.Defeat(ctx, d.pub, d.tick, d.ref(ev.Attacker), d.ref(ev.Victim), loggingcombat.DefeatPayload{
				Kind: ev.Kind.String(),
			}, nil)
		}
	}

	var collected []booster.Pickup
	d.pickups, collected = booster.CollectOverlapping(d.player, d.pickups)
	for _, p := range collected {
		payload := loggingboosters.CollectedPayload{Booster: p.Effect.String()}
		if p.Effect == entity.EffectHealing {
			payload.Healed = booster.HealAmount
		}
		loggingboosters.Collected(ctx, d.pub, d.tick, d.playerRef(), payload, nil)
	}

	d.checkTerminal()
}

func (d *Driver) publishClashes(ctx context.Context, pairs []physics.Pair, raw []combat.DamageEvent) {
	if len(pairs) == 0 {
		return
	}
	// A ready pair that produced no events was a weapon clash; the resolver
	// has already stamped its cooldown.
	nowMillis := float64(d.tick) * StepSeconds * 1000
	for _, pair := range pairs {
		if hasEventFor(raw, pair) {
			continue
		}
		if !d.cooldowns.StampedAt(pair.A.ID, pair.B.ID, nowMillis) {
			continue
		}
		loggingcombat.WeaponClash(ctx, d.pub, d.tick, d.ref(pair.A), d.ref(pair.B), nil)
	}
}

func hasEventFor(events []combat.DamageEvent, pair physics.Pair) bool {
	for _, ev := range events {
		if (ev.Attacker == pair.A && ev.Victim == pair.B) || (ev.Attacker == pair.B && ev.Victim == pair.A) {
			return true
		}
	}
	return false
}

func (d *Driver) checkTerminal() {
	if !d.player.Active() {
		d.finish(false, ReasonEliminated)
		return
	}
	active := 0
	for _, c := range d.combatants {
		if c.Active() {
			active++
		}
	}
	if active == 1 {
		d.finish(true, ReasonLastStanding)
		return
	}
	if d.tick >= d.tickBudget {
		loggingsimulation.TickBudgetExhausted(context.Background(), d.pub, d.tick, loggingsimulation.TickBudgetExhaustedPayload{
			Budget: d.tickBudget,
		}, nil)
		d.finish(false, ReasonTimeout)
	}
}

// finish settles the ledger. It runs once per round because the state leaves
// running before the next step can be taken.
func (d *Driver) finish(win bool, reason string) {
	credited := d.ledger.FinaliseRound(win)
	d.state = StateLose
	if win {
		d.state = StateWin
	}
	d.result = Result{
		RoundID:     d.id,
		Seed:        d.seed,
		State:       d.state,
		Win:         win,
		Reason:      reason,
		Timeout:     reason == ReasonTimeout,
		Ticks:       d.tick,
		Params:      d.params,
		Wagered:     d.ledger.Wagered(),
		RoundProfit: d.ledger.RoundProfit(),
		FinalProfit: d.ledger.FinalProfit(),
		Credited:    credited,
		Balance:     d.ledger.Balance(),
	}

	ctx := context.Background()
	loggingeconomy.RoundSettled(ctx, d.pub, d.tick, d.playerRef(), loggingeconomy.RoundSettledPayload{
		Win:          win,
		RoundProfit:  d.result.RoundProfit,
		FinalProfit:  d.result.FinalProfit,
		Credited:     credited,
		BalanceAfter: d.result.Balance,
	}, nil)
	logginglifecycle.RoundFinished(ctx, d.pub, d.tick, d.playerRef(), logginglifecycle.RoundFinishedPayload{
		Result:  d.state.String(),
		Reason:  reason,
		Ticks:   d.tick,
		Timeout: d.result.Timeout,
	}, nil)
}

func (d *Driver) ref(c *entity.Combatant) logging.EntityRef {
	if c == nil {
		return logging.EntityRef{Kind: logging.EntityKindUnknown}
	}
	return logging.CombatantRef(c.ID, c.IsPlayer)
}

func (d *Driver) playerRef() logging.EntityRef {
	if d.player == nil {
		return logging.EntityRef{Kind: logging.EntityKindPlayer}
	}
	return d.ref(d.player)
}

func boosterName(effect entity.Effect) string {
	if effect == entity.EffectNone {
		return ""
	}
	return effect.String()
}
