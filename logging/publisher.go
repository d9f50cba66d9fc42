package logging

//go:generate go run go.uber.org/mock/mockgen -destination=./mocks/publisher_mock.go -package=mocks . Publisher

import (
	"context"
	"strconv"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a config string onto a severity, defaulting to info.
func ParseSeverity(value string) Severity {
	switch value {
	case "debug":
		return SeverityDebug
	case "warn":
		return SeverityWarn
	case "error":
		return SeverityError
	default:
		return SeverityInfo
	}
}

type EntityKind string

const (
	EntityKindUnknown   EntityKind = "unknown"
	EntityKindPlayer    EntityKind = "player"
	EntityKindCombatant EntityKind = "combatant"
	EntityKindLedger    EntityKind = "ledger"
	EntityKindArena     EntityKind = "arena"
	EntityKindViewer    EntityKind = "viewer"
)

type Event struct {
	Type     EventType      `json:"type"`
	Tick     uint64         `json:"tick"`
	Time     time.Time      `json:"time"`
	RoundID  string         `json:"roundId,omitempty"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// CombatantRef builds the reference for a combatant id.
func CombatantRef(id int, isPlayer bool) EntityRef {
	kind := EntityKindCombatant
	if isPlayer {
		kind = EntityKindPlayer
	}
	return EntityRef{ID: strconv.Itoa(id), Kind: kind}
}

const (
	CategoryGameplay   = "gameplay"
	CategoryCombat     = "combat"
	CategoryEconomy    = "economy"
	CategorySimulation = "simulation"
	CategorySystem     = "system"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

type fieldPublisher struct {
	next   Publisher
	fields map[string]any
}

func (p *fieldPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	p.next.Publish(ctx, mergeFields(event, p.fields))
}

// mergeFields copies fields into the event's Extra without overriding keys the
// event already carries.
func mergeFields(event Event, fields map[string]any) Event {
	if len(fields) == 0 {
		return event
	}
	event = cloneForFields(event)
	if event.Extra == nil {
		event.Extra = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if _, exists := event.Extra[k]; !exists {
			event.Extra[k] = v
		}
	}
	return event
}

type roundPublisher struct {
	next    Publisher
	roundID string
}

func (p *roundPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	if event.RoundID == "" {
		event.RoundID = p.roundID
	}
	p.next.Publish(ctx, event)
}

func cloneForFields(event Event) Event {
	cloned := event
	if len(event.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), event.Targets...)
	}
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		cloned.Extra = copied
	}
	return cloned
}

// WithFields decorates every event published through p with fields, without
// overriding keys the event already carries.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &fieldPublisher{next: p, fields: copied}
}

// WithRound stamps roundID on events that do not carry one.
func WithRound(p Publisher, roundID string) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if roundID == "" {
		return p
	}
	return &roundPublisher{next: p, roundID: roundID}
}
