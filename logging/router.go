package logging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// Flusher is implemented by sinks that buffer writes. The router flushes them
// whenever a round settles so a finished round is never left half written.
type Flusher interface {
	Flush() error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// ErrDuplicateSink is returned when two sinks share a name.
var ErrDuplicateSink = errors.New("duplicate sink name")

// RoundTally counts the events the router handled for one round.
type RoundTally struct {
	RoundID string `json:"roundId"`
	Events  uint64 `json:"events"`
	Dropped uint64 `json:"dropped"`
	Settled bool   `json:"settled"`
}

type RouterStats struct {
	EventsTotal   uint64       `json:"eventsTotal"`
	DroppedTotal  uint64       `json:"droppedTotal"`
	OpenRounds    int          `json:"openRounds"`
	RecentRounds  []RoundTally `json:"recentRounds,omitempty"`
	DisabledSinks []string     `json:"disabledSinks,omitempty"`
}

// Router fans published events out to its sinks and keeps a tally per round.
// Publishing never blocks the round driver: when the queue is full, or the
// router is closed, the event is dropped and charged to its round.
type Router struct {
	cfg      Config
	clock    Clock
	fallback *log.Logger
	queue    chan Event
	stop     chan struct{}
	workers  []*sinkWorker
	wg       sync.WaitGroup
	closed   atomic.Bool

	mu          sync.Mutex
	events      uint64
	dropped     uint64
	open        map[string]*RoundTally
	history     []RoundTally
	nextDropLog time.Time
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	cfg = cfg.withDefaults()
	r := &Router{
		cfg:      cfg,
		clock:    clock,
		fallback: log.New(os.Stderr, "[logging] ", log.LstdFlags),
		queue:    make(chan Event, cfg.BufferSize),
		stop:     make(chan struct{}),
		open:     make(map[string]*RoundTally),
	}

	inbox := min(max(cfg.BufferSize, 32), 1024)
	seen := make(map[string]bool, len(namedSinks))
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		if seen[named.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSink, named.Name)
		}
		seen[named.Name] = true
		r.workers = append(r.workers, &sinkWorker{
			name:     named.Name,
			sink:     named.Sink,
			inbox:    make(chan delivery, inbox),
			limit:    cfg.SinkFailureLimit,
			fallback: r.fallback,
		})
	}

	r.wg.Add(1 + len(r.workers))
	go r.dispatch()
	for _, w := range r.workers {
		w := w
		go func() {
			defer r.wg.Done()
			w.run()
		}()
	}
	return r, nil
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	defer func() {
		for _, w := range r.workers {
			close(w.inbox)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.route(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.route(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) route(event Event) {
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.cfg.Fields)
	settles := r.cfg.settles(event.Type)

	r.mu.Lock()
	r.events++
	if event.RoundID != "" {
		tally := r.tallyLocked(event.RoundID)
		tally.Events++
		if settles {
			r.settleLocked(tally)
		}
	}
	r.mu.Unlock()

	for _, w := range r.workers {
		w.deliver(delivery{event: cloneForFields(event), flush: settles})
	}
}

// tallyLocked returns the tally for roundID. Late events for a settled round
// are charged to its history entry.
func (r *Router) tallyLocked(roundID string) *RoundTally {
	if tally, ok := r.open[roundID]; ok {
		return tally
	}
	for i := range r.history {
		if r.history[i].RoundID == roundID {
			return &r.history[i]
		}
	}
	tally := &RoundTally{RoundID: roundID}
	r.open[roundID] = tally
	return tally
}

func (r *Router) settleLocked(tally *RoundTally) {
	if tally.Settled {
		return
	}
	tally.Settled = true
	delete(r.open, tally.RoundID)
	r.history = append(r.history, *tally)
	if extra := len(r.history) - r.cfg.RoundHistory; extra > 0 {
		r.history = slices.Delete(r.history, 0, extra)
	}
}

// Publish queues event for delivery. Events without a type are ignored.
func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" {
		return
	}
	if r.closed.Load() {
		r.drop(event, "router closed")
		return
	}
	select {
	case r.queue <- event:
	default:
		r.drop(event, "queue full")
	}
}

func (r *Router) drop(event Event, reason string) {
	now := r.clock.Now()
	r.mu.Lock()
	r.dropped++
	if event.RoundID != "" {
		r.tallyLocked(event.RoundID).Dropped++
	}
	warn := !now.Before(r.nextDropLog)
	if warn {
		r.nextDropLog = now.Add(r.cfg.DropWarnInterval)
	}
	r.mu.Unlock()
	if warn {
		r.fallback.Printf("dropping event (%s) type=%s round=%s tick=%d", reason, event.Type, event.RoundID, event.Tick)
	}
}

// Close stops accepting events, routes what is queued and closes every sink.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var errs []error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", w.name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	stats := RouterStats{
		EventsTotal:  r.events,
		DroppedTotal: r.dropped,
		OpenRounds:   len(r.open),
		RecentRounds: slices.Clone(r.history),
	}
	r.mu.Unlock()
	for _, w := range r.workers {
		if w.disabled.Load() {
			stats.DisabledSinks = append(stats.DisabledSinks, w.name)
		}
	}
	return stats
}

// Round reports the tally for roundID, whether it is still open or among the
// retained settled rounds.
func (r *Router) Round(roundID string) (RoundTally, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tally, ok := r.open[roundID]; ok {
		return *tally, true
	}
	for _, tally := range r.history {
		if tally.RoundID == roundID {
			return tally, true
		}
	}
	return RoundTally{}, false
}

func (r *Router) Sink(name string) Sink {
	for _, w := range r.workers {
		if w.name == name {
			return w.sink
		}
	}
	return nil
}

type delivery struct {
	event Event
	flush bool
}

// sinkWorker owns one sink. After limit consecutive failures it stops
// writing and discards what it receives.
type sinkWorker struct {
	name     string
	sink     Sink
	inbox    chan delivery
	limit    int
	fallback *log.Logger
	failures int
	disabled atomic.Bool
}

func (w *sinkWorker) deliver(d delivery) {
	if w.disabled.Load() {
		return
	}
	select {
	case w.inbox <- d:
	default:
		w.fallback.Printf("sink %s backlog full, dropping event type=%s round=%s", w.name, d.event.Type, d.event.RoundID)
	}
}

func (w *sinkWorker) run() {
	for d := range w.inbox {
		if w.disabled.Load() {
			continue
		}
		w.record(w.sink.Write(d.event))
		if !d.flush || w.disabled.Load() {
			continue
		}
		if flusher, ok := w.sink.(Flusher); ok {
			w.record(flusher.Flush())
		}
	}
}

func (w *sinkWorker) record(err error) {
	if err == nil {
		w.failures = 0
		return
	}
	w.failures++
	if w.failures < w.limit {
		w.fallback.Printf("sink %s write failed (%d/%d): %v", w.name, w.failures, w.limit, err)
		return
	}
	w.disabled.Store(true)
	w.fallback.Printf("sink %s disabled after %d consecutive failures: %v", w.name, w.failures, err)
}
