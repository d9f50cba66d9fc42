package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"spinarena/server/logging"
)

// JSON emits newline-delimited structured events.
type JSON struct {
	mu        sync.Mutex
	writer    *bufio.Writer
	encoder   *json.Encoder
	closer    io.Closer
	autoFlush bool
	stop      chan struct{}
	stopOnce  sync.Once
}

type wireEvent struct {
	Type     logging.EventType   `json:"type"`
	Tick     uint64              `json:"tick"`
	Time     string              `json:"time"`
	RoundID  string              `json:"roundId,omitempty"`
	Severity string              `json:"severity"`
	Category string              `json:"category,omitempty"`
	Actor    logging.EntityRef   `json:"actor"`
	Targets  []logging.EntityRef `json:"targets,omitempty"`
	Payload  any                 `json:"payload,omitempty"`
	Extra    map[string]any      `json:"extra,omitempty"`
}

// NewJSON constructs a JSON sink writing to w. When w is an io.Closer it is
// closed with the sink. A non-positive flushInterval flushes every event.
func NewJSON(w io.Writer, flushInterval time.Duration) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	sink := &JSON{
		writer:    buf,
		encoder:   json.NewEncoder(buf),
		autoFlush: flushInterval <= 0,
		stop:      make(chan struct{}),
	}
	if closer, ok := w.(io.Closer); ok {
		sink.closer = closer
	}
	if flushInterval > 0 {
		go sink.periodicFlush(flushInterval)
	}
	return sink
}

// Write satisfies logging.Sink.
func (s *JSON) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wire := wireEvent{
		Type:     event.Type,
		Tick:     event.Tick,
		Time:     event.Time.Format(time.RFC3339Nano),
		RoundID:  event.RoundID,
		Severity: event.Severity.String(),
		Category: event.Category,
		Actor:    event.Actor,
		Targets:  event.Targets,
		Payload:  event.Payload,
		Extra:    event.Extra,
	}
	if err := s.encoder.Encode(wire); err != nil {
		return err
	}
	if s.autoFlush {
		return s.writer.Flush()
	}
	return nil
}

// Flush writes buffered events through to the underlying writer. The router
// calls it when a round settles.
func (s *JSON) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Flush()
}

// Close flushes buffers and stops the flush loop.
func (s *JSON) Close(context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *JSON) periodicFlush(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}
