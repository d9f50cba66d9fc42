// Package ws streams session frames to presentation clients over websockets.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"spinarena/server/internal/session"
	"spinarena/server/internal/telemetry"
	"spinarena/server/logging"
	loggingnetwork "spinarena/server/logging/network"
)

const (
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	maxMessageSize    = 4096
	defaultSendBuffer = 32
)

// Client message types.
const (
	MessageResync = "resync"
)

type clientMessage struct {
	Type string `json:"type"`
}

type HandlerConfig struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	WriteWait time.Duration
	PongWait  time.Duration
	// SendBuffer is the number of frames queued per viewer before frames are
	// dropped for it.
	SendBuffer int
}

// Handler upgrades viewers and forwards every session frame to them.
type Handler struct {
	session   *session.Session
	logger    telemetry.Logger
	pub       logging.Publisher
	upgrader  websocket.Upgrader
	writeWait time.Duration
	pongWait  time.Duration
	buffer    int

	viewers atomic.Int64
	nextID  atomic.Uint64
}

func NewHandler(sess *session.Session, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	writeWait := cfg.WriteWait
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	pongWait := cfg.PongWait
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}
	return &Handler{
		session:   sess,
		logger:    logger,
		pub:       pub,
		upgrader:  upgrader,
		writeWait: writeWait,
		pongWait:  pongWait,
		buffer:    buffer,
	}
}

// Viewers reports how many streams are currently attached.
func (h *Handler) Viewers() int {
	return int(h.viewers.Load())
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h == nil || h.session == nil {
		nethttp.Error(w, "session unavailable", nethttp.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	frames, cancel := h.session.Subscribe(h.buffer)
	viewer := logging.EntityRef{ID: fmt.Sprintf("viewer-%d", h.nextID.Add(1)), Kind: logging.EntityKindViewer}
	count := int(h.viewers.Add(1))
	initial := h.session.Snapshot()
	loggingnetwork.ViewerConnected(context.Background(), h.pub, initial.Snapshot.Tick, viewer, loggingnetwork.ViewerPayload{
		RemoteAddr: r.RemoteAddr,
		Viewers:    count,
	}, nil)

	reason := h.stream(conn, frames, initial)

	cancel()
	conn.Close()
	count = int(h.viewers.Add(-1))
	loggingnetwork.ViewerDisconnected(context.Background(), h.pub, h.session.Snapshot().Snapshot.Tick, viewer, loggingnetwork.ViewerPayload{
		RemoteAddr: r.RemoteAddr,
		Reason:     reason,
		Viewers:    count,
	}, nil)
}

// stream owns every write to conn. The read loop only parses client requests
// and hands resync requests back to the writer.
func (h *Handler) stream(conn *websocket.Conn, frames <-chan session.Frame, initial session.Frame) string {
	if err := h.writeFrame(conn, initial); err != nil {
		return "write_failed"
	}

	resync := make(chan struct{}, 1)
	readErr := make(chan error, 1)
	go h.readLoop(conn, resync, readErr)

	ping := time.NewTicker(h.pongWait * 9 / 10)
	defer ping.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return "unsubscribed"
			}
			if err := h.writeFrame(conn, frame); err != nil {
				return "write_failed"
			}
		case <-resync:
			if err := h.writeFrame(conn, h.session.Snapshot()); err != nil {
				return "write_failed"
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(h.writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return "ping_failed"
			}
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "closed"
			}
			return "read_failed"
		}
	}
}

func (h *Handler) readLoop(conn *websocket.Conn, resync chan<- struct{}, readErr chan<- error) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logger.Printf("discarding malformed viewer message: %v", err)
			continue
		}
		switch msg.Type {
		case MessageResync:
			select {
			case resync <- struct{}{}:
			default:
			}
		default:
			h.logger.Printf("ignoring viewer message type %q", msg.Type)
		}
	}
}

func (h *Handler) writeFrame(conn *websocket.Conn, frame session.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Printf("failed to marshal frame %d: %v", frame.Sequence, err)
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(h.writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
