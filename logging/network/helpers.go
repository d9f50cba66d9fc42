package network

import (
	"context"

	"spinarena/server/logging"
)

const (
	// EventViewerConnected is emitted when a frame stream subscriber attaches.
	EventViewerConnected logging.EventType = "network.viewer_connected"
	// EventViewerDisconnected is emitted when a subscriber goes away.
	EventViewerDisconnected logging.EventType = "network.viewer_disconnected"
)

// ViewerPayload identifies a stream subscriber.
type ViewerPayload struct {
	RemoteAddr string `json:"remoteAddr,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Viewers    int    `json:"viewers"`
}

// ViewerConnected publishes a subscriber attach.
func ViewerConnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ViewerPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventViewerConnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload:  payload,
		Extra:    extra,
	})
}

// ViewerDisconnected publishes a subscriber detach.
func ViewerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ViewerPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventViewerDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload:  payload,
		Extra:    extra,
	})
}
