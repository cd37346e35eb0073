package network

import (
	"context"

	"courtmux/server/logging"
)

const (
	// EventConnected is emitted when a socket completes the handshake.
	EventConnected logging.EventType = "network.connected"
	// EventDisconnected is emitted when a socket goes away.
	EventDisconnected logging.EventType = "network.disconnected"
	// EventRejected is emitted when admission is refused.
	EventRejected logging.EventType = "network.rejected"
)

// ConnPayload captures connection endpoint details.
type ConnPayload struct {
	IPID    string `json:"ipid"`
	Address string `json:"address,omitempty"`
}

// Connected publishes a completed handshake.
func Connected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ConnPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventConnected,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

// Disconnected publishes a socket teardown.
func Disconnected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload ConnPayload, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDisconnected,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    map[string]any{"reason": reason},
	})
}

// Rejected publishes a refused admission (full server, multiclient cap).
func Rejected(ctx context.Context, pub logging.Publisher, payload ConnPayload, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRejected,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    map[string]any{"reason": reason},
	})
}
