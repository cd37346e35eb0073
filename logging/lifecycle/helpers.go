package lifecycle

import (
	"context"

	"courtmux/server/logging"
)

const (
	// EventSessionJoined is emitted when a session completes admission.
	EventSessionJoined logging.EventType = "lifecycle.session_joined"
	// EventSessionLeft is emitted when a session is torn down.
	EventSessionLeft logging.EventType = "lifecycle.session_left"
	// EventTopologyApplied is emitted when a hub layout is (re)installed.
	EventTopologyApplied logging.EventType = "lifecycle.topology_applied"
)

// SessionJoinedPayload captures where a fresh session landed.
type SessionJoinedPayload struct {
	Hub  string `json:"hub"`
	Area string `json:"area"`
}

// SessionLeftPayload captures the reason a session left.
type SessionLeftPayload struct {
	Reason string `json:"reason"`
}

// SessionJoined publishes a session join event.
func SessionJoined(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionJoinedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSessionJoined,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Hub:      payload.Hub,
		Area:     payload.Area,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// SessionLeft publishes a session teardown event.
func SessionLeft(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload SessionLeftPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSessionLeft,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// TopologyApplied publishes a layout install with its hub count.
func TopologyApplied(ctx context.Context, pub logging.Publisher, hubs int) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTopologyApplied,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload:  map[string]int{"hubs": hubs},
	})
}
