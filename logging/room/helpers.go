package room

import (
	"context"

	"courtmux/server/logging"
)

const (
	// EventTransition is emitted when a session commits an area change.
	EventTransition logging.EventType = "room.transition"
	// EventMusic is emitted when a track starts playing in an area.
	EventMusic logging.EventType = "room.music"
	// EventLockChanged is emitted when an area's lock state changes.
	EventLockChanged logging.EventType = "room.lock_changed"
	// EventHide is emitted when a session hides in or emerges from evidence.
	EventHide logging.EventType = "room.hide"
)

// TransitionPayload captures where a session moved.
type TransitionPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Transition publishes a committed area change.
func Transition(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, hub string, payload TransitionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTransition,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryRoom,
		Hub:      hub,
		Area:     payload.To,
		Payload:  payload,
	})
}

// MusicPayload captures a song start.
type MusicPayload struct {
	Song     string `json:"song"`
	Showname string `json:"showname"`
}

// Music publishes a song start.
func Music(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, hub, area string, payload MusicPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMusic,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryRoom,
		Hub:      hub,
		Area:     area,
		Payload:  payload,
	})
}

// Hide publishes a hide or emerge.
func Hide(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, hub, area, detail string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventHide,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryRoom,
		Hub:      hub,
		Area:     area,
		Payload:  map[string]string{"detail": detail},
	})
}

// Activity publishes any other room-log record under a kind-derived type.
func Activity(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, hub, area, kind, message string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     logging.EventType("room." + kind),
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryRoom,
		Hub:      hub,
		Area:     area,
		Payload:  map[string]string{"message": message},
	})
}

// LockChanged publishes a lock-state transition for an area.
func LockChanged(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, hub, area, state string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLockChanged,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryRoom,
		Hub:      hub,
		Area:     area,
		Payload:  map[string]string{"state": state},
	})
}
