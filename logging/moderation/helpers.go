package moderation

import (
	"context"

	"courtmux/server/logging"
)

const (
	// EventLogin is emitted when a session authenticates as moderator.
	EventLogin logging.EventType = "moderation.login"
	// EventLoginFailed is emitted on a failed moderator login attempt.
	EventLoginFailed logging.EventType = "moderation.login_failed"
	// EventKick is emitted when a moderator or CM kicks a session.
	EventKick logging.EventType = "moderation.kick"
	// EventMute is emitted when a session is muted or unmuted.
	EventMute logging.EventType = "moderation.mute"
	// EventModcall is emitted when a session calls for a moderator.
	EventModcall logging.EventType = "moderation.modcall"
)

// Modcall publishes a moderator alert with its reason.
func Modcall(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, hub, area, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventModcall,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryModeration,
		Hub:      hub,
		Area:     area,
		Payload:  map[string]string{"reason": reason},
	})
}

// Login publishes a successful moderator authentication.
func Login(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, profile string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLogin,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryModeration,
		Payload:  map[string]string{"profile": profile},
	})
}

// LoginFailed publishes a rejected moderator authentication.
func LoginFailed(ctx context.Context, pub logging.Publisher, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLoginFailed,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryModeration,
	})
}

// Kick publishes a kick with its target.
func Kick(ctx context.Context, pub logging.Publisher, actor, target logging.EntityRef, hub, area, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventKick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryModeration,
		Hub:      hub,
		Area:     area,
		Payload:  map[string]string{"reason": reason},
	})
}
