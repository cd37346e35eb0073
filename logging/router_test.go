package logging_test

import (
	"context"
	"testing"

	"courtmux/server/logging"
	"courtmux/server/logging/sinks"
)

func TestRouterDeliversToSink(t *testing.T) {
	mem := sinks.NewMemorySink()
	r, err := logging.NewRouter(nil, logging.Config{BufferSize: 16}, []logging.NamedSink{
		{Name: "memory", Sink: mem},
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	r.Publish(context.Background(), logging.Event{
		Type:     "room.transition",
		Severity: logging.SeverityInfo,
		Hub:      "Courthouse",
		Area:     "Courtroom",
	})
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected one delivered event, got %d", len(events))
	}
	if events[0].Hub != "Courthouse" || events[0].Area != "Courtroom" {
		t.Fatalf("event mangled in transit: %+v", events[0])
	}
	if events[0].Time.IsZero() {
		t.Fatalf("the router should stamp undated events")
	}
	if stats := r.Stats(); stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	mem := sinks.NewMemorySink()
	r, err := logging.NewRouter(nil, logging.Config{MinimumSeverity: logging.SeverityWarn}, []logging.NamedSink{
		{Name: "memory", Sink: mem},
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	r.Publish(context.Background(), logging.Event{Type: "room.music", Severity: logging.SeverityInfo})
	r.Publish(context.Background(), logging.Event{Type: "moderation.kick", Severity: logging.SeverityWarn})
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := mem.Events()
	if len(events) != 1 || events[0].Type != "moderation.kick" {
		t.Fatalf("only events at or above the floor should pass, got %+v", events)
	}
}

func TestRouterIgnoresUntypedEvents(t *testing.T) {
	mem := sinks.NewMemorySink()
	r, err := logging.NewRouter(nil, logging.Config{}, []logging.NamedSink{
		{Name: "memory", Sink: mem},
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	r.Publish(context.Background(), logging.Event{Severity: logging.SeverityError})
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if events := mem.Events(); len(events) != 0 {
		t.Fatalf("untyped events must be dropped, got %d", len(events))
	}
}

func TestRouterAppliesGlobalFields(t *testing.T) {
	mem := sinks.NewMemorySink()
	r, err := logging.NewRouter(nil, logging.Config{
		Fields: map[string]any{"node": "court-1"},
	}, []logging.NamedSink{
		{Name: "memory", Sink: mem},
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	r.Publish(context.Background(), logging.Event{Type: "room.hide", Severity: logging.SeverityInfo})
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Extra["node"] != "court-1" {
		t.Fatalf("global fields should be stamped onto events, got %+v", events[0].Extra)
	}
}
