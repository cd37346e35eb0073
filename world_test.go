package server

import (
	"context"
	"sync"
	"testing"

	"courtmux/server/logging"
	logroom "courtmux/server/logging/room"
)

func TestRoomEventsReachPublisher(t *testing.T) {
	w := newTestWorld(t)
	var mu sync.Mutex
	var events []logging.Event
	w.SetPublisher(logging.PublisherFunc(func(_ context.Context, ev logging.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))

	c, _ := join(t, w)
	pickChar(t, c, 0)
	mustMove(t, c, w.Hubs()[0].Areas()[1])
	w.Hubs()[0].Areas()[1].SetLockState(LockLocked)

	mu.Lock()
	defer mu.Unlock()
	var move, lock *logging.Event
	for i := range events {
		switch events[i].Type {
		case logroom.EventTransition:
			move = &events[i]
		case logroom.EventLockChanged:
			lock = &events[i]
		}
	}
	if move == nil {
		t.Fatalf("a committed transition should publish an event")
	}
	if move.Hub != "Courthouse" || move.Area != "Courtroom" {
		t.Fatalf("transition event misplaced: hub %q area %q", move.Hub, move.Area)
	}
	if move.Actor.ID != "0" || move.Actor.Kind != logging.EntityKindSession {
		t.Fatalf("transition event should carry the actor, got %+v", move.Actor)
	}
	if lock == nil {
		t.Fatalf("a lock change should publish an event")
	}
	if lock.Area != "Courtroom" {
		t.Fatalf("lock event misplaced: area %q", lock.Area)
	}
}
