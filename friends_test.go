package server

import (
	"strings"
	"testing"
)

// memFriendStore keeps friendships in memory for tests.
type memFriendStore struct {
	pairs map[string]map[string]struct{}
}

func newMemFriendStore() *memFriendStore {
	return &memFriendStore{pairs: make(map[string]map[string]struct{})}
}

func (s *memFriendStore) LoadFriends(ipid string) ([]string, error) {
	var out []string
	for other := range s.pairs[ipid] {
		out = append(out, other)
	}
	return out, nil
}

func (s *memFriendStore) AddFriend(a, b string) error {
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		set, ok := s.pairs[pair[0]]
		if !ok {
			set = make(map[string]struct{})
			s.pairs[pair[0]] = set
		}
		set[pair[1]] = struct{}{}
	}
	return nil
}

func (s *memFriendStore) RemoveFriend(a, b string) error {
	delete(s.pairs[a], b)
	delete(s.pairs[b], a)
	return nil
}

func TestFriendRequestLifecycle(t *testing.T) {
	w := newTestWorld(t)
	store := newMemFriendStore()
	w.SetFriendStore(store)

	a, _ := join(t, w)
	pickChar(t, a, 0)
	b, brec := join(t, w)
	pickChar(t, b, 1)

	if err := a.SendFriendRequest(a); err == nil {
		t.Fatalf("befriending yourself should be rejected")
	}
	if err := a.SendFriendRequest(b); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := a.SendFriendRequest(b); err == nil {
		t.Fatalf("duplicate request should be rejected")
	}
	if !brec.oocContains("sent you a friend request") {
		t.Fatalf("target should see the request")
	}

	if err := b.AcceptFriendRequest(a.ID()); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !a.IsFriend(b) || !b.IsFriend(a) {
		t.Fatalf("friendship should be mutual")
	}
	saved, _ := store.LoadFriends(a.IPID())
	if len(saved) != 1 || saved[0] != b.IPID() {
		t.Fatalf("friendship should be persisted, got %v", saved)
	}

	if err := a.SendFriendRequest(b); err == nil {
		t.Fatalf("existing friends cannot re-request")
	}
}

func TestDeclineFriendRequestIsSilent(t *testing.T) {
	w := newTestWorld(t)
	a, arec := join(t, w)
	pickChar(t, a, 0)
	b, _ := join(t, w)
	pickChar(t, b, 1)

	if err := b.DeclineFriendRequest(a.ID()); err == nil {
		t.Fatalf("declining an absent request should error")
	}
	if err := a.SendFriendRequest(b); err != nil {
		t.Fatalf("request: %v", err)
	}
	before := arec.count(CmdOOC)
	if err := b.DeclineFriendRequest(a.ID()); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if arec.count(CmdOOC) != before {
		t.Fatalf("the sender must not be told about a decline")
	}
	if a.IsFriend(b) {
		t.Fatalf("declined request must not create a friendship")
	}
}

func TestRemoveFriendBothSides(t *testing.T) {
	w := newTestWorld(t)
	store := newMemFriendStore()
	w.SetFriendStore(store)

	a, _ := join(t, w)
	pickChar(t, a, 0)
	b, _ := join(t, w)
	pickChar(t, b, 1)

	if err := a.SendFriendRequest(b); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := b.AcceptFriendRequest(a.ID()); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := a.RemoveFriend(b); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if a.IsFriend(b) || b.IsFriend(a) {
		t.Fatalf("removal should cut both sides")
	}
	if saved, _ := store.LoadFriends(a.IPID()); len(saved) != 0 {
		t.Fatalf("removal should be persisted, got %v", saved)
	}
	if err := a.RemoveFriend(b); err == nil {
		t.Fatalf("removing a non-friend should error")
	}
}

func TestFriendListText(t *testing.T) {
	w := newTestWorld(t)
	a, _ := join(t, w)
	pickChar(t, a, 0)
	b, _ := join(t, w)
	pickChar(t, b, 1)

	if err := a.SendFriendRequest(b); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := b.AcceptFriendRequest(a.ID()); err != nil {
		t.Fatalf("accept: %v", err)
	}

	text := a.FriendListText()
	if !strings.Contains(text, "Godot") {
		t.Fatalf("online friend should be listed:\n%s", text)
	}

	w.Registry().Disconnect(b)
	text = a.FriendListText()
	if !strings.Contains(text, "1 friend(s) offline") {
		t.Fatalf("offline friends should be counted:\n%s", text)
	}
}
