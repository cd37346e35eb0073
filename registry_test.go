package server

import (
	"strings"
	"testing"
)

func TestIDAllocationRecyclesLowestFirst(t *testing.T) {
	w := newTestWorld(t)
	c0, _ := join(t, w)
	c1, _ := join(t, w)
	c2, _ := join(t, w)
	if c0.ID() != 0 || c1.ID() != 1 || c2.ID() != 2 {
		t.Fatalf("ids should be allocated in order, got %d %d %d", c0.ID(), c1.ID(), c2.ID())
	}

	w.Registry().Disconnect(c2)
	w.Registry().Disconnect(c0)

	r0, _ := join(t, w)
	r2, _ := join(t, w)
	if r0.ID() != 0 {
		t.Fatalf("lowest released id should be reused first, got %d", r0.ID())
	}
	if r2.ID() != 2 {
		t.Fatalf("next released id should follow, got %d", r2.ID())
	}
	next, _ := join(t, w)
	if next.ID() != 3 {
		t.Fatalf("fresh id should continue the sequence, got %d", next.ID())
	}
}

func TestPlayerLimit(t *testing.T) {
	cfg := testConfig()
	cfg.PlayerLimit = 2
	w := NewWorld(cfg, NewRoster([]string{"Franziska"}), testCatalog())
	if err := w.ApplyTopology(testTopology()); err != nil {
		t.Fatalf("apply topology: %v", err)
	}
	joinAddr(t, w, "10.1.0.1")
	joinAddr(t, w, "10.1.0.2")
	if _, err := w.Registry().NewClient(&recorder{}, "10.1.0.3"); err == nil {
		t.Fatalf("third client should be refused by the player limit")
	}
}

func TestMulticlientLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MulticlientLimit = 2
	w := NewWorld(cfg, NewRoster([]string{"Franziska"}), testCatalog())
	if err := w.ApplyTopology(testTopology()); err != nil {
		t.Fatalf("apply topology: %v", err)
	}
	joinAddr(t, w, "10.2.0.1")
	joinAddr(t, w, "10.2.0.1")
	if _, err := w.Registry().NewClient(&recorder{}, "10.2.0.1"); err == nil {
		t.Fatalf("third client from the same address should be refused")
	}
	if _, err := w.Registry().NewClient(&recorder{}, "10.2.0.2"); err != nil {
		t.Fatalf("client from a different address should be admitted: %v", err)
	}
}

func TestResolveOOCNameSkipsUnnamed(t *testing.T) {
	w := newTestWorld(t)
	named, _ := join(t, w)
	join(t, w) // never sets a name
	named.SetName("Wright")

	targets, err := w.Registry().Resolve(named, TargetOOCName, "wri", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 1 || targets[0] != named {
		t.Fatalf("expected only the named session, got %d matches", len(targets))
	}
	// An empty query is a prefix of everything, but unnamed sessions must
	// still never match.
	targets, err = w.Registry().Resolve(named, TargetOOCName, "", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("unnamed sessions must not match, got %d", len(targets))
	}
}

func TestResolveIPID(t *testing.T) {
	w := newTestWorld(t)
	c, _ := join(t, w)
	join(t, w)

	targets, err := w.Registry().Resolve(c, TargetIPID, c.IPID(), false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 1 || targets[0] != c {
		t.Fatalf("full ipid should match exactly one session, got %d", len(targets))
	}
	targets, err = w.Registry().Resolve(c, TargetIPID, "no-such-ipid", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("bogus ipid should match nothing, got %d", len(targets))
	}
}

func TestResolveAllUnion(t *testing.T) {
	w := newTestWorld(t)
	a, _ := join(t, w)
	pickChar(t, a, 0) // Franziska
	b, _ := join(t, w)
	pickChar(t, b, 1) // Godot

	targets, err := w.Registry().Resolve(a, TargetAll, "zzz-no-such", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("a query matching nothing must match nothing, got %d", len(targets))
	}

	targets, err = w.Registry().Resolve(a, TargetAll, a.IPID(), false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 1 || targets[0] != a {
		t.Fatalf("full ipid should match through the meta type, got %d", len(targets))
	}

	targets, err = w.Registry().Resolve(a, TargetAll, "god", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 1 || targets[0] != b {
		t.Fatalf("character prefix should match through the meta type, got %d", len(targets))
	}

	// The AFK set is part of the union regardless of the query text.
	a.ToggleAFK()
	targets, err = w.Registry().Resolve(a, TargetAll, "zzz-no-such", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 1 || targets[0] != a {
		t.Fatalf("AFK sessions should match through the meta type, got %d", len(targets))
	}
}

func TestResolveOrderFollowsAreas(t *testing.T) {
	w := newTestWorld(t)
	first, _ := join(t, w)
	pickChar(t, first, 0)
	mustMove(t, first, w.Hubs()[0].Areas()[1])
	second, _ := join(t, w) // stays in the default area

	targets, err := w.Registry().Resolve(first, TargetAll, "", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(targets) != 2 || targets[0] != second || targets[1] != first {
		t.Fatalf("results should follow area order, not id order")
	}
}

func TestResolveLocalScope(t *testing.T) {
	w := newTestWorld(t)
	actor, _ := join(t, w)
	other, _ := join(t, w)
	mustMove(t, other, w.Hubs()[0].Areas()[1])

	targets, err := w.Registry().Resolve(actor, TargetAll, "", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, c := range targets {
		if c == other {
			t.Fatalf("local resolve must not cross area boundaries")
		}
	}
}

func TestResolveOneRejectsAmbiguity(t *testing.T) {
	w := newTestWorld(t)
	actor, _ := join(t, w)
	join(t, w)

	if _, err := w.Registry().ResolveOne(actor, TargetAll, "", false); err == nil {
		t.Fatalf("two matches should be rejected")
	} else if !strings.Contains(err.Error(), "Multiple targets") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.Registry().ResolveOne(actor, TargetID, "99", false); err == nil {
		t.Fatalf("no match should be rejected")
	} else if !strings.Contains(err.Error(), "No targets") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDisconnectAfterCrossHubMove(t *testing.T) {
	w := newTestWorld(t)
	annex := w.Hubs()[1]
	workshop := annex.Areas()[1]

	c, _ := join(t, w)
	pickChar(t, c, 0)
	if err := c.ForceMove(workshop); err != nil {
		t.Fatalf("force move: %v", err)
	}

	w.Registry().Disconnect(c)

	if _, live := w.Registry().ByID(c.ID()); live {
		t.Fatalf("session should be gone from the registry")
	}
	annex.mu.Lock()
	_, present := workshop.clients[c]
	annex.mu.Unlock()
	if present {
		t.Fatalf("teardown should run against the hub the session actually occupies")
	}
}

func TestDisconnectReleasesRoomState(t *testing.T) {
	w := newTestWorld(t)
	hub := w.Hubs()[0]
	area := hub.Areas()[1]

	c, rec := join(t, w)
	pickChar(t, c, 0)
	mustMove(t, c, area)
	area.AddEvidence(Evidence{Name: "Vase", CanHide: true})
	if err := c.Hide(true, "Vase"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if err := area.AddOwner(c); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	hub.AddOwner(c)

	follower, frec := join(t, w)
	pickChar(t, follower, 1)
	if err := follower.Follow(c); err != nil {
		t.Fatalf("follow: %v", err)
	}

	w.Registry().Disconnect(c)

	if _, live := w.Registry().ByID(c.ID()); live {
		t.Fatalf("session should be gone from the registry")
	}
	if area.IsOwner(c) || hub.IsOwner(c) {
		t.Fatalf("ownership should be revoked on disconnect")
	}
	area.hub.mu.Lock()
	hider := area.evidence[0].HiderID
	area.hub.mu.Unlock()
	if hider != NoHider {
		t.Fatalf("hiding spot should be released on disconnect")
	}
	if got := w.Registry().Following(follower); got != NoFollow {
		t.Fatalf("followers should be unfollowed, still following %d", got)
	}
	if !frec.oocContains("no longer following") {
		t.Fatalf("follower should be told the link broke")
	}
	if !rec.closed {
		t.Fatalf("transport should be closed")
	}
}
