package server

import (
	"strings"
	"testing"
	"time"
)

func TestARUPPlayersExcludesHidden(t *testing.T) {
	w := newTestWorld(t)
	hub := w.Hubs()[0]
	lobby := hub.Areas()[0]
	lobby.AddEvidence(Evidence{Name: "Crate", CanHide: true})

	visible, _ := join(t, w)
	pickChar(t, visible, 0)
	hider, _ := join(t, w)
	pickChar(t, hider, 1)
	watcher, rec := join(t, w)
	pickChar(t, watcher, 2)

	if err := hider.Hide(true, "Crate"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	hub.SendARUPPlayers()

	args, ok := rec.last(CmdARUP)
	if !ok {
		t.Fatalf("no ARUP frame seen")
	}
	if args[0] != itoa(ARUPPlayers) {
		t.Fatalf("expected the players facet, got %v", args)
	}
	// Lobby holds three sessions but only two are countable.
	if args[1] != "2" {
		t.Fatalf("expected 2 visible players in the lobby, got %q", args[1])
	}
}

func TestARUPPlayersMaskedWhenHidingCounts(t *testing.T) {
	w := NewWorld(testConfig(), NewRoster([]string{"Franziska"}), testCatalog())
	topo := testTopology()
	topo[0].Areas[0].HideClients = true
	if err := w.ApplyTopology(topo); err != nil {
		t.Fatalf("apply topology: %v", err)
	}
	hub := w.Hubs()[0]

	c, rec := joinAddr(t, w, "10.5.0.1")
	pickChar(t, c, 0)
	hub.SendARUPPlayers()

	args, ok := rec.last(CmdARUP)
	if !ok || args[1] != "-1" {
		t.Fatalf("count-hiding area should report -1, got %v %v", args, ok)
	}
}

func TestAreaListFiltersHidden(t *testing.T) {
	w := NewWorld(testConfig(), NewRoster([]string{"Franziska"}), testCatalog())
	topo := testTopology()
	topo[0].Areas[2].Hidden = true
	if err := w.ApplyTopology(topo); err != nil {
		t.Fatalf("apply topology: %v", err)
	}

	c, _ := joinAddr(t, w, "10.6.0.1")
	pickChar(t, c, 0)

	listing := c.AreaListText(false)
	if strings.Contains(listing, "Basement") {
		t.Fatalf("hidden area should be filtered:\n%s", listing)
	}
	if !strings.Contains(listing, "Courtroom") {
		t.Fatalf("visible area should be listed:\n%s", listing)
	}

	full := c.AreaListText(true)
	if !strings.Contains(full, "Basement") {
		t.Fatalf("privileged listing should include hidden areas:\n%s", full)
	}
}

func TestAreaListFiltersUnsatisfiedGates(t *testing.T) {
	w := newTestWorld(t)
	hub := w.Hubs()[0]
	courtroom := hub.Areas()[1]

	c, _ := join(t, w)
	pickChar(t, c, 0)
	mustMove(t, c, courtroom)
	courtroom.AddEvidence(Evidence{Name: "Cart", CanHide: true})
	if err := courtroom.SetLink(0, Link{}); err != nil {
		t.Fatalf("set link: %v", err)
	}
	if err := courtroom.SetLink(2, Link{Evidence: []int{0}}); err != nil {
		t.Fatalf("set link: %v", err)
	}

	listing := c.AreaListText(false)
	if strings.Contains(listing, "Basement") {
		t.Fatalf("gated destination should be filtered while visible:\n%s", listing)
	}

	if err := c.Hide(true, "Cart"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	listing = c.AreaListText(false)
	if !strings.Contains(listing, "Basement") {
		t.Fatalf("satisfied gate should reveal the destination:\n%s", listing)
	}
}

func TestRelayIC(t *testing.T) {
	w := newTestWorld(t)
	area := w.Hubs()[0].Areas()[0]

	spec, _ := join(t, w)
	if err := spec.RelayIC([]string{"chat"}); err == nil {
		t.Fatalf("spectators may not talk")
	}

	c, _ := join(t, w)
	pickChar(t, c, 0)
	peer, prec := join(t, w)
	pickChar(t, peer, 1)

	c.SetMuted(true)
	if err := c.RelayIC([]string{"chat"}); err == nil {
		t.Fatalf("muted sessions may not talk")
	}
	c.SetMuted(false)

	area.SetLockState(LockSpectatable)
	area.Uninvite(c.ID())
	if err := c.RelayIC([]string{"chat"}); err == nil {
		t.Fatalf("uninvited sessions may not talk in restricted areas")
	}
	area.Invite(c.ID())
	if err := c.RelayIC([]string{"chat"}); err != nil {
		t.Fatalf("relay: %v", err)
	}
	if prec.count(CmdICMessage) != 1 {
		t.Fatalf("peers should receive the message, got %d", prec.count(CmdICMessage))
	}
}

func TestAreaInfoTextHidesHiddenOccupants(t *testing.T) {
	w := newTestWorld(t)
	lobby := w.Hubs()[0].Areas()[0]
	lobby.AddEvidence(Evidence{Name: "Crate", CanHide: true})

	hider, _ := join(t, w)
	pickChar(t, hider, 0)
	if err := hider.Hide(true, "Crate"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	viewer, _ := join(t, w)
	pickChar(t, viewer, 1)

	text, err := viewer.AreaInfoText(0, false, false)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if strings.Contains(text, "Franziska") {
		t.Fatalf("hidden occupant should be omitted:\n%s", text)
	}

	viewer.SetMod(true, "admin")
	text, err = viewer.AreaInfoText(0, false, false)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(text, "[HID:Crate]") {
		t.Fatalf("moderator view should tag the hiding spot:\n%s", text)
	}
	if !strings.Contains(text, hider.IPID()) {
		t.Fatalf("moderator view should carry the ipid:\n%s", text)
	}
}

func TestRelayWTCEFloodguard(t *testing.T) {
	cfg := testConfig()
	cfg.WTCEFloodguard = FloodguardConfig{TimesPerInterval: 2, IntervalLength: time.Hour, MuteLength: time.Hour}
	w := NewWorld(cfg, NewRoster([]string{"Franziska", "Godot"}), testCatalog())
	if err := w.ApplyTopology(testTopology()); err != nil {
		t.Fatalf("apply topology: %v", err)
	}

	c, _ := joinAddr(t, w, "10.7.0.1")
	pickChar(t, c, 0)
	if err := c.RelayWTCE([]string{"testimony1"}); err != nil {
		t.Fatalf("first splash: %v", err)
	}
	if err := c.RelayWTCE([]string{"testimony1"}); err != nil {
		t.Fatalf("second splash: %v", err)
	}
	if err := c.RelayWTCE([]string{"testimony1"}); err == nil {
		t.Fatalf("third splash inside the window should be muted")
	}

	// Area owners bypass the guard.
	owner, _ := joinAddr(t, w, "10.7.0.2")
	pickChar(t, owner, 1)
	if err := w.Hubs()[0].Areas()[0].AddOwner(owner); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := owner.RelayWTCE([]string{"testimony1"}); err != nil {
			t.Fatalf("owner splash %d: %v", i, err)
		}
	}
}
