package server

import (
	"strings"
	"testing"
)

func hiderOf(a *Area, idx int) int {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	return a.evidence[idx].HiderID
}

func TestHidePairsSessionWithEvidence(t *testing.T) {
	w := newTestWorld(t)
	area := w.Hubs()[0].Areas()[0]
	area.AddEvidence(Evidence{Name: "Cardboard Box", CanHide: true})

	c, _ := join(t, w)
	pickChar(t, c, 0)
	if err := c.Hide(true, "Cardboard Box"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if !c.Hidden() || c.HiddenIn() != 0 {
		t.Fatalf("session should be hidden in index 0, got hidden=%v in=%d", c.Hidden(), c.HiddenIn())
	}
	if hiderOf(area, 0) != c.ID() {
		t.Fatalf("spot should record the hider")
	}

	if err := c.Hide(false, ""); err != nil {
		t.Fatalf("unhide: %v", err)
	}
	if c.Hidden() || c.HiddenIn() != NoHider {
		t.Fatalf("session should be visible again")
	}
	if hiderOf(area, 0) != NoHider {
		t.Fatalf("spot should be released")
	}
}

func TestHideEvictsPreviousOccupant(t *testing.T) {
	w := newTestWorld(t)
	area := w.Hubs()[0].Areas()[0]
	area.AddEvidence(Evidence{Name: "Locker", CanHide: true})

	first, _ := join(t, w)
	pickChar(t, first, 0)
	if err := first.Hide(true, "Locker"); err != nil {
		t.Fatalf("hide: %v", err)
	}

	second, rec := join(t, w)
	pickChar(t, second, 1)
	if err := second.Hide(true, "Locker"); err != nil {
		t.Fatalf("hide over an occupied spot should evict, not fail: %v", err)
	}
	if first.HiddenIn() != NoHider {
		t.Fatalf("previous occupant should be forced out")
	}
	if second.HiddenIn() != 0 || hiderOf(area, 0) != second.ID() {
		t.Fatalf("spot should belong to the new occupant")
	}
	if !rec.oocContains("was already hiding") {
		t.Fatalf("evictor should be told someone was there")
	}
}

func TestUnhideIdempotent(t *testing.T) {
	w := newTestWorld(t)
	c, rec := join(t, w)
	pickChar(t, c, 0)

	if err := c.Hide(false, ""); err != nil {
		t.Fatalf("unhide: %v", err)
	}
	before := rec.count(CmdOOC)
	if err := c.Hide(false, ""); err != nil {
		t.Fatalf("unhide: %v", err)
	}
	if rec.count(CmdOOC) != before {
		t.Fatalf("re-running the unhide must not re-fire notices")
	}
}

func TestRemoveEvidenceShiftsHiderIndex(t *testing.T) {
	w := newTestWorld(t)
	area := w.Hubs()[0].Areas()[0]
	area.AddEvidence(Evidence{Name: "Vase", CanHide: true})
	area.AddEvidence(Evidence{Name: "Crate", CanHide: true})

	c, _ := join(t, w)
	pickChar(t, c, 0)
	if err := c.Hide(true, "Crate"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if c.HiddenIn() != 1 {
		t.Fatalf("expected index 1, got %d", c.HiddenIn())
	}

	if err := area.RemoveEvidence(0); err != nil {
		t.Fatalf("remove evidence: %v", err)
	}
	if c.HiddenIn() != 0 {
		t.Fatalf("hider index should shift down, got %d", c.HiddenIn())
	}
	if hiderOf(area, 0) != c.ID() {
		t.Fatalf("pairing should survive the shift")
	}
}

func TestRemoveEvidenceForcesHiderOut(t *testing.T) {
	w := newTestWorld(t)
	area := w.Hubs()[0].Areas()[0]
	area.AddEvidence(Evidence{Name: "Vase", CanHide: true})

	c, _ := join(t, w)
	pickChar(t, c, 0)
	if err := c.Hide(true, "Vase"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if err := area.RemoveEvidence(0); err != nil {
		t.Fatalf("remove evidence: %v", err)
	}
	if c.HiddenIn() != NoHider {
		t.Fatalf("removing the spot should force the hider out")
	}
}

func TestChangePositionForcesUnhide(t *testing.T) {
	w := newTestWorld(t)
	area := w.Hubs()[0].Areas()[0]
	area.AddEvidence(Evidence{Name: "Vase", CanHide: true})

	c, _ := join(t, w)
	pickChar(t, c, 0)
	if err := c.Hide(true, "Vase"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if err := c.ChangePosition("wit"); err != nil {
		t.Fatalf("change position: %v", err)
	}
	if c.HiddenIn() != NoHider {
		t.Fatalf("changing position should pull the session out of its spot")
	}
	if c.Position() != "wit" {
		t.Fatalf("position should be lowercased and applied, got %q", c.Position())
	}
}

func TestSpectatorImplicitlyHidden(t *testing.T) {
	w := newTestWorld(t)
	c, _ := join(t, w)
	if !c.Hidden() {
		t.Fatalf("a spectator should count as hidden")
	}
	pickChar(t, c, 0)
	if c.Hidden() {
		t.Fatalf("picking a character should make the session visible")
	}
}

func TestChangeCharacterEvictsOnForce(t *testing.T) {
	w := newTestWorld(t)
	holder, _ := join(t, w)
	pickChar(t, holder, 0)

	c, _ := join(t, w)
	if err := c.ChangeCharacter(0, false); err == nil {
		t.Fatalf("taken slot should be refused without force")
	}
	if err := c.ChangeCharacter(0, true); err != nil {
		t.Fatalf("forced change: %v", err)
	}
	if c.CharID() != 0 {
		t.Fatalf("actor should hold the slot")
	}
	if holder.CharID() != SpectatorCharID {
		t.Fatalf("evicted holder should be back on the select screen")
	}
}

func TestCharcurseRestrictsSelection(t *testing.T) {
	w := newTestWorld(t)
	c, _ := join(t, w)
	pickChar(t, c, 0)

	c.Charcurse([]int{2})
	if c.CharID() != SpectatorCharID {
		t.Fatalf("cursing should throw the session to the select screen")
	}
	if err := c.ChangeCharacter(1, false); err == nil {
		t.Fatalf("slot outside the curse list should be refused")
	}
	if err := c.ChangeCharacter(2, false); err != nil {
		t.Fatalf("curse-listed slot should be allowed: %v", err)
	}
	if err := c.Uncharcurse(); err != nil {
		t.Fatalf("uncharcurse: %v", err)
	}
	if err := c.Uncharcurse(); err == nil {
		t.Fatalf("lifting an absent curse should error")
	}
}

func TestAuthMod(t *testing.T) {
	w := newTestWorld(t)
	c, _ := join(t, w)

	if _, err := c.AuthMod("wrong"); err == nil {
		t.Fatalf("bad password should be rejected")
	}
	profile, err := c.AuthMod("hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if profile != "admin" || !c.IsMod() {
		t.Fatalf("login should grant the admin profile, got %q", profile)
	}
	if _, err := c.AuthMod("hunter2"); err == nil || !strings.Contains(err.Error(), "Already logged in") {
		t.Fatalf("second login should be rejected, got %v", err)
	}
}

func TestShownameFallsBackToCharacter(t *testing.T) {
	w := newTestWorld(t)
	c, _ := join(t, w)
	pickChar(t, c, 1)
	if c.Showname() != "Godot" {
		t.Fatalf("expected character name, got %q", c.Showname())
	}
	c.SetShowname("The Prosecutor")
	if c.Showname() != "The Prosecutor" {
		t.Fatalf("explicit showname should win, got %q", c.Showname())
	}
	c.SetShowname("")
	if c.Showname() != "Godot" {
		t.Fatalf("clearing the showname should revert, got %q", c.Showname())
	}
}

func TestFollowSelfRejected(t *testing.T) {
	w := newTestWorld(t)
	c, _ := join(t, w)
	if err := c.Follow(c); err == nil {
		t.Fatalf("following yourself should be rejected")
	}
}
