package server

import (
	"fmt"
	"time"
)

// maxFollowHops bounds the follower cascade; the following graph is not
// kept acyclic, so propagation is breadth-first with a visited set and a
// hop limit instead of recursion.
const maxFollowHops = 8

// ChangeArea moves the session to target, running the full validation
// chain, then relocates the session's followers. Validation and commit
// happen under the hub lock(s) as one critical section; the cascade runs
// afterwards as independent transitions.
func (c *Client) ChangeArea(target *Area) error {
	if err := c.changeAreaTx(target); err != nil {
		return err
	}
	c.cascadeFollowers(target)
	return nil
}

// changeAreaTx is one atomic transition without the cascade. The source
// hub is re-read after locking because a concurrent transition may have
// moved the session.
func (c *Client) changeAreaTx(target *Area) error {
	if target == nil {
		return areaError("Area not found.")
	}
	for {
		src := c.hub
		lockHubPair(src, target.hub)
		if c.hub != src {
			unlockHubPair(src, target.hub)
			continue
		}
		err := c.changeAreaLocked(target)
		unlockHubPair(src, target.hub)
		return err
	}
}

// changeAreaLocked validates and commits one transition. Caller holds the
// source hub's lock and, for cross-hub moves, the destination hub's lock.
// Any rejection leaves area membership, position and hub reference
// untouched; the only pre-commit side effect is the documented forced
// unhide when traversing a listed link that has no evidence gate.
func (c *Client) changeAreaLocked(target *Area) error {
	src := c.area
	if src == target {
		return clientError("User already in specified area.")
	}
	oldHub, newHub := c.hub, target.hub
	allowed := c.isMod || target.isOwnerLocked(c) || src.isOwnerLocked(c) ||
		oldHub.isOwnerLocked(c) || newHub.isOwnerLocked(c)
	hubDefault := target == newHub.defaultAreaLocked()

	if newHub != oldHub && newHub.locked && !allowed {
		return clientError("That hub is locked!")
	}
	if src.lockState == LockLocked && !allowed && !src.isInvitedLocked(c) && !hubDefault {
		return clientError("Current area is locked!")
	}
	if newHub == oldHub && len(src.links) > 0 {
		link, listed := src.links[target.id]
		switch {
		case !listed:
			if !allowed && c.charID != SpectatorCharID && !hubDefault {
				return clientError("You don't seem to be able to access that area from here!")
			}
		default:
			if link.Locked && !allowed {
				return clientError("That path is locked!")
			}
			if len(link.Evidence) > 0 {
				if !allowed && !containsInt(link.Evidence, c.hiddenIn) {
					return clientError("That path is locked!")
				}
			} else if c.hiddenIn != NoHider {
				// A gateless link cannot carry a hidden session
				// through unseen.
				c.hideLocked(false, "", false)
			}
		}
	}
	if target.lockState == LockLocked && !allowed && !target.isInvitedLocked(c) && !hubDefault {
		return clientError("That area is locked!")
	}
	if !allowed {
		if target.maxPlayers == 0 {
			return clientError("That area cannot be accessed normally!")
		}
		if target.maxPlayers > 0 && !c.hiddenLocked() &&
			target.normalOccupancyLocked() >= target.maxPlayers {
			return clientError("That area is full!")
		}
		if wait := src.timeUntilMoveLocked(c); wait > 0 {
			return clientError("You need to wait %d more seconds to move.", int(wait.Seconds())+1)
		}
	}
	if target.cannotICInteractLocked(c) {
		c.sendOOC("This area is spectatable, but not free - you cannot talk in-character unless invited.")
	}
	newChar := c.charID
	if c.charID != SpectatorCharID && !allowed && !target.isCharAvailableLocked(c.charID) {
		id, err := target.randAvailCharIDLocked()
		if err != nil {
			return clientError("No available characters in %s.", target.name)
		}
		newChar = id
	}

	// Commit.
	announce := !c.sneaking && !c.hiddenLocked()
	if c.hiddenIn != NoHider {
		// Passed an evidence gate: stays hidden, but the spot belongs
		// to the old area.
		if c.hiddenIn < len(src.evidence) {
			src.evidence[c.hiddenIn].HiderID = NoHider
		}
		c.hiddenIn = NoHider
	}
	src.removeClientLocked(c)
	if announce {
		src.broadcastOOCLocked(fmt.Sprintf("%s leaves to %s.", c.shownameLocked(), target.label()))
	}
	if newHub != oldHub {
		for _, a := range oldHub.areas {
			delete(a.owners, c)
		}
		if oldHub.isOwnerLocked(c) {
			delete(oldHub.owners, c)
		}
		oldHub.sendARUPOwnersLocked(nil)
	}
	c.hub = newHub
	c.area = target
	target.addClientLocked(c)
	if newChar != c.charID {
		c.changeCharacterLocked(newChar, false)
	}
	if !target.allowsPosLocked(c.pos) {
		c.pos = ""
		if len(target.posLock) > 0 {
			c.pos = target.posLock[0]
		}
	}
	c.lastMove = time.Now()

	if announce {
		for occ := range target.clients {
			if occ != c {
				occ.sendOOC(fmt.Sprintf("%s enters from %s.", c.shownameLocked(), src.label()))
			}
		}
	}
	c.sendAreaListLocked()
	oldHub.sendARUPPlayersLocked(nil)
	if newHub != oldHub {
		newHub.sendARUPPlayersLocked(nil)
		newHub.sendAllARUPLocked([]*Client{c})
	}
	c.transport.Send(CmdHP, "1", itoa(target.hpDef))
	c.transport.Send(CmdHP, "2", itoa(target.hpPro))
	c.transport.Send(CmdBackground, target.background, c.pos)
	c.transport.Send(CmdSetPosition, c.pos)
	c.transport.Send(CmdEvidenceList, target.evidenceArgsLocked(c)...)
	c.refreshMusicLocked()
	if !c.blinded {
		c.sendDescriptionLocked()
	}
	c.sendOOC(fmt.Sprintf("Changed area to %s.", target.label()))
	c.world.logRoom("move", c, target, -1, fmt.Sprintf("from %s", src.label()))
	return nil
}

// cascadeFollowers relocates everyone following the mover (and, in turn,
// their followers) to target. A blocked follower gets a notice and loses
// the link; a follower already at the destination keeps the link but does
// not propagate further.
func (c *Client) cascadeFollowers(target *Area) {
	type hop struct {
		who   *Client
		depth int
	}
	visited := map[*Client]struct{}{c: {}}
	queue := []hop{{c, 0}}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if h.depth >= maxFollowHops {
			continue
		}
		for _, f := range c.world.registry.followersOf(h.who.id) {
			if _, seen := visited[f]; seen {
				continue
			}
			visited[f] = struct{}{}
			if f.Area() == target {
				continue
			}
			if err := f.changeAreaTx(target); err != nil {
				f.Unfollow(true)
				f.sendOOC(fmt.Sprintf("You stopped following [%d] %s: %v", h.who.id, h.who.Showname(), err))
				continue
			}
			queue = append(queue, hop{f, h.depth + 1})
		}
	}
}

// ChangeHub moves the session to another hub's default area.
func (c *Client) ChangeHub(h *Hub) error {
	if h == nil {
		return areaError("Hub not found.")
	}
	if h == c.Hub() {
		return clientError("User already in specified hub.")
	}
	if err := c.ChangeArea(h.DefaultArea()); err != nil {
		return err
	}
	c.SendHubInfo()
	return nil
}

// ForceMove relocates the session to target bypassing every validation
// rule. Used by kicks and topology reloads; the caller announces.
func (c *Client) ForceMove(target *Area) error {
	if target == nil {
		return areaError("Area not found.")
	}
	for {
		src := c.hub
		lockHubPair(src, target.hub)
		if c.hub != src {
			unlockHubPair(src, target.hub)
			continue
		}
		err := c.forceMoveLocked(target)
		unlockHubPair(src, target.hub)
		return err
	}
}

func (c *Client) forceMoveLocked(target *Area) error {
	src := c.area
	if src == target {
		return nil
	}
	oldHub, newHub := c.hub, target.hub
	if c.hiddenIn != NoHider {
		c.hideLocked(false, "", true)
	}
	src.removeClientLocked(c)
	if newHub != oldHub {
		for _, a := range oldHub.areas {
			delete(a.owners, c)
		}
		delete(oldHub.owners, c)
		oldHub.sendARUPOwnersLocked(nil)
	}
	c.hub = newHub
	c.area = target
	target.addClientLocked(c)
	if !target.allowsPosLocked(c.pos) {
		c.pos = ""
	}
	c.lastMove = time.Now()
	c.sendAreaListLocked()
	oldHub.sendARUPPlayersLocked(nil)
	if newHub != oldHub {
		newHub.sendARUPPlayersLocked(nil)
		newHub.sendAllARUPLocked([]*Client{c})
	}
	c.transport.Send(CmdBackground, target.background, c.pos)
	c.transport.Send(CmdEvidenceList, target.evidenceArgsLocked(c)...)
	c.refreshMusicLocked()
	return nil
}

// AreaKick throws target out of its area to the destination (usually the
// hub default), revoking its invitation on the way out.
func (c *Client) AreaKick(target *Client, dest *Area) error {
	if target == c {
		return clientError("You cannot kick yourself.")
	}
	area := target.Area()
	if dest == nil {
		dest = target.Hub().DefaultArea()
	}
	if err := target.ForceMove(dest); err != nil {
		return err
	}
	area.hub.mu.Lock()
	delete(area.inviteList, target.id)
	area.hub.mu.Unlock()
	target.sendOOC(fmt.Sprintf("You were kicked from the area to %s.", dest.label()))
	c.world.logRoom("area.kick", c, area, target.id, fmt.Sprintf("to %s", dest.label()))
	return nil
}
