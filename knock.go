package server

import (
	"fmt"
	"strings"
)

// Knock raps on a neighboring area. The target hears it regardless of its
// lock state; an unlinked destination cannot be knocked on when the
// current area restricts movement.
func (c *Client) Knock(targetID int) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	target, err := c.hub.areaByIDLocked(targetID)
	if err != nil {
		return err
	}
	if target == c.area {
		return clientError("You knock on thin air.")
	}
	if len(c.area.links) > 0 {
		if _, listed := c.area.links[targetID]; !listed && !c.isMod {
			return clientError("You don't seem to be able to reach that area from here!")
		}
	}
	c.sendOOC(fmt.Sprintf("You knock on the door to %s.", target.label()))
	target.broadcastOOCLocked(fmt.Sprintf("Someone knocks on the door from %s.", c.area.label()))
	c.world.logRoom("knock", c, target, -1, "")
	return nil
}

// Peek looks through a peekable link and lists the visible occupants on
// the other side. Sneaking matters here: a non-sneaking peeker is noticed
// by the room being peeked into.
func (c *Client) Peek(targetID int) (string, error) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	target, err := c.hub.areaByIDLocked(targetID)
	if err != nil {
		return "", err
	}
	if target == c.area {
		return "", clientError("You are already there.")
	}
	if !c.isMod {
		if len(c.area.links) == 0 {
			return "", clientError("There is nothing to peek through here.")
		}
		link, listed := c.area.links[targetID]
		if !listed || !link.CanPeek {
			return "", clientError("You can't peek into that area from here!")
		}
		if link.Locked {
			return "", clientError("That path is locked - you can't see through!")
		}
	}
	var names []string
	for _, occ := range target.sortedClientsLocked() {
		if occ.hiddenLocked() || occ.sneaking {
			continue
		}
		names = append(names, occ.shownameLocked())
	}
	if !c.sneaking && !c.hiddenLocked() {
		target.broadcastOOCLocked(fmt.Sprintf("Someone peeks into the room from %s.", c.area.label()))
	}
	if len(names) == 0 {
		return fmt.Sprintf("You peek into %s and see nobody.", target.label()), nil
	}
	return fmt.Sprintf("You peek into %s and see: %s.", target.label(), strings.Join(names, ", ")), nil
}
