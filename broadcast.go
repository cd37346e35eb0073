package server

import (
	"fmt"
	"strconv"
	"strings"
)

func itoa(n int) string { return strconv.Itoa(n) }

// Audience computation. Every room-state mutation resolves to one of four
// audiences: a single session, one area, one hub, or a session's curated
// broadcast list. Once the audience is computed, delivery is unconditional;
// the only filtered pushes are counts (hidden sessions) and description
// text (blinded sessions), and those filters live at the call sites that
// own them.

// broadcastLocked pushes one command to everyone physically in the area.
func (a *Area) broadcastLocked(name string, args ...string) {
	for c := range a.clients {
		c.transport.Send(name, args...)
	}
}

// broadcastOOCLocked pushes a server OOC line to everyone in the area.
func (a *Area) broadcastOOCLocked(msg string) {
	for c := range a.clients {
		c.sendOOC(msg)
	}
}

// BroadcastOOC pushes a server OOC line to everyone in the area.
func (a *Area) BroadcastOOC(msg string) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.broadcastOOCLocked(msg)
}

// BroadcastChat relays a player OOC line to the area under the speaker's
// chosen name.
func (a *Area) BroadcastChat(name, msg string) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.broadcastLocked(CmdOOC, name, msg)
}

// RelayIC fans a validated in-character message out to the speaker's
// area. Muted sessions and non-invited sessions in restricted areas are
// rejected before anything is sent.
func (c *Client) RelayIC(args []string) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.muted {
		return clientError("You are muted by a moderator.")
	}
	if c.charID == SpectatorCharID {
		return clientError("You may not talk while spectating.")
	}
	if c.area.cannotICInteractLocked(c) {
		return clientError("This is a locked area - ask the CM to enter the invite list first!")
	}
	c.area.broadcastLocked(CmdICMessage, args...)
	c.world.logRoom("ic", c, c.area, -1, "")
	return nil
}

// RelayWTCE fans a courtroom splash out to the area, floodguarded for
// unprivileged sessions.
func (c *Client) RelayWTCE(args []string) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.muted {
		return clientError("You are muted by a moderator.")
	}
	if c.area.cannotICInteractLocked(c) {
		return clientError("This is a locked area - ask the CM to enter the invite list first!")
	}
	if !c.isMod && !c.area.isOwnerLocked(c) {
		if wait := c.wtceGuard.RecordAttempt(); wait > 0 {
			return clientError("You used witness testimony/cross examination signs too many times. Please try again after %d seconds.", int(wait.Seconds())+1)
		}
	}
	c.area.broadcastLocked(CmdWTCE, args...)
	return nil
}

// broadcastDescriptionLocked shows the room description to non-blinded
// occupants.
func (a *Area) broadcastDescriptionLocked() {
	for c := range a.clients {
		if c.blinded {
			continue
		}
		c.sendDescriptionLocked()
	}
}

// ARUP facets. Each facet is an independent message so one slow or failed
// computation never blocks unrelated roster data. recipients == nil means
// every session in the hub (the usual case); the join handshake passes a
// single fresh session instead.

func (h *Hub) arupRecipientsLocked(recipients []*Client) []*Client {
	if recipients != nil {
		return recipients
	}
	return h.clientsLocked()
}

// sendARUPPlayersLocked fans out the per-area visible player counts.
func (h *Hub) sendARUPPlayersLocked(recipients []*Client) {
	if !h.arupEnabled {
		return
	}
	args := make([]string, 0, len(h.areas)+1)
	args = append(args, itoa(ARUPPlayers))
	for _, a := range h.areas {
		if a.hideClients || h.hideClients {
			args = append(args, "-1")
			continue
		}
		args = append(args, itoa(a.visibleCountLocked()))
	}
	for _, c := range h.arupRecipientsLocked(recipients) {
		c.transport.Send(CmdARUP, args...)
	}
}

// sendARUPStatusLocked fans out the per-area status tags.
func (h *Hub) sendARUPStatusLocked(recipients []*Client) {
	if !h.arupEnabled {
		return
	}
	args := make([]string, 0, len(h.areas)+1)
	args = append(args, itoa(ARUPStatus))
	for _, a := range h.areas {
		args = append(args, a.status)
	}
	for _, c := range h.arupRecipientsLocked(recipients) {
		c.transport.Send(CmdARUP, args...)
	}
}

// sendARUPOwnersLocked fans out the per-area CM rosters.
func (h *Hub) sendARUPOwnersLocked(recipients []*Client) {
	if !h.arupEnabled {
		return
	}
	args := make([]string, 0, len(h.areas)+1)
	args = append(args, itoa(ARUPOwners))
	for _, a := range h.areas {
		if len(a.owners) == 0 {
			args = append(args, "FREE")
			continue
		}
		names := make([]string, 0, len(a.owners))
		for c := range a.owners {
			names = append(names, c.shownameLocked())
		}
		args = append(args, strings.Join(names, ", "))
	}
	for _, c := range h.arupRecipientsLocked(recipients) {
		c.transport.Send(CmdARUP, args...)
	}
}

// sendARUPLocksLocked fans out the per-area lock states.
func (h *Hub) sendARUPLocksLocked(recipients []*Client) {
	if !h.arupEnabled {
		return
	}
	args := make([]string, 0, len(h.areas)+1)
	args = append(args, itoa(ARUPLocks))
	for _, a := range h.areas {
		args = append(args, a.lockState.String())
	}
	for _, c := range h.arupRecipientsLocked(recipients) {
		c.transport.Send(CmdARUP, args...)
	}
}

// sendAllARUPLocked pushes every facet; used by the join handshake.
func (h *Hub) sendAllARUPLocked(recipients []*Client) {
	h.sendARUPPlayersLocked(recipients)
	h.sendARUPStatusLocked(recipients)
	h.sendARUPOwnersLocked(recipients)
	h.sendARUPLocksLocked(recipients)
}

// SendARUPPlayers re-broadcasts the player-count facet hub-wide.
func (h *Hub) SendARUPPlayers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendARUPPlayersLocked(nil)
}

// visibleAreasLocked lists the areas c may see from its current area:
// hidden areas, hidden links and unsatisfied evidence gates are filtered
// unless full is set (owners and mods ask for full).
func (c *Client) visibleAreasLocked(full bool) []*Area {
	var out []*Area
	for _, area := range c.hub.areas {
		if area != c.area {
			if !full && area.hidden {
				continue
			}
			if len(c.area.links) > 0 {
				link, linked := c.area.links[area.id]
				if !linked {
					if !full {
						continue
					}
				} else {
					if !full && link.Hidden {
						continue
					}
					if !full && len(link.Evidence) > 0 && !containsInt(link.Evidence, c.hiddenIn) {
						continue
					}
				}
			}
		}
		out = append(out, area)
	}
	return out
}

// sendAreaListLocked refreshes the mover's visible-area list.
func (c *Client) sendAreaListLocked() {
	full := c.isMod || c.area.isOwnerLocked(c) || c.hub.isOwnerLocked(c)
	areas := c.visibleAreasLocked(full)
	args := make([]string, 0, len(areas))
	for _, a := range areas {
		args = append(args, a.name)
	}
	c.localAreaList = areas
	c.transport.Send(CmdAreaList, args...)
}

// broadcastAreaListLocked is the area-side entry point used after
// visibility-affecting changes (hide, unhide, link edits).
func (a *Area) broadcastAreaListLocked(c *Client) {
	c.sendAreaListLocked()
}

// AreaListText renders the OOC /area listing for c. full reveals hidden
// areas and hidden occupant counts.
func (c *Client) AreaListText(full bool) string {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	var b strings.Builder
	b.WriteString("=== Areas ===")
	for _, area := range c.visibleAreasLocked(full) {
		owner := ""
		if len(area.owners) > 0 {
			names := make([]string, 0, len(area.owners))
			for o := range area.owners {
				names = append(names, o.shownameLocked())
			}
			owner = fmt.Sprintf("[CMs: %s]", strings.Join(names, ", "))
		}
		lock := ""
		switch area.lockState {
		case LockSpectatable:
			lock = "[S]"
		case LockLocked:
			lock = "[L]"
		}
		users := ""
		if !area.hideClients && !c.hub.hideClients {
			n := area.visibleCountLocked()
			if full {
				n = len(area.clients)
			}
			users = fmt.Sprintf("(users: %d) ", n)
		}
		status := ""
		if c.hub.arupEnabled {
			status = fmt.Sprintf("[%s]", area.status)
		}
		fmt.Fprintf(&b, "\r\n%s %s%s%s%s", area.label(), users, status, owner, lock)
		if c.area == area {
			b.WriteString(" [*]")
		}
	}
	return b.String()
}

// AreaInfoText renders the occupant listing of one area for c. Hidden
// occupants are omitted (and uncounted) unless c is privileged there.
func (c *Client) AreaInfoText(areaID int, modsOnly, afkOnly bool) (string, error) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	area, err := c.hub.areaByIDLocked(areaID)
	if err != nil {
		return "", err
	}
	privileged := c.isMod || area.isOwnerLocked(c)
	var listed []*Client
	for _, occ := range area.sortedClientsLocked() {
		if afkOnly {
			if _, afk := area.afkers[occ]; !afk {
				continue
			}
		}
		if !privileged && occ.hiddenLocked() {
			continue
		}
		if modsOnly && !occ.isMod {
			continue
		}
		listed = append(listed, occ)
	}
	lock := ""
	switch area.lockState {
	case LockSpectatable:
		lock = "[S]"
	case LockLocked:
		lock = "[L]"
	}
	status := ""
	if c.hub.arupEnabled {
		status = fmt.Sprintf(" [%s]", area.status)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s (users: %d)%s%s ===", area.label(), len(listed), status, lock)
	for _, occ := range listed {
		b.WriteString("\r\n")
		switch {
		case occ.isMod && c.isMod:
			b.WriteString("[MOD]")
		case c.hub.isOwnerLocked(occ):
			b.WriteString("[GM]")
		case area.isOwnerLocked(occ):
			b.WriteString("[CM]")
		}
		if _, afk := area.afkers[occ]; afk {
			b.WriteString("[AFK]")
		}
		if occ.hiddenLocked() {
			spot := ""
			if occ.hiddenIn != NoHider {
				spot = ":" + area.evidence[occ.hiddenIn].Name
			}
			fmt.Fprintf(&b, "[HID%s]", spot)
		}
		fmt.Fprintf(&b, " [%d] %s", occ.id, occ.shownameLocked())
		if occ.shownameLocked() != occ.charNameLocked() {
			fmt.Fprintf(&b, " (%s)", occ.charNameLocked())
		}
		if occ.pos != "" {
			fmt.Fprintf(&b, " <%s>", occ.pos)
		}
		if c.isMod {
			fmt.Fprintf(&b, " (%s): %s", occ.ipid, occ.name)
		}
	}
	return b.String(), nil
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}
