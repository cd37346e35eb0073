package server

import (
	"fmt"
	"strings"
	"time"
)

// NoFollow marks a session that is not following anyone.
const NoFollow = -1

// Client is one live session. Identity fields (id, ipid, hdid) are fixed
// at admission; placement and flag fields are guarded by the mutex of the
// hub the client is currently in; the following link lives under the
// registry lock.
type Client struct {
	world     *World
	transport Transport

	id   int
	ipid string
	hdid string

	name       string // OOC name
	showname   string
	isMod      bool
	modProfile string

	hub    *Hub
	area   *Area
	charID int
	pos    string

	muted    bool
	oocMuted bool
	isDJ     bool
	blinded  bool
	sneaking bool

	hiddenFlag bool
	hiddenIn   int // evidence index in the current area, NoHider when none

	charcurse []int
	following int // guarded by registry.mu
	party     *Party
	partyRole string
	votePower int

	friends        map[string]struct{} // accepted, keyed by ipid
	friendRequests map[int]struct{}    // pending, keyed by session id

	musicGuard *Floodguard
	wtceGuard  *Floodguard

	lastMove     time.Time
	editAmbience bool

	broadcastList []*Area

	musicRef     string
	musicList    MusicList
	replaceMusic bool

	localAreaList  []*Area
	localMusicList []string
}

func newClient(w *World, transport Transport, id int, ipid string) *Client {
	if transport == nil {
		transport = nopTransport{}
	}
	return &Client{
		world:          w,
		transport:      transport,
		id:             id,
		ipid:           ipid,
		charID:         SpectatorCharID,
		hiddenIn:       NoHider,
		following:      NoFollow,
		isDJ:           true,
		friends:        make(map[string]struct{}),
		friendRequests: make(map[int]struct{}),
		musicGuard:     NewFloodguard(w.cfg.MusicFloodguard),
		wtceGuard:      NewFloodguard(w.cfg.WTCEFloodguard),
	}
}

func (c *Client) ID() int       { return c.id }
func (c *Client) IPID() string  { return c.ipid }
func (c *Client) HDID() string  { return c.hdid }
func (c *Client) IsMod() bool   { return c.isMod }
func (c *Client) World() *World { return c.world }

// Area returns the client's current area.
func (c *Client) Area() *Area {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.area
}

// Hub returns the client's current hub.
func (c *Client) Hub() *Hub { return c.hub }

// Name returns the OOC name.
func (c *Client) Name() string {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.name
}

// SetName sets the OOC name.
func (c *Client) SetName(name string) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.name = name
}

// SetHDID records the hardware id reported during the handshake.
func (c *Client) SetHDID(hdid string) { c.hdid = hdid }

// CharID returns the current roster slot (-1 = spectator).
func (c *Client) CharID() int {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.charID
}

// CharName returns the current character's display name.
func (c *Client) CharName() string {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.charNameLocked()
}

func (c *Client) charNameLocked() string { return c.world.roster.Name(c.charID) }

// Showname is the display name: explicit showname if set, else the
// character name.
func (c *Client) Showname() string {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.shownameLocked()
}

func (c *Client) shownameLocked() string {
	if c.showname != "" {
		return c.showname
	}
	return c.charNameLocked()
}

// SetShowname overrides the display name; empty reverts to the character
// name.
func (c *Client) SetShowname(name string) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.showname = name
}

// hiddenLocked: spectators are implicitly hidden, everyone else follows
// the explicit flag.
func (c *Client) hiddenLocked() bool { return c.charID == SpectatorCharID || c.hiddenFlag }

// Hidden reports whether the session is excluded from casual player
// counts.
func (c *Client) Hidden() bool {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.hiddenLocked()
}

// HiddenIn returns the evidence index the session is concealed in, or
// NoHider.
func (c *Client) HiddenIn() int {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.hiddenIn
}

// Position returns the session's in-area position.
func (c *Client) Position() string {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.pos
}

// Send pushes one raw command frame to this session.
func (c *Client) Send(name string, args ...string) { c.transport.Send(name, args...) }

// sendOOC delivers a private system line. Errors are always delivered this
// way, and only to the acting session.
func (c *Client) sendOOC(msg string) {
	c.transport.Send(CmdOOC, c.world.cfg.Hostname, msg, "1")
}

// SendOOC delivers a private system line to this session only.
func (c *Client) SendOOC(msg string) { c.sendOOC(msg) }

// SendMOTD greets a fresh connection.
func (c *Client) SendMOTD() {
	if motd := c.world.cfg.MOTD; motd != "" {
		c.sendOOC(fmt.Sprintf("=== MOTD ===\r\n%s\r\n=============", motd))
	}
}

// SendHubInfo shows the hub's info text if it has one.
func (c *Client) SendHubInfo() {
	if info := c.hub.Info(); info != "" {
		c.sendOOC(fmt.Sprintf("=== HUB INFO ===\r\n%s\r\n=============", info))
	}
}

// SendPlayerCount reports server occupancy.
func (c *Client) SendPlayerCount() {
	c.sendOOC(fmt.Sprintf("%d/%d players online.", c.world.PlayerCount(), c.world.cfg.PlayerLimit))
}

// sendDescriptionLocked shows a truncated room description.
func (c *Client) sendDescriptionLocked() {
	desc := c.area.desc
	if desc == "" {
		return
	}
	if len(desc) > 128 {
		desc = desc[:128] + "... Use /desc to read the rest."
	}
	c.sendOOC("Description: " + desc)
}

// availableCharMaskLocked renders the roster availability mask: -1 taken,
// 0 free. Curse-listed sessions only see their allowed subset as free.
func (c *Client) availableCharMaskLocked() []string {
	roster := c.world.roster
	mask := make([]string, roster.Len())
	for i := range mask {
		mask[i] = "-1"
	}
	if len(c.charcurse) > 0 {
		for _, id := range c.charcurse {
			if roster.Valid(id) {
				mask[id] = "0"
			}
		}
		return mask
	}
	taken := make(map[int]struct{}, len(c.area.clients))
	for occ := range c.area.clients {
		if occ.charID != SpectatorCharID {
			taken[occ.charID] = struct{}{}
		}
	}
	for i := 0; i < roster.Len(); i++ {
		if _, t := taken[i]; !t {
			mask[i] = "0"
		}
	}
	return mask
}

// sendDoneLocked finishes the join handshake: availability mask, room
// state, every ARUP facet, then DONE. Unconditionally puts the client on
// the character select screen.
func (c *Client) sendDoneLocked() {
	c.transport.Send(CmdCharsCheck, c.availableCharMaskLocked()...)
	c.transport.Send(CmdHP, "1", itoa(c.area.hpDef))
	c.transport.Send(CmdHP, "2", itoa(c.area.hpPro))
	c.transport.Send(CmdBackground, c.area.background, c.pos)
	c.transport.Send(CmdEvidenceList, c.area.evidenceArgsLocked(c)...)
	c.transport.Send(CmdMusicMode, "1")
	c.hub.sendAllARUPLocked([]*Client{c})
	c.transport.Send(CmdDone)
}

// SendDone replays the join handshake state block.
func (c *Client) SendDone() {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.sendDoneLocked()
}

// SetMuted toggles IC muting (moderation).
func (c *Client) SetMuted(on bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.muted = on
}

// SetOOCMuted toggles OOC muting (moderation).
func (c *Client) SetOOCMuted(on bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.oocMuted = on
}

// OOCMuted reports the OOC mute flag.
func (c *Client) OOCMuted() bool {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.oocMuted
}

// SetDJ toggles the session's permission to play music.
func (c *Client) SetDJ(on bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.isDJ = on
}

// CharSelect forces the session back onto the character select screen.
func (c *Client) CharSelect() {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.charSelectLocked()
}

func (c *Client) charSelectLocked() {
	crossed := c.charID != SpectatorCharID
	c.charID = SpectatorCharID
	c.sendDoneLocked()
	if crossed {
		c.hub.sendARUPPlayersLocked(nil)
	}
}

// ChangeCharacter switches the session to a roster slot, or to spectator
// for -1. force evicts a current holder (the eviction puts them on the
// select screen). Curse-listed sessions may only pick from their subset
// and always force.
func (c *Client) ChangeCharacter(target int, force bool) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.changeCharacterLocked(target, force)
}

func (c *Client) changeCharacterLocked(target int, force bool) error {
	if target != SpectatorCharID {
		if !c.world.roster.Valid(target) {
			return clientError("Invalid character ID.")
		}
		if len(c.charcurse) > 0 {
			if !containsInt(c.charcurse, target) {
				return clientError("Character not available.")
			}
			force = true
		}
		if !c.area.isCharAvailableLocked(target) {
			if !force {
				return clientError("Character not available.")
			}
			for occ := range c.area.clients {
				if occ != c && occ.charID == target {
					occ.charSelectLocked()
				}
			}
		}
	}
	oldName := c.charNameLocked()
	crossedSpectator := (c.charID == SpectatorCharID) != (target == SpectatorCharID) && c.charID != target
	c.charID = target
	c.pos = ""
	c.transport.Send(CmdCharSelected, itoa(c.id), "CID", itoa(c.charID))
	if crossedSpectator {
		c.hub.sendARUPPlayersLocked(nil)
	}
	c.world.logRoom("char.change", c, c.area, -1, fmt.Sprintf("%s -> %s", oldName, c.charNameLocked()))
	return nil
}

// ReloadCharacter resets the current character's state.
func (c *Client) ReloadCharacter() error { return c.ChangeCharacter(c.CharID(), true) }

// RandomCharacter picks an arbitrary available slot (or an arbitrary
// curse-listed slot).
func (c *Client) RandomCharacter() error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	var target int
	if len(c.charcurse) > 0 {
		target = c.charcurse[0]
	} else {
		id, err := c.area.randAvailCharIDLocked()
		if err != nil {
			return err
		}
		target = id
	}
	return c.changeCharacterLocked(target, false)
}

// Charcurse restricts the session to a subset of roster slots and throws
// it back to the select screen.
func (c *Client) Charcurse(charIDs []int) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.charcurse = append([]int(nil), charIDs...)
	c.charSelectLocked()
}

// Uncharcurse lifts the restriction.
func (c *Client) Uncharcurse() error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if len(c.charcurse) == 0 {
		return clientError("Client is not charcursed.")
	}
	c.charcurse = nil
	c.charSelectLocked()
	return nil
}

// ChangePosition moves the session to another position in its area. A
// hiding session is forced out of its spot first, exactly like a real
// move.
func (c *Client) ChangePosition(pos string) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if !c.area.allowsPosLocked(pos) {
		return clientError("Invalid pos! Available pos are %s.", strings.Join(c.area.posLock, " "))
	}
	if c.hiddenIn != NoHider {
		c.hideLocked(false, "", false)
		c.area.broadcastAreaListLocked(c)
	}
	c.pos = strings.ToLower(pos)
	c.sendOOC(fmt.Sprintf("Position set to %s.", c.pos))
	c.transport.Send(CmdSetPosition, c.pos)
	c.transport.Send(CmdEvidenceList, c.area.evidenceArgsLocked(c)...)
	return nil
}

// Hide conceals the session inside a piece of evidence (enable) or brings
// it back out. Enabling requires a target specifier: evidence name or
// index. An occupied spot evicts its current occupant first; the command
// layer receives a notice, not an error.
func (c *Client) Hide(enable bool, targetSpec string) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.hideLocked(enable, targetSpec, false)
}

func (c *Client) hideLocked(enable bool, targetSpec string, silent bool) error {
	if !enable && !c.hiddenFlag && c.hiddenIn == NoHider {
		// Already visible; re-running the unhide must not re-fire
		// broadcasts.
		return nil
	}
	msg := "no longer hidden"
	if enable {
		msg = "now hidden"
		if targetSpec == "" {
			return argumentError("Use /hide <evi_name/evi_id> to hide in evidence, or /unhide to stop hiding.")
		}
		privileged := c.isMod || c.area.isOwnerLocked(c)
		idx, ok := resolveEvidence(c.area.evidence, targetSpec, c.pos, privileged)
		if !ok {
			return clientError("Targeted evidence does not exist.")
		}
		evi := c.area.evidence[idx]
		if !evi.CanHide {
			return clientError("Targeted evidence cannot be hidden in.")
		}
		if evi.HiderID != NoHider && evi.HiderID != c.id {
			if prev := c.area.clientByIDLocked(evi.HiderID); prev != nil {
				prev.hideLocked(false, "", false)
				c.area.broadcastAreaListLocked(prev)
				c.sendOOC(fmt.Sprintf("%s was already hiding in that evidence!", prev.shownameLocked()))
			}
		}
		c.hiddenIn = idx
		evi.HiderID = c.id
		msg += " inside the " + evi.Name
	} else if c.hiddenIn != NoHider {
		evi := c.area.evidence[c.hiddenIn]
		evi.HiderID = NoHider
		c.hiddenIn = NoHider
		if !silent {
			c.area.broadcastOOCLocked(fmt.Sprintf("%s emerges from the %s!", c.shownameLocked(), evi.Name))
			// Emerging counts as a move so hide/unhide cannot bypass
			// movement cooldowns.
			c.lastMove = time.Now()
		}
	}
	c.hiddenFlag = enable
	c.sendOOC(fmt.Sprintf("You are %s from /getarea and playercounts.", msg))
	c.hub.sendARUPPlayersLocked(nil)
	c.world.logRoom("hide", c, c.area, -1, msg)
	return nil
}

// SetHidden is the moderator-side visibility toggle; it does not involve
// evidence but does pull the session out of any hiding spot when
// revealing.
func (c *Client) SetHidden(on bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if !on && c.hiddenIn != NoHider {
		c.hideLocked(false, "", false)
		return
	}
	c.hiddenFlag = on
	state := "no longer hidden"
	if on {
		state = "now hidden"
	}
	c.sendOOC(fmt.Sprintf("You are %s from /getarea and playercounts.", state))
	c.hub.sendARUPPlayersLocked(nil)
}

// Blind toggles the blind flag and refreshes evidence visibility.
func (c *Client) Blind(on bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.blinded = on
	state := "no longer"
	if on {
		state = "now"
	}
	c.sendOOC(fmt.Sprintf("You are %s blinded from the area and seeing non-broadcasted IC messages.", state))
	c.transport.Send(CmdEvidenceList, c.area.evidenceArgsLocked(c)...)
}

// Blinded reports the blind flag.
func (c *Client) Blinded() bool {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	return c.blinded
}

// Sneak toggles unannounced area transitions.
func (c *Client) Sneak(on bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.sneaking = on
	state := "no longer"
	if on {
		state = "now"
	}
	c.sendOOC(fmt.Sprintf("You are %s sneaking (area transfer announcements will %s be hidden).", state, state))
}

// ToggleAFK flips AFK membership in the current area, with notices.
func (c *Client) ToggleAFK() {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if _, afk := c.area.afkers[c]; afk {
		delete(c.area.afkers, c)
		c.area.broadcastOOCLocked(fmt.Sprintf("%s is no longer AFK.", c.shownameLocked()))
		c.sendOOC("You are no longer AFK. Welcome back!")
		return
	}
	c.area.afkers[c] = struct{}{}
	c.area.broadcastOOCLocked(fmt.Sprintf("%s is now AFK.", c.shownameLocked()))
	c.sendOOC("You are now AFK. Have a good day!")
}

// Follow starts tailing target: the session moves to the target's area
// and relocates automatically on the target's future transitions.
func (c *Client) Follow(target *Client) error {
	if target == c {
		return clientError("You cannot follow yourself.")
	}
	if dest := target.Area(); dest != c.Area() {
		if err := c.ChangeArea(dest); err != nil {
			return err
		}
	}
	c.world.registry.setFollowing(c, target.id)
	c.sendOOC(fmt.Sprintf("You are now following [%d] %s.", target.id, target.Showname()))
	return nil
}

// Unfollow clears the follow link.
func (c *Client) Unfollow(silent bool) {
	prev := c.world.registry.clearFollowing(c)
	if prev == NoFollow || silent {
		return
	}
	if t, ok := c.world.registry.ByID(prev); ok {
		c.sendOOC(fmt.Sprintf("You are no longer following [%d] %s.", t.id, t.Showname()))
	}
}

// AuthMod attempts a moderator login against the profile table and
// returns the matched profile name.
func (c *Client) AuthMod(password string) (string, error) {
	if c.isMod {
		return "", clientError("Already logged in.")
	}
	for profile, pass := range c.world.cfg.ModPasswords {
		if pass == password {
			c.isMod = true
			c.modProfile = profile
			return profile, nil
		}
	}
	return "", clientError("Invalid password.")
}

// SetMod grants or revokes moderator status directly (tests, console).
func (c *Client) SetMod(on bool, profile string) {
	c.isMod = on
	c.modProfile = profile
}

// SetBroadcastList replaces the curated list of areas the owner fans
// music out to. nil clears it.
func (c *Client) SetBroadcastList(areas []*Area) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.broadcastList = append([]*Area(nil), areas...)
}

// clientByIDLocked finds an occupant of the area by session id.
func (a *Area) clientByIDLocked(id int) *Client {
	for c := range a.clients {
		if c.id == id {
			return c
		}
	}
	return nil
}
