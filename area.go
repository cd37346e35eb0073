package server

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockState is an area's access-control mode.
type LockState int

const (
	// LockFree: anyone may enter and talk.
	LockFree LockState = iota
	// LockSpectatable: anyone may enter, only invited sessions interact IC.
	LockSpectatable
	// LockLocked: only invited or privileged sessions may enter.
	LockLocked
)

func (s LockState) String() string {
	switch s {
	case LockSpectatable:
		return "SPECTATABLE"
	case LockLocked:
		return "LOCKED"
	default:
		return "FREE"
	}
}

// Link is one directed edge in an area's link table, keyed by destination
// area id. An area with a non-empty link table rejects unlisted
// destinations for unprivileged movers.
type Link struct {
	Locked    bool
	Hidden    bool
	Evidence  []int // evidence indices that satisfy the gate; empty = no gate
	TargetPos string
	CanPeek   bool
}

// UnlimitedPlayers disables the occupancy cap; a cap of 0 makes the area
// unreachable by normal transition.
const UnlimitedPlayers = -1

type jukeboxVote struct {
	clientID int
	song     string
	length   int
	showname string
}

// Area is one room inside a hub. All fields are guarded by the owning
// hub's mutex.
type Area struct {
	hub          *Hub
	id           int
	name         string
	abbreviation string

	clients map[*Client]struct{}
	afkers  map[*Client]struct{}
	owners  map[*Client]struct{} // CMs; disjoint from hub-level GMs

	lockState  LockState
	inviteList map[int]struct{}
	links      map[int]*Link
	maxPlayers int
	hidden     bool // omitted from casual area lists

	background      string
	bgLock          bool
	desc            string
	status          string
	posLock         []string
	evidence        []*Evidence
	canDJ           bool
	canChangeStatus bool
	hideClients     bool
	moveDelay       time.Duration // added on top of the character's own delay

	music        string
	musicBy      string
	ambience     string
	jukebox      bool
	jukeboxVotes []jukeboxVote

	clientMusic  bool
	musicRef     string
	musicList    MusicList
	replaceMusic bool

	hpDef int
	hpPro int
}

func newArea(hub *Hub, id int, name string) *Area {
	return &Area{
		hub:             hub,
		id:              id,
		name:            name,
		abbreviation:    abbreviate(name),
		clients:         make(map[*Client]struct{}),
		afkers:          make(map[*Client]struct{}),
		owners:          make(map[*Client]struct{}),
		inviteList:      make(map[int]struct{}),
		links:           make(map[int]*Link),
		maxPlayers:      UnlimitedPlayers,
		background:      "default",
		status:          "IDLE",
		canDJ:           true,
		canChangeStatus: true,
		clientMusic:     true,
		hpDef:           10,
		hpPro:           10,
	}
}

// abbreviate derives a short tag from an area or hub name: initials for
// multi-word names, the first three letters otherwise.
func abbreviate(name string) string {
	words := strings.Fields(name)
	if len(words) > 1 {
		var b strings.Builder
		for _, wd := range words {
			r := []rune(wd)
			b.WriteRune(r[0])
		}
		return strings.ToUpper(b.String())
	}
	r := []rune(name)
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

func (a *Area) ID() int       { return a.id }
func (a *Area) Name() string  { return a.name }
func (a *Area) Hub() *Hub     { return a.hub }
func (a *Area) label() string { return fmt.Sprintf("[%d] %s", a.id, a.name) }

// LockStateNow reads the lock mode under the hub lock.
func (a *Area) LockStateNow() LockState {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	return a.lockState
}

// addClientLocked attaches c to this area's membership set. Pairs with the
// caller updating c.area in the same critical section.
func (a *Area) addClientLocked(c *Client) {
	a.clients[c] = struct{}{}
}

// removeClientLocked detaches c, dropping AFK state with it. Ownership is
// left alone: CMs keep their room across transitions inside the hub.
func (a *Area) removeClientLocked(c *Client) {
	delete(a.clients, c)
	delete(a.afkers, c)
}

// isOwnerLocked reports room-level (CM) ownership.
func (a *Area) isOwnerLocked(c *Client) bool {
	_, ok := a.owners[c]
	return ok
}

// AddOwner grants CM status over this area, honoring the hub's
// one-CM-per-area policy.
func (a *Area) AddOwner(c *Client) error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if a.hub.singleCM && len(a.owners) > 0 {
		return clientError("This hub only allows one CM per area.")
	}
	if _, already := a.owners[c]; already {
		return clientError("You are already a CM here.")
	}
	a.owners[c] = struct{}{}
	a.broadcastOOCLocked(fmt.Sprintf("%s is now a CM of this area.", c.shownameLocked()))
	a.hub.sendARUPOwnersLocked(nil)
	return nil
}

// RemoveOwner revokes CM status.
func (a *Area) RemoveOwner(c *Client) error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if _, ok := a.owners[c]; !ok {
		return clientError("You are not a CM here.")
	}
	delete(a.owners, c)
	a.broadcastOOCLocked(fmt.Sprintf("%s is no longer a CM of this area.", c.shownameLocked()))
	a.hub.sendARUPOwnersLocked(nil)
	return nil
}

// IsOwner reports room-level (CM) ownership.
func (a *Area) IsOwner(c *Client) bool {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	return a.isOwnerLocked(c)
}

// isInvitedLocked reports invite-list membership; the list only has
// meaning while the area is not FREE.
func (a *Area) isInvitedLocked(c *Client) bool {
	_, ok := a.inviteList[c.id]
	return ok
}

// cannotICInteractLocked: a non-FREE area restricts IC interaction to
// invited, owning or moderating sessions.
func (a *Area) cannotICInteractLocked(c *Client) bool {
	if a.lockState == LockFree {
		return false
	}
	return !c.isMod && !a.isOwnerLocked(c) && !a.isInvitedLocked(c)
}

// visibleCountLocked counts occupants for casual player lists: hidden
// sessions are excluded, everyone else counts.
func (a *Area) visibleCountLocked() int {
	n := 0
	for c := range a.clients {
		if !c.hiddenLocked() {
			n++
		}
	}
	return n
}

// normalOccupancyLocked counts the occupants that a max_players cap
// applies to: non-owner, non-mod, non-hidden.
func (a *Area) normalOccupancyLocked() int {
	n := 0
	for c := range a.clients {
		if c.isMod || a.isOwnerLocked(c) || c.hiddenLocked() {
			continue
		}
		n++
	}
	return n
}

// isCharAvailableLocked reports whether a roster slot is free here.
// Curse-listed sessions may double up on a slot.
func (a *Area) isCharAvailableLocked(charID int) bool {
	for c := range a.clients {
		if c.charID == charID && len(c.charcurse) == 0 {
			return false
		}
	}
	return true
}

// randAvailCharIDLocked picks an arbitrary free roster slot.
func (a *Area) randAvailCharIDLocked() (int, error) {
	roster := a.hub.world.roster
	taken := make(map[int]struct{}, len(a.clients))
	for c := range a.clients {
		if c.charID != SpectatorCharID {
			taken[c.charID] = struct{}{}
		}
	}
	for id := 0; id < roster.Len(); id++ {
		if _, ok := taken[id]; !ok {
			return id, nil
		}
	}
	return 0, areaError("No available characters.")
}

// timeUntilMoveLocked returns the remaining movement cooldown for c in
// this area: the area's own delay plus the character's configured delay,
// measured from the session's last committed move.
func (a *Area) timeUntilMoveLocked(c *Client) time.Duration {
	delay := a.moveDelay + time.Duration(a.hub.characterMoveDelayLocked(c.charID))*time.Second
	if delay <= 0 || c.lastMove.IsZero() {
		return 0
	}
	remaining := delay - time.Since(c.lastMove)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SetLockState switches the access-control mode. Dropping back to FREE
// clears the invite list; locking seeds it with the current occupants so
// nobody present is trapped out of re-entry.
func (a *Area) SetLockState(state LockState) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.setLockStateLocked(state)
}

func (a *Area) setLockStateLocked(state LockState) {
	a.lockState = state
	if state == LockFree {
		a.inviteList = make(map[int]struct{})
	} else {
		for c := range a.clients {
			a.inviteList[c.id] = struct{}{}
		}
	}
	a.broadcastOOCLocked(fmt.Sprintf("This area is now %s.", strings.ToLower(state.String())))
	a.hub.sendARUPLocksLocked(nil)
	a.hub.world.logRoom("lock", nil, a, -1, state.String())
}

// Invite grants id entry while the area is locked or spectatable.
func (a *Area) Invite(id int) error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if a.lockState == LockFree {
		return clientError("Area isn't locked.")
	}
	a.inviteList[id] = struct{}{}
	return nil
}

// InviteAll invites everyone currently in the room.
func (a *Area) InviteAll() error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if a.lockState == LockFree {
		return clientError("Area isn't locked.")
	}
	for c := range a.clients {
		a.inviteList[c.id] = struct{}{}
	}
	return nil
}

// Uninvite revokes an invitation.
func (a *Area) Uninvite(id int) error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if a.lockState == LockFree {
		return clientError("Area isn't locked.")
	}
	delete(a.inviteList, id)
	return nil
}

// ClearInvites drops every invitation, re-seeding with the current
// occupants so nobody inside is trapped.
func (a *Area) ClearInvites() error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if a.lockState == LockFree {
		return clientError("Area isn't locked.")
	}
	a.inviteList = make(map[int]struct{})
	for c := range a.clients {
		a.inviteList[c.id] = struct{}{}
	}
	return nil
}

// ChangeBackground swaps the scenery for everyone in the room.
func (a *Area) ChangeBackground(name string, actor *Client) error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if a.bgLock && !actor.isMod && !a.hub.isOwnerLocked(actor) {
		return areaError("This area's background is locked.")
	}
	a.background = name
	for c := range a.clients {
		c.transport.Send(CmdBackground, a.background, c.pos)
	}
	a.broadcastOOCLocked(fmt.Sprintf("%s changed the background to %s.", actor.shownameLocked(), name))
	a.hub.world.logRoom("bg", actor, a, -1, name)
	return nil
}

// ChangeStatus sets the area's status tag and fans the roster facet out.
func (a *Area) ChangeStatus(status string, actor *Client) error {
	if !a.hub.ARUPEnabled() {
		return clientError("This hub does not use the status system.")
	}
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if !a.canChangeStatus && !actor.isMod && !a.isOwnerLocked(actor) {
		return clientError("This area's status can only be changed by a CM or moderator.")
	}
	status = strings.ToUpper(status)
	switch status {
	case "IDLE", "RP", "CASING", "LOOKING-FOR-PLAYERS", "LFP", "RECESS", "GAMING":
	default:
		return areaError("Invalid status.")
	}
	a.status = status
	a.broadcastOOCLocked(fmt.Sprintf("%s changed status to %s.", actor.shownameLocked(), status))
	a.hub.sendARUPStatusLocked(nil)
	a.hub.world.logRoom("status", actor, a, -1, status)
	return nil
}

// SetDescription replaces the room description and announces a truncated
// preview.
func (a *Area) SetDescription(desc string, actor *Client) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.desc = desc
	preview := desc
	if len(preview) > 128 {
		preview = preview[:128] + "... Use /desc to read the rest."
	}
	a.broadcastOOCLocked(fmt.Sprintf("%s changed the area description to: %s", actor.shownameLocked(), preview))
	a.hub.world.logRoom("desc.change", actor, a, -1, desc)
}

// Description reads the full room description.
func (a *Area) Description() string {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	return a.desc
}

// SetMaxPlayers bounds normal occupancy between -1 (unlimited) and 99.
func (a *Area) SetMaxPlayers(n int) error {
	if n < -1 || n > 99 {
		return clientError("The min-max values are -1 and 99!")
	}
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.maxPlayers = n
	return nil
}

// SetPosLock replaces the position whitelist: lower-cased, deduplicated,
// order preserved. An empty list clears the lock.
func (a *Area) SetPosLock(positions []string) error {
	seen := make(map[string]struct{}, len(positions))
	cleaned := make([]string, 0, len(positions))
	for _, pos := range positions {
		pos = strings.ToLower(pos)
		if len(pos) < 3 {
			return clientError("Position names may not be shorter than 3 symbols!")
		}
		if _, dup := seen[pos]; dup {
			continue
		}
		seen[pos] = struct{}{}
		cleaned = append(cleaned, pos)
	}
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.posLock = cleaned
	if len(cleaned) > 0 {
		a.broadcastOOCLocked(fmt.Sprintf("Locked pos into %s.", strings.Join(cleaned, " ")))
		a.broadcastLocked(CmdPosDropdown, strings.Join(cleaned, "*"))
	} else {
		a.broadcastOOCLocked("Position lock cleared.")
	}
	return nil
}

// PosLock returns the current whitelist.
func (a *Area) PosLock() []string {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	return append([]string(nil), a.posLock...)
}

// allowsPosLocked reports whether pos is acceptable under the whitelist.
func (a *Area) allowsPosLocked(pos string) bool {
	if len(a.posLock) == 0 {
		return true
	}
	for _, p := range a.posLock {
		if strings.EqualFold(p, pos) {
			return true
		}
	}
	return false
}

// SetHP updates one of the two penalty bars (1 = defense, 2 = prosecution)
// and pushes it to the room.
func (a *Area) SetHP(side, value int) error {
	if value < 0 || value > 10 {
		return argumentError("HP must be between 0 and 10.")
	}
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	switch side {
	case 1:
		a.hpDef = value
	case 2:
		a.hpPro = value
	default:
		return argumentError("Side must be 1 (defense) or 2 (prosecution).")
	}
	a.broadcastLocked(CmdHP, itoa(side), itoa(value))
	return nil
}

// PlayMusic starts a track for every occupant and remembers who queued it.
func (a *Area) playMusicLocked(song Song, charID int, showname string, effects int) {
	a.music = song.Name
	a.musicBy = showname
	for c := range a.clients {
		c.transport.Send(CmdPlayMusic, song.Name, itoa(charID), showname, itoa(song.Length), "0", itoa(effects))
	}
}

// setAmbienceLocked swaps the looping background track.
func (a *Area) setAmbienceLocked(name string) {
	a.ambience = name
}

// Jukebox reports whether vote-driven music selection is on.
func (a *Area) Jukebox() bool {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	return a.jukebox
}

// SetJukebox toggles vote-driven music selection; flipping it clears the
// pending tally.
func (a *Area) SetJukebox(on bool) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.jukebox = on
	a.jukeboxVotes = nil
}

// addJukeboxVoteLocked records (or replaces) one session's song vote.
func (a *Area) addJukeboxVoteLocked(c *Client, song string, length int, showname string) {
	for i := range a.jukeboxVotes {
		if a.jukeboxVotes[i].clientID == c.id {
			a.jukeboxVotes[i] = jukeboxVote{clientID: c.id, song: song, length: length, showname: showname}
			return
		}
	}
	a.jukeboxVotes = append(a.jukeboxVotes, jukeboxVote{clientID: c.id, song: song, length: length, showname: showname})
}

// jukeboxLeaderLocked tallies the pending votes; ties break toward the
// earliest vote.
func (a *Area) jukeboxLeaderLocked() (jukeboxVote, bool) {
	if len(a.jukeboxVotes) == 0 {
		return jukeboxVote{}, false
	}
	counts := make(map[string]int)
	for _, v := range a.jukeboxVotes {
		counts[v.song]++
	}
	best := a.jukeboxVotes[0]
	for _, v := range a.jukeboxVotes[1:] {
		if counts[v.song] > counts[best.song] {
			best = v
		}
	}
	return best, true
}

// evidenceArgsLocked renders the evidence visible to c at its position.
func (a *Area) evidenceArgsLocked(c *Client) []string {
	privileged := c.isMod || a.isOwnerLocked(c)
	args := make([]string, 0, len(a.evidence))
	for _, evi := range a.evidence {
		if !evi.visibleFrom(c.pos, privileged) {
			continue
		}
		args = append(args, fmt.Sprintf("%s&%s&%s", evi.Name, evi.Desc, evi.Image))
	}
	return args
}

// broadcastEvidenceLocked resends every occupant their own view of the
// evidence list; views differ by position and privilege.
func (a *Area) broadcastEvidenceLocked() {
	for c := range a.clients {
		c.transport.Send(CmdEvidenceList, a.evidenceArgsLocked(c)...)
	}
}

// AddEvidence appends an item and refreshes everyone's view.
func (a *Area) AddEvidence(evi Evidence) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	evi.HiderID = NoHider
	a.evidence = append(a.evidence, &evi)
	a.broadcastEvidenceLocked()
}

// EditEvidence replaces the item at idx, preserving who is hiding in it.
func (a *Area) EditEvidence(idx int, evi Evidence) error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if idx < 0 || idx >= len(a.evidence) {
		return argumentError("Invalid evidence ID.")
	}
	evi.HiderID = a.evidence[idx].HiderID
	a.evidence[idx] = &evi
	a.broadcastEvidenceLocked()
	return nil
}

// RemoveEvidence deletes the item at idx. Anyone hiding in it is forced
// out first, and hiders in later items have their indices shifted down so
// the pairing stays exact.
func (a *Area) RemoveEvidence(idx int) error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if idx < 0 || idx >= len(a.evidence) {
		return argumentError("Invalid evidence ID.")
	}
	if hider := a.evidence[idx].HiderID; hider != NoHider {
		if c := a.clientByIDLocked(hider); c != nil {
			c.hideLocked(false, "", false)
		}
	}
	a.evidence = append(a.evidence[:idx], a.evidence[idx+1:]...)
	for c := range a.clients {
		if c.hiddenIn > idx {
			c.hiddenIn--
		}
	}
	a.broadcastEvidenceLocked()
	return nil
}

// sortedClientsLocked returns occupants ordered by character name; used
// wherever a stable roster rendering is needed.
func (a *Area) sortedClientsLocked() []*Client {
	out := make([]*Client, 0, len(a.clients))
	for c := range a.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i], out[j]
		ni, nj := ci.charNameLocked(), cj.charNameLocked()
		if ni == nj {
			return ci.id < cj.id
		}
		return ni < nj
	})
	return out
}
