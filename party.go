package server

import (
	"fmt"
	"sort"
	"strings"
)

// Party is a named group of sessions with one leader. All party state,
// including the role/vote fields on member clients, is guarded by
// world.partyMu.
type Party struct {
	world *World

	id     int
	name   string
	leader *Client

	members map[*Client]struct{}
	invites map[int]struct{} // session ids
	locked  bool

	notepad string
	votes   map[*Client]*Client // voter -> candidate
}

func (p *Party) ID() int { return p.id }

// Name returns the party's display name.
func (p *Party) Name() string {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	return p.name
}

// Leader returns the current leader.
func (p *Party) Leader() *Client {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	return p.leader
}

// Members snapshots the member list ordered by session id.
func (p *Party) Members() []*Client {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	return p.membersLocked()
}

func (p *Party) membersLocked() []*Client {
	out := make([]*Client, 0, len(p.members))
	for m := range p.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (p *Party) broadcastLocked(msg string) {
	for m := range p.members {
		m.sendOOC(fmt.Sprintf("[PARTY %s] %s", p.name, msg))
	}
}

// Broadcast sends an OOC line prefixed with the party tag to every member.
func (p *Party) Broadcast(msg string) {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	p.broadcastLocked(msg)
}

// CreateParty starts a new party with c as leader.
func (w *World) CreateParty(c *Client, name string) (*Party, error) {
	if name == "" {
		return nil, argumentError("Party name may not be empty.")
	}
	w.partyMu.Lock()
	defer w.partyMu.Unlock()
	if c.party != nil {
		return nil, clientError("You are already in a party.")
	}
	for _, p := range w.parties {
		if strings.EqualFold(p.name, name) {
			return nil, clientError("A party with that name already exists.")
		}
	}
	p := &Party{
		world:   w,
		id:      w.nextPartyID,
		name:    name,
		leader:  c,
		members: map[*Client]struct{}{c: {}},
		invites: make(map[int]struct{}),
		votes:   make(map[*Client]*Client),
	}
	w.nextPartyID++
	w.parties = append(w.parties, p)
	c.party = p
	c.partyRole = "leader"
	return p, nil
}

// Parties snapshots the party list.
func (w *World) Parties() []*Party {
	w.partyMu.Lock()
	defer w.partyMu.Unlock()
	return append([]*Party(nil), w.parties...)
}

// PartyByID resolves a party id.
func (w *World) PartyByID(id int) (*Party, error) {
	w.partyMu.Lock()
	defer w.partyMu.Unlock()
	for _, p := range w.parties {
		if p.id == id {
			return p, nil
		}
	}
	return nil, clientError("Party not found.")
}

// JoinParty adds c to p, honoring the lock/invite gate.
func (w *World) JoinParty(c *Client, p *Party) error {
	w.partyMu.Lock()
	defer w.partyMu.Unlock()
	if c.party != nil {
		return clientError("You are already in a party.")
	}
	if p.locked {
		if _, invited := p.invites[c.id]; !invited {
			return clientError("That party is locked and you are not invited.")
		}
	}
	delete(p.invites, c.id)
	p.members[c] = struct{}{}
	c.party = p
	c.partyRole = "member"
	p.broadcastLocked(fmt.Sprintf("[%d] %s joined the party.", c.id, c.Showname()))
	return nil
}

// LeaveParty removes c from its party, if any. Leadership transfers to
// the lowest-id remaining member; the last member leaving destroys the
// party. Safe to call for sessions that are not in a party.
func (w *World) LeaveParty(c *Client) {
	w.partyMu.Lock()
	defer w.partyMu.Unlock()
	w.leavePartyLocked(c)
}

func (w *World) leavePartyLocked(c *Client) {
	p := c.party
	if p == nil {
		return
	}
	delete(p.members, c)
	delete(p.votes, c)
	for voter, candidate := range p.votes {
		if candidate == c {
			delete(p.votes, voter)
		}
	}
	c.party = nil
	c.partyRole = ""
	if len(p.members) == 0 {
		w.removePartyLocked(p)
		return
	}
	p.broadcastLocked(fmt.Sprintf("[%d] %s left the party.", c.id, c.Showname()))
	if p.leader == c {
		next := p.membersLocked()[0]
		p.leader = next
		next.partyRole = "leader"
		p.broadcastLocked(fmt.Sprintf("[%d] %s is the new party leader.", next.id, next.Showname()))
	}
}

func (w *World) removePartyLocked(p *Party) {
	for i, q := range w.parties {
		if q == p {
			w.parties = append(w.parties[:i], w.parties[i+1:]...)
			return
		}
	}
}

// DestroyParty disbands the party. Only the leader or a moderator may.
func (w *World) DestroyParty(actor *Client, p *Party) error {
	w.partyMu.Lock()
	defer w.partyMu.Unlock()
	if p.leader != actor && !actor.isMod {
		return clientError("Only the party leader can do that.")
	}
	p.broadcastLocked("The party was disbanded.")
	for m := range p.members {
		m.party = nil
		m.partyRole = ""
	}
	p.members = make(map[*Client]struct{})
	w.removePartyLocked(p)
	return nil
}

// InviteToParty adds a session id to the party's invite list.
func (p *Party) InviteToParty(actor *Client, id int) error {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	if p.leader != actor && !actor.isMod {
		return clientError("Only the party leader can do that.")
	}
	p.invites[id] = struct{}{}
	return nil
}

// Kick removes a member. Leader (or moderator) only; the leader cannot
// kick themselves, they leave instead.
func (p *Party) Kick(actor, target *Client) error {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	if p.leader != actor && !actor.isMod {
		return clientError("Only the party leader can do that.")
	}
	if target == actor {
		return clientError("Use /party leave instead.")
	}
	if _, in := p.members[target]; !in {
		return clientError("That player is not in the party.")
	}
	p.world.leavePartyLocked(target)
	target.sendOOC(fmt.Sprintf("You were kicked from party %s.", p.name))
	return nil
}

// SetLocked flips invite-only joining.
func (p *Party) SetLocked(actor *Client, on bool) error {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	if p.leader != actor && !actor.isMod {
		return clientError("Only the party leader can do that.")
	}
	p.locked = on
	state := "unlocked"
	if on {
		state = "locked"
	}
	p.broadcastLocked("The party is now " + state + ".")
	return nil
}

// SetRole assigns a member's free-form role tag.
func (p *Party) SetRole(actor, target *Client, role string) error {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	if p.leader != actor && !actor.isMod {
		return clientError("Only the party leader can do that.")
	}
	if _, in := p.members[target]; !in {
		return clientError("That player is not in the party.")
	}
	target.partyRole = role
	p.broadcastLocked(fmt.Sprintf("[%d] %s is now %s.", target.id, target.Showname(), role))
	return nil
}

// Vote records (or replaces) the voter's candidate. Both must be members.
func (p *Party) Vote(voter, candidate *Client) error {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	if _, in := p.members[voter]; !in {
		return clientError("You are not in this party.")
	}
	if _, in := p.members[candidate]; !in {
		return clientError("That player is not in the party.")
	}
	p.votes[voter] = candidate
	return nil
}

// VoteTally renders the current vote counts per candidate, weighted by
// each voter's vote power (minimum one).
func (p *Party) VoteTally() map[*Client]int {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	tally := make(map[*Client]int)
	for voter, candidate := range p.votes {
		power := voter.votePower
		if power < 1 {
			power = 1
		}
		tally[candidate] += power
	}
	return tally
}

// ClearVotes resets the ballot.
func (p *Party) ClearVotes(actor *Client) error {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	if p.leader != actor && !actor.isMod {
		return clientError("Only the party leader can do that.")
	}
	p.votes = make(map[*Client]*Client)
	return nil
}

// Notepad reads the shared scratchpad.
func (p *Party) Notepad() string {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	return p.notepad
}

// Notepad bounds: one entry and the whole pad, in bytes.
const (
	notepadEntryMax = 256
	notepadTotalMax = 4000
)

// AppendNotepad appends a line to the shared scratchpad. Oversized
// entries and a full pad are rejected, not truncated.
func (p *Party) AppendNotepad(line string) error {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	if len(line) > notepadEntryMax {
		return clientError("Notepad entries are limited to %d characters.", notepadEntryMax)
	}
	grown := len(p.notepad) + len(line)
	if p.notepad != "" {
		grown++
	}
	if grown > notepadTotalMax {
		return clientError("The party notepad is full.")
	}
	if p.notepad != "" {
		p.notepad += "\n"
	}
	p.notepad += line
	return nil
}

// ClearNotepad wipes the scratchpad. Leader (or moderator) only.
func (p *Party) ClearNotepad(actor *Client) error {
	p.world.partyMu.Lock()
	defer p.world.partyMu.Unlock()
	if p.leader != actor && !actor.isMod {
		return clientError("Only the party leader can do that.")
	}
	p.notepad = ""
	return nil
}

// Party returns the session's current party, nil when none.
func (c *Client) Party() *Party {
	c.world.partyMu.Lock()
	defer c.world.partyMu.Unlock()
	return c.party
}

// PartyRole returns the session's role tag within its party.
func (c *Client) PartyRole() string {
	c.world.partyMu.Lock()
	defer c.world.partyMu.Unlock()
	return c.partyRole
}

// SetVotePower adjusts how much a member's vote counts (moderation tool).
func (c *Client) SetVotePower(n int) {
	c.world.partyMu.Lock()
	defer c.world.partyMu.Unlock()
	c.votePower = n
}
