package server

import (
	"container/heap"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// TargetType selects how a moderation query string is matched against the
// live sessions.
type TargetType int

const (
	// TargetID matches one session by numeric id.
	TargetID TargetType = iota
	// TargetIPID matches every session whose ipid starts with the query.
	TargetIPID
	// TargetOOCName matches sessions whose OOC name starts with the
	// query; sessions with no name set never match.
	TargetOOCName
	// TargetCharName matches sessions whose character name starts with
	// the query.
	TargetCharName
	// TargetAFK matches the AFK set of the scope.
	TargetAFK
	// TargetAll matches every session in the scope.
	TargetAll
)

// idHeap recycles released session ids lowest-first.
type idHeap []int

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Registry owns the live session set: admission limits, id allocation,
// per-address multiclient counting and the follow links. registry.mu is
// taken after any hub lock, never before.
type Registry struct {
	world            *World
	playerLimit      int
	multiclientLimit int

	mu        sync.Mutex
	clients   map[int]*Client
	freeIDs   idHeap
	nextID    int
	perIP     map[string]int
	following map[*Client]int // follower -> target session id
}

// NewRegistry builds an empty registry.
func NewRegistry(w *World, playerLimit, multiclientLimit int) *Registry {
	return &Registry{
		world:            w,
		playerLimit:      playerLimit,
		multiclientLimit: multiclientLimit,
		clients:          make(map[int]*Client),
		perIP:            make(map[string]int),
		following:        make(map[*Client]int),
	}
}

// Count is the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// ByID resolves a live session id.
func (r *Registry) ByID(id int) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

// All snapshots the live session set.
func (r *Registry) All() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// NewClient admits one connection: enforces the server-wide player limit
// and the per-address multiclient limit, allocates the lowest free session
// id, and places the session in the default hub's default area. The
// returned client is live; callers that abort the handshake afterwards
// must still call Disconnect.
func (r *Registry) NewClient(transport Transport, remoteAddr string) (*Client, error) {
	ipid := anonymizeIP(remoteAddr)

	def := r.world.DefaultHub()
	if def == nil {
		return nil, serverError("no hubs are configured")
	}

	r.mu.Lock()
	if r.playerLimit > 0 && len(r.clients) >= r.playerLimit {
		r.mu.Unlock()
		return nil, clientError("This server is full.")
	}
	if r.multiclientLimit > 0 && r.perIP[ipid] >= r.multiclientLimit {
		r.mu.Unlock()
		return nil, clientError("Multiclient limit reached for your address.")
	}
	var id int
	if r.freeIDs.Len() > 0 {
		id = heap.Pop(&r.freeIDs).(int)
	} else {
		id = r.nextID
		r.nextID++
	}
	c := newClient(r.world, transport, id, ipid)
	r.clients[id] = c
	r.perIP[ipid]++
	r.mu.Unlock()

	def.mu.Lock()
	c.hub = def
	c.area = def.defaultAreaLocked()
	c.area.addClientLocked(c)
	def.sendARUPPlayersLocked(nil)
	def.mu.Unlock()
	return c, nil
}

// Disconnect tears a session down as one transaction: dangling follow
// links first, then party membership, then room state under the hub lock,
// then the registry entry and the id. The id only returns to the pool
// after every other structure has forgotten the session.
func (r *Registry) Disconnect(c *Client) {
	for _, f := range r.followersOf(c.id) {
		f.Unfollow(false)
	}
	r.clearFollowing(c)
	c.world.LeaveParty(c)

	// The hub is re-read after locking, same as the transition path: a
	// concurrent forced move may relocate the session before the lock is
	// taken.
	var area *Area
	for {
		hub := c.hub
		hub.mu.Lock()
		if c.hub != hub {
			hub.mu.Unlock()
			continue
		}
		if c.hiddenIn != NoHider && c.hiddenIn < len(c.area.evidence) {
			c.area.evidence[c.hiddenIn].HiderID = NoHider
			c.hiddenIn = NoHider
		}
		area = c.area
		area.removeClientLocked(c)
		for _, a := range hub.areas {
			if a.isOwnerLocked(c) {
				delete(a.owners, c)
			}
		}
		if hub.isOwnerLocked(c) {
			delete(hub.owners, c)
		}
		hub.sendARUPPlayersLocked(nil)
		hub.sendARUPOwnersLocked(nil)
		hub.mu.Unlock()
		break
	}

	r.mu.Lock()
	if _, live := r.clients[c.id]; live {
		delete(r.clients, c.id)
		heap.Push(&r.freeIDs, c.id)
		if r.perIP[c.ipid] > 1 {
			r.perIP[c.ipid]--
		} else {
			delete(r.perIP, c.ipid)
		}
	}
	r.mu.Unlock()

	c.world.logRoom("leave", c, area, -1, "disconnected")
	c.transport.Close()
}

// setFollowing records follower -> target.
func (r *Registry) setFollowing(follower *Client, targetID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.following[follower] = targetID
}

// clearFollowing drops the follower's link, returning the previous target
// id or NoFollow.
func (r *Registry) clearFollowing(follower *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.following[follower]
	if !ok {
		return NoFollow
	}
	delete(r.following, follower)
	return prev
}

// Following returns who the session is tailing, or NoFollow.
func (r *Registry) Following(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.following[c]; ok {
		return id
	}
	return NoFollow
}

// followersOf snapshots every live session currently tailing targetID.
func (r *Registry) followersOf(targetID int) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Client
	for f, t := range r.following {
		if t == targetID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Resolve runs one moderation targeting query. local restricts the scope
// to the actor's current area, otherwise the whole server is searched.
// Name matches are prefix matches on the lower-cased query; the id type
// returns at most one session. The meta type matches where any of the
// other types would. Results come back in area order, members ordered by
// id within each area.
func (r *Registry) Resolve(actor *Client, ttype TargetType, query string, local bool) ([]*Client, error) {
	if ttype == TargetID {
		id, err := strconv.Atoi(query)
		if err != nil {
			return nil, argumentError("%s does not look like a valid ID.", query)
		}
		c, ok := r.ByID(id)
		if !ok {
			return nil, nil
		}
		if local && (c.Hub() != actor.Hub() || c.Area() != actor.Area()) {
			return nil, nil
		}
		return []*Client{c}, nil
	}

	q := strings.ToLower(query)
	idQuery, idErr := strconv.Atoi(query)
	var out []*Client
	scan := func(h *Hub, areaOnly *Area) {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, a := range h.areas {
			if areaOnly != nil && a != areaOnly {
				continue
			}
			for _, c := range a.sortedClientsLocked() {
				match := false
				switch ttype {
				case TargetIPID:
					match = strings.HasPrefix(c.ipid, query)
				case TargetOOCName:
					match = c.name != "" && strings.HasPrefix(strings.ToLower(c.name), q)
				case TargetCharName:
					match = strings.HasPrefix(strings.ToLower(c.charNameLocked()), q)
				case TargetAFK:
					_, match = a.afkers[c]
				case TargetAll:
					match = (idErr == nil && c.id == idQuery) ||
						strings.HasPrefix(c.ipid, query) ||
						(c.name != "" && strings.HasPrefix(strings.ToLower(c.name), q)) ||
						strings.HasPrefix(strings.ToLower(c.charNameLocked()), q)
					if !match {
						_, match = a.afkers[c]
					}
				}
				if match {
					out = append(out, c)
				}
			}
		}
	}

	if local {
		hub := actor.Hub()
		scan(hub, actor.Area())
	} else {
		for _, h := range r.world.Hubs() {
			scan(h, nil)
		}
	}
	return out, nil
}

// ResolveOne is Resolve narrowed to exactly one session.
func (r *Registry) ResolveOne(actor *Client, ttype TargetType, query string, local bool) (*Client, error) {
	targets, err := r.Resolve(actor, ttype, query, local)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, clientError("No targets found.")
	}
	if len(targets) > 1 {
		ids := make([]string, len(targets))
		for i, t := range targets {
			ids[i] = fmt.Sprintf("[%d] %s", t.id, t.CharName())
		}
		return nil, clientError("Multiple targets match: %s.", strings.Join(ids, ", "))
	}
	return targets[0], nil
}
