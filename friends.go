package server

import (
	"fmt"
	"sort"
	"strings"
)

// FriendStore persists accepted friendships across sessions, keyed by
// ipid pairs.
type FriendStore interface {
	LoadFriends(ipid string) ([]string, error)
	AddFriend(a, b string) error
	RemoveFriend(a, b string) error
}

// SetFriendStore wires the friendship persistence boundary.
func (w *World) SetFriendStore(s FriendStore) { w.friendStore = s }

// LoadFriends primes the session's friend set from the store; called once
// after admission.
func (c *Client) LoadFriends() error {
	store := c.world.friendStore
	if store == nil {
		return nil
	}
	ipids, err := store.LoadFriends(c.ipid)
	if err != nil {
		return err
	}
	r := c.world.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ipid := range ipids {
		c.friends[ipid] = struct{}{}
	}
	return nil
}

// SendFriendRequest files a pending request with the target.
func (c *Client) SendFriendRequest(target *Client) error {
	if target == c {
		return clientError("You cannot befriend yourself.")
	}
	r := c.world.registry
	r.mu.Lock()
	if _, already := c.friends[target.ipid]; already {
		r.mu.Unlock()
		return clientError("You are already friends.")
	}
	if _, pending := target.friendRequests[c.id]; pending {
		r.mu.Unlock()
		return clientError("You already sent that player a friend request.")
	}
	target.friendRequests[c.id] = struct{}{}
	r.mu.Unlock()
	target.sendOOC(fmt.Sprintf("[%d] %s sent you a friend request. Use /friend %d to accept or /unfriend %d to decline.", c.id, c.Showname(), c.id, c.id))
	c.sendOOC(fmt.Sprintf("Friend request sent to [%d] %s.", target.id, target.Showname()))
	return nil
}

// AcceptFriendRequest turns a pending request into a mutual friendship
// and persists it.
func (c *Client) AcceptFriendRequest(fromID int) error {
	from, ok := c.world.registry.ByID(fromID)
	if !ok {
		return clientError("That player is no longer online.")
	}
	r := c.world.registry
	r.mu.Lock()
	if _, pending := c.friendRequests[fromID]; !pending {
		r.mu.Unlock()
		return clientError("You have no friend request from that player.")
	}
	delete(c.friendRequests, fromID)
	c.friends[from.ipid] = struct{}{}
	from.friends[c.ipid] = struct{}{}
	r.mu.Unlock()

	if store := c.world.friendStore; store != nil {
		if err := store.AddFriend(c.ipid, from.ipid); err != nil {
			return serverError("friendship could not be saved: %v", err)
		}
	}
	from.sendOOC(fmt.Sprintf("[%d] %s accepted your friend request.", c.id, c.Showname()))
	c.sendOOC(fmt.Sprintf("You are now friends with [%d] %s.", from.id, from.Showname()))
	return nil
}

// DeclineFriendRequest drops a pending request without notifying the
// sender.
func (c *Client) DeclineFriendRequest(fromID int) error {
	r := c.world.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, pending := c.friendRequests[fromID]; !pending {
		return clientError("You have no friend request from that player.")
	}
	delete(c.friendRequests, fromID)
	return nil
}

// RemoveFriend dissolves a friendship from both sides.
func (c *Client) RemoveFriend(target *Client) error {
	r := c.world.registry
	r.mu.Lock()
	if _, ok := c.friends[target.ipid]; !ok {
		r.mu.Unlock()
		return clientError("You are not friends with that player.")
	}
	delete(c.friends, target.ipid)
	delete(target.friends, c.ipid)
	r.mu.Unlock()

	if store := c.world.friendStore; store != nil {
		if err := store.RemoveFriend(c.ipid, target.ipid); err != nil {
			return serverError("friendship could not be removed: %v", err)
		}
	}
	c.sendOOC(fmt.Sprintf("You are no longer friends with [%d] %s.", target.id, target.Showname()))
	return nil
}

// IsFriend reports an accepted friendship with the other session.
func (c *Client) IsFriend(other *Client) bool {
	r := c.world.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := c.friends[other.ipid]
	return ok
}

// FriendListText renders the online status of every friend.
func (c *Client) FriendListText() string {
	r := c.world.registry
	r.mu.Lock()
	friends := make(map[string]struct{}, len(c.friends))
	for ipid := range c.friends {
		friends[ipid] = struct{}{}
	}
	var online []*Client
	for _, other := range r.clients {
		if other == c {
			continue
		}
		if _, ok := friends[other.ipid]; ok {
			online = append(online, other)
			delete(friends, other.ipid)
		}
	}
	offline := len(friends)
	r.mu.Unlock()

	sort.Slice(online, func(i, j int) bool { return online[i].id < online[j].id })
	var b strings.Builder
	b.WriteString("=== Friends ===")
	for _, f := range online {
		fmt.Fprintf(&b, "\r\n[%d] %s (%s)", f.id, f.Showname(), f.Hub().Name())
	}
	if offline > 0 {
		fmt.Fprintf(&b, "\r\n%d friend(s) offline.", offline)
	}
	return b.String()
}
