package server

import "fmt"

// scopedMusicLocked builds the catalog c currently sees: the server list,
// then the hub overlay, then the area overlay, then the personal overlay.
// An overlay only applies when its ref differs from the scope above it, so
// reassigning the same list twice never doubles categories.
func (c *Client) scopedMusicLocked() MusicList {
	list := c.world.music
	hub, area := c.hub, c.area
	if hub.musicRef != "" && len(hub.musicList) > 0 {
		list = list.merge(hub.musicList, hub.replaceMusic)
	}
	if area.musicRef != "" && area.musicRef != hub.musicRef && len(area.musicList) > 0 {
		list = list.merge(area.musicList, area.replaceMusic)
	}
	if area.clientMusic && hub.clientMusic &&
		c.musicRef != "" && c.musicRef != area.musicRef && c.musicRef != hub.musicRef &&
		len(c.musicList) > 0 {
		list = list.merge(c.musicList, c.replaceMusic)
	}
	return list
}

// refreshMusicLocked pushes the flattened scoped list, but only when it
// differs from what the client last received.
func (c *Client) refreshMusicLocked() {
	flat := c.scopedMusicLocked().Flatten()
	if equalStrings(flat, c.localMusicList) {
		return
	}
	c.localMusicList = flat
	c.transport.Send(CmdMusicList, flat...)
}

// RefreshMusic recomputes and pushes the scoped music list.
func (c *Client) RefreshMusic() {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.refreshMusicLocked()
}

// SetPersonalMusic installs (or clears, with an empty ref) the session's
// personal overlay and refreshes the visible list.
func (c *Client) SetPersonalMusic(ref string, list MusicList, replace bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.musicRef = ref
	c.musicList = list
	c.replaceMusic = replace
	c.refreshMusicLocked()
}

// SetHubMusic installs the hub overlay and refreshes every occupant.
func (h *Hub) SetHubMusic(ref string, list MusicList, replace bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.musicRef = ref
	h.musicList = list
	h.replaceMusic = replace
	for _, c := range h.clientsLocked() {
		c.refreshMusicLocked()
	}
}

// SetAreaMusic installs the area overlay and refreshes the room.
func (a *Area) SetAreaMusic(ref string, list MusicList, replace bool) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	a.musicRef = ref
	a.musicList = list
	a.replaceMusic = replace
	for c := range a.clients {
		c.refreshMusicLocked()
	}
}

// SetEditAmbience routes the owner's next music picks to the ambience
// channel instead of the main one.
func (c *Client) SetEditAmbience(on bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.editAmbience = on
}

// ChangeMusic plays (or votes for, under a jukebox) a track from the
// session's scoped catalog. Owners and moderators bypass the floodguard,
// the DJ toggle and catalog membership; a curated broadcast list fans the
// track out to every listed area of the same hub.
func (c *Client) ChangeMusic(name string, effects int) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.muted {
		return clientError("You are muted by a moderator.")
	}
	if !c.isDJ {
		return clientError("You were blockdj'd by a moderator.")
	}
	area := c.area
	privileged := c.isMod || area.isOwnerLocked(c) || c.hub.isOwnerLocked(c)
	if area.cannotICInteractLocked(c) {
		return clientError("This is a locked area - ask the CM to enter the invite list first!")
	}
	if !area.canDJ && !privileged {
		return clientError("Free music play is disabled in this area.")
	}
	if !privileged {
		if wait := c.musicGuard.RecordAttempt(); wait > 0 {
			return clientError("You changed the song too many times. Please try again after %d seconds.", int(wait.Seconds())+1)
		}
	}
	song, err := c.scopedMusicLocked().Song(name)
	if err != nil {
		if !privileged {
			return argumentError("Song %s isn't on the music list.", name)
		}
		song = Song{Name: name, Length: -1}
	}
	showname := c.shownameLocked()
	if c.editAmbience && privileged {
		area.setAmbienceLocked(song.Name)
		area.broadcastLocked(CmdPlayMusic, song.Name, itoa(c.charID), showname, itoa(song.Length), "1", itoa(effects))
		c.sendOOC(fmt.Sprintf("Setting area's ambience to %s.", song.Name))
		return nil
	}
	if area.jukebox && !privileged {
		area.addJukeboxVoteLocked(c, song.Name, song.Length, showname)
		c.sendOOC("Your song choice has been added to the jukebox.")
		return nil
	}
	targets := []*Area{area}
	if privileged && len(c.broadcastList) > 0 {
		targets = c.broadcastList
	}
	for _, t := range targets {
		if t.hub != c.hub {
			continue
		}
		t.playMusicLocked(song, c.charID, showname, effects)
	}
	c.world.logRoom("music", c, area, -1, song.Name)
	return nil
}

// PlayJukeboxRound commits the winning vote and clears the tally; the
// caller drives this from a timer when the previous track runs out.
func (a *Area) PlayJukeboxRound() (string, bool) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if !a.jukebox {
		return "", false
	}
	winner, ok := a.jukeboxLeaderLocked()
	if !ok {
		return "", false
	}
	a.jukeboxVotes = nil
	a.playMusicLocked(Song{Name: winner.song, Length: winner.length}, SpectatorCharID, winner.showname, 0)
	return winner.song, true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
