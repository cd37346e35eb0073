package server

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LinkDef is one directed link in an area definition, keyed by the target
// area's index within the same hub.
type LinkDef struct {
	Target    int    `yaml:"target" json:"target"`
	Locked    bool   `yaml:"locked,omitempty" json:"locked,omitempty"`
	Hidden    bool   `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	Evidence  []int  `yaml:"evidence,omitempty" json:"evidence,omitempty"`
	TargetPos string `yaml:"target_pos,omitempty" json:"target_pos,omitempty"`
	CanPeek   bool   `yaml:"can_peek,omitempty" json:"can_peek,omitempty"`
}

// AreaDef is the on-disk shape of one area. Pointer fields distinguish
// "absent, keep the default" from an explicit false/zero.
type AreaDef struct {
	Area            string     `yaml:"area" json:"area"`
	Background      string     `yaml:"background,omitempty" json:"background,omitempty"`
	BGLock          bool       `yaml:"bglock,omitempty" json:"bglock,omitempty"`
	Desc            string     `yaml:"desc,omitempty" json:"desc,omitempty"`
	Status          string     `yaml:"status,omitempty" json:"status,omitempty"`
	PosLock         string     `yaml:"pos_lock,omitempty" json:"pos_lock,omitempty"`
	MaxPlayers      *int       `yaml:"max_players,omitempty" json:"max_players,omitempty"`
	Hidden          bool       `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	CanDJ           *bool      `yaml:"can_dj,omitempty" json:"can_dj,omitempty"`
	CanChangeStatus *bool      `yaml:"can_change_status,omitempty" json:"can_change_status,omitempty"`
	ClientMusic     *bool      `yaml:"client_music,omitempty" json:"client_music,omitempty"`
	HideClients     bool       `yaml:"hide_clients,omitempty" json:"hide_clients,omitempty"`
	MoveDelay       int        `yaml:"move_delay,omitempty" json:"move_delay,omitempty"` // seconds
	MusicRef        string     `yaml:"music_list,omitempty" json:"music_list,omitempty"`
	ReplaceMusic    bool       `yaml:"replace_music,omitempty" json:"replace_music,omitempty"`
	Ambience        string     `yaml:"ambience,omitempty" json:"ambience,omitempty"`
	Jukebox         bool       `yaml:"jukebox,omitempty" json:"jukebox,omitempty"`
	Evidence        []Evidence `yaml:"evidence,omitempty" json:"evidence,omitempty"`
	Links           []LinkDef  `yaml:"links,omitempty" json:"links,omitempty"`
}

// HubDef is the on-disk shape of one hub.
type HubDef struct {
	Hub          string    `yaml:"hub" json:"hub"`
	Abbreviation string    `yaml:"abbreviation,omitempty" json:"abbreviation,omitempty"`
	Info         string    `yaml:"info,omitempty" json:"info,omitempty"`
	ARUP         *bool     `yaml:"arup,omitempty" json:"arup,omitempty"`
	ClientMusic  *bool     `yaml:"client_music,omitempty" json:"client_music,omitempty"`
	SingleCM     bool      `yaml:"single_cm,omitempty" json:"single_cm,omitempty"`
	HideClients  bool      `yaml:"hide_clients,omitempty" json:"hide_clients,omitempty"`
	MusicRef     string    `yaml:"music_list,omitempty" json:"music_list,omitempty"`
	ReplaceMusic bool      `yaml:"replace_music,omitempty" json:"replace_music,omitempty"`
	Areas        []AreaDef `yaml:"areas" json:"areas"`
}

// Topology is the full hub/area layout.
type Topology []HubDef

// LoadTopology reads and validates a topology file.
func LoadTopology(path string) (Topology, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, serverError("topology %s is unreadable: %v", path, err)
	}
	var t Topology
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, serverError("topology %s is malformed: %v", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the layout before it is allowed anywhere near a live
// world: a bad file must never leave the server with a half-applied
// graph.
func (t Topology) Validate() error {
	if len(t) == 0 {
		return serverError("topology defines no hubs")
	}
	hubNames := make(map[string]struct{}, len(t))
	for hi, hub := range t {
		if hub.Hub == "" {
			return serverError("hub %d has no name", hi)
		}
		key := strings.ToLower(hub.Hub)
		if _, dup := hubNames[key]; dup {
			return serverError("duplicate hub name %q", hub.Hub)
		}
		hubNames[key] = struct{}{}
		if len(hub.Areas) == 0 {
			return serverError("hub %q defines no areas", hub.Hub)
		}
		for ai, area := range hub.Areas {
			if area.Area == "" {
				return serverError("hub %q area %d has no name", hub.Hub, ai)
			}
			if area.MaxPlayers != nil && (*area.MaxPlayers < -1 || *area.MaxPlayers > 99) {
				return serverError("hub %q area %q: max_players out of range", hub.Hub, area.Area)
			}
			for _, link := range area.Links {
				if link.Target < 0 || link.Target >= len(hub.Areas) {
					return serverError("hub %q area %q: link target %d out of range", hub.Hub, area.Area, link.Target)
				}
				if link.Target == ai {
					return serverError("hub %q area %q: link targets itself", hub.Hub, area.Area)
				}
				for _, evi := range link.Evidence {
					if evi < 0 || evi >= len(area.Evidence) {
						return serverError("hub %q area %q: link evidence index %d out of range", hub.Hub, area.Area, evi)
					}
				}
			}
		}
	}
	return nil
}

// ApplyTopology installs (or re-installs) the layout. Existing hubs and
// areas are updated in place by index so ownership, invitations and
// occupants survive a reload; occupants of removed areas land in their
// hub's default area, occupants of removed hubs in the default hub.
func (w *World) ApplyTopology(t Topology) error {
	if err := t.Validate(); err != nil {
		return err
	}

	w.topoMu.Lock()
	for i, def := range t {
		if i < len(w.hubs) {
			w.hubs[i].applyDef(def)
			continue
		}
		h := newHub(w, i, def.Hub)
		h.applyDef(def)
		w.hubs = append(w.hubs, h)
	}
	var orphaned []*Client
	for _, h := range w.hubs[len(t):] {
		orphaned = append(orphaned, h.Clients()...)
	}
	w.hubs = w.hubs[:len(t)]
	w.topoMu.Unlock()

	def := w.DefaultHub()
	for _, c := range orphaned {
		if err := c.ForceMove(def.DefaultArea()); err == nil {
			c.sendOOC("Your hub was removed; you were moved to " + def.Name() + ".")
		}
	}
	return nil
}

// applyDef reconciles one hub against its definition. Occupants of
// removed areas are folded back into the default area in place.
func (h *Hub) applyDef(def HubDef) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.name = def.Hub
	h.abbreviation = def.Abbreviation
	if h.abbreviation == "" {
		h.abbreviation = abbreviate(def.Hub)
	}
	h.info = def.Info
	h.arupEnabled = def.ARUP == nil || *def.ARUP
	h.clientMusic = def.ClientMusic == nil || *def.ClientMusic
	h.singleCM = def.SingleCM
	h.hideClients = def.HideClients
	h.musicRef = def.MusicRef
	h.replaceMusic = def.ReplaceMusic

	for i, areaDef := range def.Areas {
		var a *Area
		if i < len(h.areas) {
			a = h.areas[i]
			a.name = areaDef.Area
			a.abbreviation = abbreviate(areaDef.Area)
		} else {
			a = newArea(h, i, areaDef.Area)
			h.areas = append(h.areas, a)
		}
		a.applyDefLocked(areaDef)
	}

	if len(def.Areas) < len(h.areas) {
		landing := h.areas[0]
		for _, removed := range h.areas[len(def.Areas):] {
			for c := range removed.clients {
				removed.removeClientLocked(c)
				c.hiddenIn = NoHider
				c.area = landing
				landing.addClientLocked(c)
				c.sendOOC("Your area was removed; you were moved to " + landing.label() + ".")
				c.sendAreaListLocked()
			}
		}
		h.areas = h.areas[:len(def.Areas)]
	}
	h.sendAllARUPLocked(nil)
}

// applyDefLocked reconciles one area's configuration, leaving runtime
// state (occupants, owners, invitations, current music) untouched.
func (a *Area) applyDefLocked(def AreaDef) {
	if def.Background != "" {
		a.background = def.Background
	}
	a.bgLock = def.BGLock
	a.desc = def.Desc
	if def.Status != "" {
		a.status = strings.ToUpper(def.Status)
	}
	if def.PosLock != "" {
		a.posLock = strings.Fields(strings.ToLower(def.PosLock))
	} else {
		a.posLock = nil
	}
	if def.MaxPlayers != nil {
		a.maxPlayers = *def.MaxPlayers
	}
	a.hidden = def.Hidden
	a.canDJ = def.CanDJ == nil || *def.CanDJ
	a.canChangeStatus = def.CanChangeStatus == nil || *def.CanChangeStatus
	a.clientMusic = def.ClientMusic == nil || *def.ClientMusic
	a.hideClients = def.HideClients
	a.moveDelay = time.Duration(def.MoveDelay) * time.Second
	a.musicRef = def.MusicRef
	a.replaceMusic = def.ReplaceMusic
	a.ambience = def.Ambience
	a.jukebox = def.Jukebox

	// The evidence list is about to be replaced; anyone concealed in the
	// old list must come out first or the hiding pairing goes stale.
	for c := range a.clients {
		if c.hiddenIn != NoHider {
			c.hideLocked(false, "", true)
		}
	}
	a.evidence = a.evidence[:0]
	for _, evi := range def.Evidence {
		item := evi
		item.HiderID = NoHider
		a.evidence = append(a.evidence, &item)
	}
	a.links = make(map[int]*Link, len(def.Links))
	for _, ld := range def.Links {
		a.links[ld.Target] = &Link{
			Locked:    ld.Locked,
			Hidden:    ld.Hidden,
			Evidence:  append([]int(nil), ld.Evidence...),
			TargetPos: ld.TargetPos,
			CanPeek:   ld.CanPeek,
		}
	}
}

// Snapshot renders the live layout back into a definition, so runtime
// edits (links, descriptions, evidence) can be written to disk.
func (w *World) Snapshot() Topology {
	w.topoMu.Lock()
	hubs := append([]*Hub(nil), w.hubs...)
	w.topoMu.Unlock()

	t := make(Topology, 0, len(hubs))
	for _, h := range hubs {
		h.mu.Lock()
		def := HubDef{
			Hub:          h.name,
			Abbreviation: h.abbreviation,
			Info:         h.info,
			SingleCM:     h.singleCM,
			HideClients:  h.hideClients,
			MusicRef:     h.musicRef,
			ReplaceMusic: h.replaceMusic,
		}
		arup := h.arupEnabled
		def.ARUP = &arup
		clientMusic := h.clientMusic
		def.ClientMusic = &clientMusic
		for _, a := range h.areas {
			max := a.maxPlayers
			canDJ, canStatus, areaMusic := a.canDJ, a.canChangeStatus, a.clientMusic
			ad := AreaDef{
				Area:            a.name,
				Background:      a.background,
				BGLock:          a.bgLock,
				Desc:            a.desc,
				Status:          a.status,
				PosLock:         strings.Join(a.posLock, " "),
				MaxPlayers:      &max,
				Hidden:          a.hidden,
				CanDJ:           &canDJ,
				CanChangeStatus: &canStatus,
				ClientMusic:     &areaMusic,
				HideClients:     a.hideClients,
				MoveDelay:       int(a.moveDelay / time.Second),
				MusicRef:        a.musicRef,
				ReplaceMusic:    a.replaceMusic,
				Ambience:        a.ambience,
				Jukebox:         a.jukebox,
			}
			for _, evi := range a.evidence {
				ad.Evidence = append(ad.Evidence, *evi)
			}
			for target, link := range a.links {
				ad.Links = append(ad.Links, LinkDef{
					Target:    target,
					Locked:    link.Locked,
					Hidden:    link.Hidden,
					Evidence:  append([]int(nil), link.Evidence...),
					TargetPos: link.TargetPos,
					CanPeek:   link.CanPeek,
				})
			}
			def.Areas = append(def.Areas, ad)
		}
		h.mu.Unlock()
		t = append(t, def)
	}
	return t
}

// SaveTopology writes the live layout to path.
func (w *World) SaveTopology(path string) error {
	raw, err := yaml.Marshal(w.Snapshot())
	if err != nil {
		return serverError("cannot encode topology: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return serverError("cannot write topology %s: %v", path, err)
	}
	return nil
}

// AddArea appends a fresh area to the hub at runtime.
func (h *Hub) AddArea(name string) (*Area, error) {
	if name == "" {
		return nil, argumentError("Area name may not be empty.")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	a := newArea(h, len(h.areas), name)
	h.areas = append(h.areas, a)
	h.sendAllARUPLocked(nil)
	for _, c := range h.clientsLocked() {
		c.sendAreaListLocked()
	}
	return a, nil
}

// RemoveArea deletes an area at runtime; its occupants fall back to the
// hub default. The default area itself cannot be removed.
func (h *Hub) RemoveArea(id int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id == 0 {
		return clientError("The default area cannot be removed.")
	}
	idx := -1
	for i, a := range h.areas {
		if a.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return areaError("Area not found.")
	}
	removed := h.areas[idx]
	landing := h.defaultAreaLocked()
	for c := range removed.clients {
		removed.removeClientLocked(c)
		c.hiddenIn = NoHider
		c.area = landing
		landing.addClientLocked(c)
		c.sendOOC("Your area was removed; you were moved to " + landing.label() + ".")
	}
	h.areas = append(h.areas[:idx], h.areas[idx+1:]...)
	for i, a := range h.areas {
		a.id = i
	}
	// Link keys are area indices; everything past the removed slot shifted
	// down by one, so the keys shift with it.
	for _, a := range h.areas {
		if len(a.links) == 0 {
			continue
		}
		remapped := make(map[int]*Link, len(a.links))
		for target, link := range a.links {
			switch {
			case target == idx:
				// The link dies with its target.
			case target > idx:
				remapped[target-1] = link
			default:
				remapped[target] = link
			}
		}
		a.links = remapped
	}
	h.sendAllARUPLocked(nil)
	for _, c := range h.clientsLocked() {
		c.sendAreaListLocked()
	}
	return nil
}

// SetLink creates or replaces a directed link at runtime.
func (a *Area) SetLink(targetID int, link Link) error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if _, err := a.hub.areaByIDLocked(targetID); err != nil {
		return err
	}
	if targetID == a.id {
		return argumentError("An area cannot link to itself.")
	}
	cp := link
	cp.Evidence = append([]int(nil), link.Evidence...)
	a.links[targetID] = &cp
	for c := range a.clients {
		c.sendAreaListLocked()
	}
	return nil
}

// RemoveLink drops a directed link at runtime. Removing the last link
// leaves the area unrestricted again.
func (a *Area) RemoveLink(targetID int) error {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	if _, ok := a.links[targetID]; !ok {
		return areaError("No such link.")
	}
	delete(a.links, targetID)
	for c := range a.clients {
		c.sendAreaListLocked()
	}
	return nil
}

// Link returns a copy of the link toward targetID.
func (a *Area) Link(targetID int) (Link, bool) {
	a.hub.mu.Lock()
	defer a.hub.mu.Unlock()
	link, ok := a.links[targetID]
	if !ok {
		return Link{}, false
	}
	cp := *link
	cp.Evidence = append([]int(nil), link.Evidence...)
	return cp, true
}
