package server

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// CharacterData is the per-hub override record for one roster slot. Absent
// fields fall back to the zero defaults.
type CharacterData struct {
	MoveDelay int      `yaml:"move_delay" json:"move_delay"` // seconds
	Keys      []string `yaml:"keys" json:"keys,omitempty"`
	Desc      string   `yaml:"desc" json:"desc,omitempty"`
}

// Hub is one isolated namespace of areas with its own ownership, toggles
// and character-data overrides. hub.mu serializes the whole graph of this
// hub, including the placement fields of every client currently inside it.
type Hub struct {
	mu    sync.Mutex
	world *World

	id           int
	name         string
	abbreviation string
	info         string

	areas  []*Area
	owners map[*Client]struct{} // GMs
	locked bool

	arupEnabled bool
	clientMusic bool
	singleCM    bool
	hideClients bool

	musicRef     string
	musicList    MusicList
	replaceMusic bool

	charData map[int]*CharacterData
}

func newHub(world *World, id int, name string) *Hub {
	return &Hub{
		world:        world,
		id:           id,
		name:         name,
		abbreviation: abbreviate(name),
		owners:       make(map[*Client]struct{}),
		arupEnabled:  true,
		clientMusic:  true,
		charData:     make(map[int]*CharacterData),
	}
}

func (h *Hub) ID() int       { return h.id }
func (h *Hub) Name() string  { return h.name }
func (h *Hub) World() *World { return h.world }
func (h *Hub) label() string { return fmt.Sprintf("[%d] %s", h.id, h.name) }

// Info returns the hub's mutable info text.
func (h *Hub) Info() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info
}

// SetInfo replaces the info text shown to joiners.
func (h *Hub) SetInfo(info string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.info = info
}

// DefaultArea is the landing area of the hub; topology guarantees index 0
// exists.
func (h *Hub) DefaultArea() *Area {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.areas[0]
}

func (h *Hub) defaultAreaLocked() *Area { return h.areas[0] }

// Areas returns the ordered area list.
func (h *Hub) Areas() []*Area {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Area(nil), h.areas...)
}

// AreaByID resolves an area id within this hub.
func (h *Hub) AreaByID(id int) (*Area, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.areaByIDLocked(id)
}

func (h *Hub) areaByIDLocked(id int) (*Area, error) {
	for _, a := range h.areas {
		if a.id == id {
			return a, nil
		}
	}
	return nil, areaError("Area not found.")
}

// FindArea resolves an id, name or abbreviation the way area commands do.
func (h *Hub) FindArea(spec string) (*Area, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range h.areas {
		if spec == itoa(a.id) || strings.EqualFold(a.name, spec) || a.abbreviation == spec {
			return a, nil
		}
	}
	return nil, areaError("Targeted area not found!")
}

// ARUPEnabled reports whether the hub broadcasts roster facets.
func (h *Hub) ARUPEnabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.arupEnabled
}

// SetARUPEnabled toggles roster facet broadcasting.
func (h *Hub) SetARUPEnabled(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.arupEnabled = on
}

// Locked reports the hub-wide lock flag.
func (h *Hub) Locked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.locked
}

// SetLocked flips the hub-wide lock flag.
func (h *Hub) SetLocked(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.locked = on
}

// isOwnerLocked reports hub-level (GM) ownership.
func (h *Hub) isOwnerLocked(c *Client) bool {
	_, ok := h.owners[c]
	return ok
}

// IsOwner reports hub-level (GM) ownership.
func (h *Hub) IsOwner(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.isOwnerLocked(c)
}

// AddOwner grants GM status.
func (h *Hub) AddOwner(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.owners[c] = struct{}{}
	h.sendARUPOwnersLocked(nil)
}

// RemoveOwner revokes GM status.
func (h *Hub) RemoveOwner(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeOwnerLocked(c)
}

func (h *Hub) removeOwnerLocked(c *Client) {
	delete(h.owners, c)
	h.sendARUPOwnersLocked(nil)
}

// GMNames renders the GM set for hub listings.
func (h *Hub) GMNames() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.owners) == 0 {
		return "FREE"
	}
	names := make([]string, 0, len(h.owners))
	for c := range h.owners {
		names = append(names, c.shownameLocked())
	}
	return strings.Join(names, ", ")
}

// clientsLocked collects every session across the hub's areas in area
// order.
func (h *Hub) clientsLocked() []*Client {
	var out []*Client
	for _, a := range h.areas {
		for c := range a.clients {
			out = append(out, c)
		}
	}
	return out
}

// Clients returns every session currently inside the hub.
func (h *Hub) Clients() []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clientsLocked()
}

// VisibleClientCount counts the hub's non-hidden occupants.
func (h *Hub) VisibleClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, a := range h.areas {
		n += a.visibleCountLocked()
	}
	return n
}

// Character-data accessors. The indirection through the per-hub override
// table stays explicit at call sites: (hub, character id, key) in, value
// out.

func (h *Hub) characterMoveDelayLocked(charID int) int {
	if d, ok := h.charData[charID]; ok {
		return d.MoveDelay
	}
	return 0
}

// CharacterMoveDelay reads the per-hub move delay override in seconds.
func (h *Hub) CharacterMoveDelay(charID int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.characterMoveDelayLocked(charID)
}

// SetCharacterMoveDelay sets the per-hub move delay override, clamped to
// +-1800 seconds.
func (h *Hub) SetCharacterMoveDelay(charID, seconds int) {
	if seconds > 1800 {
		seconds = 1800
	}
	if seconds < -1800 {
		seconds = -1800
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.charDataLocked(charID).MoveDelay = seconds
}

// CharacterKeys reads the keys held by a character in this hub.
func (h *Hub) CharacterKeys(charID int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d, ok := h.charData[charID]; ok {
		return append([]string(nil), d.Keys...)
	}
	return nil
}

// SetCharacterKeys replaces the keys held by a character in this hub.
func (h *Hub) SetCharacterKeys(charID int, keys []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.charDataLocked(charID).Keys = append([]string(nil), keys...)
}

// CharacterDesc reads a character's hub-scoped description.
func (h *Hub) CharacterDesc(charID int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d, ok := h.charData[charID]; ok {
		return d.Desc
	}
	return ""
}

// SetCharacterDesc sets a character's hub-scoped description.
func (h *Hub) SetCharacterDesc(charID int, desc string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.charDataLocked(charID).Desc = desc
}

func (h *Hub) charDataLocked(charID int) *CharacterData {
	d, ok := h.charData[charID]
	if !ok {
		d = &CharacterData{}
		h.charData[charID] = d
	}
	return d
}

// SaveCharacterData flushes the override table through the persistence
// boundary.
func (h *Hub) SaveCharacterData() error {
	store := h.world.chars
	if store == nil {
		return clientError("No character store is configured.")
	}
	h.mu.Lock()
	snapshot := make(map[int]*CharacterData, len(h.charData))
	for id, d := range h.charData {
		cp := *d
		cp.Keys = append([]string(nil), d.Keys...)
		snapshot[id] = &cp
	}
	h.mu.Unlock()
	return store.SaveCharacterData(h.id, snapshot)
}

// LoadCharacterData replaces the override table from the persistence
// boundary.
func (h *Hub) LoadCharacterData() error {
	store := h.world.chars
	if store == nil {
		return clientError("No character store is configured.")
	}
	data, err := store.LoadCharacterData(h.id)
	if err != nil {
		return err
	}
	h.mu.Lock()
	if data == nil {
		data = make(map[int]*CharacterData)
	}
	h.charData = data
	h.mu.Unlock()
	log.Printf("hub %d reloaded character data (%d entries)", h.id, len(data))
	return nil
}
