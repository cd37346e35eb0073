package server

import (
	"context"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"courtmux/server/logging"
	logroom "courtmux/server/logging/room"
)

// Config carries the numeric limits and catalogs the core consumes. The
// full on-disk configuration lives in internal/config; only the parts the
// graph needs are projected in here.
type Config struct {
	Hostname         string
	MOTD             string
	PlayerLimit      int
	MulticlientLimit int
	MusicFloodguard  FloodguardConfig
	WTCEFloodguard   FloodguardConfig
	ModPasswords     map[string]string // profile name -> password
}

// RoomEvent is one durable room-log record handed to the persistence
// boundary.
type RoomEvent struct {
	Kind     string
	ActorID  int
	ActorIP  string
	Hub      string
	Area     string
	TargetID int // -1 when the event has no target
	Message  string
}

// RoomLogger is the abstract "log room event" primitive. Implementations
// are treated as durable; the core never retries them.
type RoomLogger interface {
	LogRoomEvent(ev RoomEvent)
}

// CharacterStore loads and saves hub-scoped character-data overrides.
type CharacterStore interface {
	LoadCharacterData(hubID int) (map[int]*CharacterData, error)
	SaveCharacterData(hubID int, data map[int]*CharacterData) error
}

type nopRoomLogger struct{}

func (nopRoomLogger) LogRoomEvent(RoomEvent) {}

// World owns the hub graph, the session registry, the shared catalogs and
// the party list.
//
// Locking discipline: every hub serializes its own area graph and the
// placement fields of the clients currently inside it with hub.mu;
// unrelated hubs mutate concurrently. Registry state (live set, id heap,
// per-IP counters, follow links) is under registry.mu, and the party list
// under partyMu. Lock order is hub.mu (ascending hub id when two are
// needed) -> registry.mu -> partyMu; outbound sends are non-blocking
// enqueues, so holding a lock across a Send is fine.
type World struct {
	cfg    Config
	roster *Roster
	music  MusicList

	registry    *Registry
	logger      RoomLogger
	pub         logging.Publisher
	chars       CharacterStore
	friendStore FriendStore

	topoMu sync.Mutex // guards the hubs slice itself, not hub internals
	hubs   []*Hub

	partyMu     sync.Mutex
	parties     []*Party
	nextPartyID int
}

// NewWorld builds an empty world. Hubs are attached by ApplyTopology.
func NewWorld(cfg Config, roster *Roster, music MusicList) *World {
	w := &World{
		cfg:    cfg,
		roster: roster,
		music:  music,
		logger: nopRoomLogger{},
		pub:    logging.NopPublisher(),
	}
	w.registry = NewRegistry(w, cfg.PlayerLimit, cfg.MulticlientLimit)
	return w
}

// SetRoomLogger wires the persistence boundary for room events.
func (w *World) SetRoomLogger(l RoomLogger) {
	if l != nil {
		w.logger = l
	}
}

// SetPublisher wires the structured-event stream. Room events fan into it
// alongside the durable room log.
func (w *World) SetPublisher(p logging.Publisher) {
	if p != nil {
		w.pub = p
	}
}

// SetCharacterStore wires the character-data persistence boundary.
func (w *World) SetCharacterStore(s CharacterStore) { w.chars = s }

func (w *World) Config() Config         { return w.cfg }
func (w *World) Roster() *Roster        { return w.roster }
func (w *World) Registry() *Registry    { return w.registry }
func (w *World) MusicCatalog() MusicList { return w.music }

// Hubs returns the current hub list.
func (w *World) Hubs() []*Hub {
	w.topoMu.Lock()
	defer w.topoMu.Unlock()
	return append([]*Hub(nil), w.hubs...)
}

// DefaultHub is the landing hub for fresh connections.
func (w *World) DefaultHub() *Hub {
	w.topoMu.Lock()
	defer w.topoMu.Unlock()
	if len(w.hubs) == 0 {
		return nil
	}
	return w.hubs[0]
}

// HubByID resolves a hub id.
func (w *World) HubByID(id int) (*Hub, error) {
	w.topoMu.Lock()
	defer w.topoMu.Unlock()
	for _, h := range w.hubs {
		if h.id == id {
			return h, nil
		}
	}
	return nil, areaError("hub not found")
}

// PlayerCount is the number of live sessions server-wide.
func (w *World) PlayerCount() int { return w.registry.Count() }

func (w *World) logRoom(kind string, actor *Client, area *Area, targetID int, message string) {
	ev := RoomEvent{Kind: kind, ActorID: -1, TargetID: targetID, Message: message}
	if actor != nil {
		ev.ActorID = actor.id
		ev.ActorIP = actor.ipid
	}
	if area != nil {
		ev.Area = area.name
		ev.Hub = area.hub.name
	}
	w.logger.LogRoomEvent(ev)
	w.publishRoom(ev)
}

// publishRoom mirrors one room-log record onto the event stream.
func (w *World) publishRoom(ev RoomEvent) {
	ctx := context.Background()
	actor := logging.SessionRef(strconv.Itoa(ev.ActorID))
	switch ev.Kind {
	case "move":
		logroom.Transition(ctx, w.pub, actor, ev.Hub, logroom.TransitionPayload{From: ev.Message, To: ev.Area})
	case "music":
		logroom.Music(ctx, w.pub, actor, ev.Hub, ev.Area, logroom.MusicPayload{Song: ev.Message})
	case "lock":
		logroom.LockChanged(ctx, w.pub, actor, ev.Hub, ev.Area, ev.Message)
	case "hide":
		logroom.Hide(ctx, w.pub, actor, ev.Hub, ev.Area, ev.Message)
	default:
		logroom.Activity(ctx, w.pub, actor, ev.Hub, ev.Area, ev.Kind, ev.Message)
	}
}

// anonymizeIP reduces a remote address to a stable opaque identifier, the
// ipid. Equal addresses always map to the same ipid.
func anonymizeIP(addr string) string {
	return strconv.FormatUint(xxhash.Sum64String(addr), 10)
}

// lockHubPair takes one or two hub locks in ascending id order so that
// cross-hub transitions cannot deadlock against each other.
func lockHubPair(a, b *Hub) {
	switch {
	case a == b || b == nil:
		a.mu.Lock()
	case a.id < b.id:
		a.mu.Lock()
		b.mu.Lock()
	default:
		b.mu.Lock()
		a.mu.Lock()
	}
}

func unlockHubPair(a, b *Hub) {
	if a != b && b != nil {
		b.mu.Unlock()
	}
	a.mu.Unlock()
}
