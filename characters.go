package server

import "strings"

// SpectatorCharID is the character slot of a session that has not picked a
// character. Spectators are implicitly hidden.
const SpectatorCharID = -1

// SpectatorName is the display name used for the spectator slot.
const SpectatorName = "Spectator"

// Roster is the server-wide ordered character list. Slots are addressed by
// index; the roster itself never changes while the server runs.
type Roster struct {
	names []string
}

func NewRoster(names []string) *Roster {
	return &Roster{names: append([]string(nil), names...)}
}

func (r *Roster) Len() int { return len(r.names) }

// Valid reports whether id addresses a real roster slot. The spectator slot
// is not a roster slot.
func (r *Roster) Valid(id int) bool { return id >= 0 && id < len(r.names) }

// Name returns the character name for a slot, or SpectatorName for -1.
func (r *Roster) Name(id int) string {
	if id == SpectatorCharID {
		return SpectatorName
	}
	if !r.Valid(id) {
		return ""
	}
	return r.names[id]
}

// Names returns the roster in order.
func (r *Roster) Names() []string { return append([]string(nil), r.names...) }

// IDByName resolves a character name case-insensitively. The roster is a
// trusted catalog, so a miss is a ServerError ("not found"), not a fault.
func (r *Roster) IDByName(name string) (int, error) {
	for i, n := range r.names {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	return 0, serverError("character %s not found", name)
}
