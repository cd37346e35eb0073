package server

import (
	"strconv"
	"strings"
)

// Evidence position markers. Anything else names a specific area position
// the viewer must occupy to see the item.
const (
	EvidencePosAll    = "all"
	EvidencePosHidden = "hidden"
)

// NoHider marks an evidence item nobody is concealed in.
const NoHider = -1

// Evidence is one item in an area's evidence list. HiderID pairs with
// Client.hiddenIn: both sides are updated inside the same hub-locked
// mutation or not at all.
type Evidence struct {
	Name    string `yaml:"name" json:"name"`
	Desc    string `yaml:"desc" json:"desc"`
	Image   string `yaml:"image" json:"image"`
	Pos     string `yaml:"pos" json:"pos"`
	CanHide bool   `yaml:"can_hide" json:"can_hide"`

	HiderID int `yaml:"-" json:"-"`
}

// visibleFrom reports whether a viewer at pos can see the item. Privileged
// viewers (mods, area owners) see everything including "hidden" stashes.
func (e *Evidence) visibleFrom(pos string, privileged bool) bool {
	if privileged {
		return true
	}
	switch e.Pos {
	case "", EvidencePosAll:
		return true
	case EvidencePosHidden:
		return false
	default:
		return strings.EqualFold(e.Pos, pos)
	}
}

// resolveEvidence matches a user-supplied specifier (case-insensitive name
// or index string) against the items visible to the viewer. Returns the
// index into the area's evidence list.
func resolveEvidence(items []*Evidence, query, viewerPos string, privileged bool) (int, bool) {
	for i, evi := range items {
		if !evi.visibleFrom(viewerPos, privileged) {
			continue
		}
		if strings.EqualFold(query, evi.Name) || query == strconv.Itoa(i) {
			return i, true
		}
	}
	return 0, false
}
