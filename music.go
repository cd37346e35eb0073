package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Song is one playable track. Length is in seconds; -1 means loop forever.
type Song struct {
	Name   string `yaml:"name" json:"name"`
	Length int    `yaml:"length" json:"length"`
}

// MusicCategory groups songs under one header in the client list.
type MusicCategory struct {
	Category        string `yaml:"category" json:"category"`
	Songs           []Song `yaml:"songs" json:"songs"`
	UseUniqueFolder bool   `yaml:"use_unique_folder" json:"use_unique_folder,omitempty"`
}

// MusicList is an ordered sequence of categories. Lists from different
// scopes (server, hub, area, client) are concatenated or replaced according
// to each scope's merge policy.
type MusicList []MusicCategory

// LoadMusicList parses a YAML music list. Categories flagged with
// use_unique_folder get their songs prefixed with the file's base name, the
// same convention the reference lists use on disk.
func LoadMusicList(path string) (MusicList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, areaError("music list %s is unreadable", path)
	}
	var list MusicList
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, areaError("music list %s is malformed: %v", path, err)
	}
	prefix := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "/"
	for i := range list {
		if !list[i].UseUniqueFolder {
			continue
		}
		for j := range list[i].Songs {
			list[i].Songs[j].Name = prefix + list[i].Songs[j].Name
		}
	}
	return list, nil
}

// Song looks a track up by exact name. A miss is a ServerError: the catalog
// itself is trusted, the name simply is not in it.
func (l MusicList) Song(name string) (Song, error) {
	for _, cat := range l {
		for _, song := range cat.Songs {
			if song.Name == name {
				return song, nil
			}
		}
	}
	return Song{}, serverError("song %s not found", name)
}

// Flatten renders the list in wire order: each category name followed by
// its songs.
func (l MusicList) Flatten() []string {
	out := make([]string, 0, len(l)*8)
	for _, cat := range l {
		out = append(out, fmt.Sprintf("==%s==", cat.Category))
		for _, song := range cat.Songs {
			out = append(out, song.Name)
		}
	}
	return out
}

// merge applies a scope's list on top of base honoring its replace flag.
func (l MusicList) merge(overlay MusicList, replace bool) MusicList {
	if len(overlay) == 0 {
		return l
	}
	if replace {
		return overlay
	}
	merged := make(MusicList, 0, len(l)+len(overlay))
	merged = append(merged, l...)
	merged = append(merged, overlay...)
	return merged
}
