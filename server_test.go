package server

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type sentFrame struct {
	name string
	args []string
}

// recorder is a Transport that captures every outbound frame.
type recorder struct {
	mu     sync.Mutex
	frames []sentFrame
	closed bool
}

func (r *recorder) Send(name string, args ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, sentFrame{name: name, args: append([]string(nil), args...)})
}

func (r *recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.frames {
		if f.name == name {
			n++
		}
	}
	return n
}

func (r *recorder) last(name string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].name == name {
			return r.frames[i].args, true
		}
	}
	return nil, false
}

// oocContains reports whether any server OOC line mentions substr.
func (r *recorder) oocContains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.frames {
		if f.name == CmdOOC && len(f.args) >= 2 && strings.Contains(f.args[1], substr) {
			return true
		}
	}
	return false
}

func testConfig() Config {
	return Config{
		Hostname:         "test",
		MOTD:             "welcome",
		PlayerLimit:      10,
		MulticlientLimit: 4,
		MusicFloodguard:  FloodguardConfig{TimesPerInterval: 100, IntervalLength: time.Second, MuteLength: time.Second},
		WTCEFloodguard:   FloodguardConfig{TimesPerInterval: 100, IntervalLength: time.Second, MuteLength: time.Second},
		ModPasswords:     map[string]string{"admin": "hunter2"},
	}
}

func testCatalog() MusicList {
	return MusicList{
		{Category: "Courtroom", Songs: []Song{
			{Name: "objection.mp3", Length: 120},
			{Name: "trial.mp3", Length: -1},
		}},
	}
}

func testTopology() Topology {
	return Topology{
		{Hub: "Courthouse", Areas: []AreaDef{
			{Area: "Lobby"},
			{Area: "Courtroom"},
			{Area: "Basement"},
		}},
		{Hub: "Annex", Areas: []AreaDef{
			{Area: "Annex Lobby"},
			{Area: "Workshop"},
		}},
	}
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w := NewWorld(testConfig(), NewRoster([]string{"Franziska", "Godot", "Maya", "Phoenix"}), testCatalog())
	if err := w.ApplyTopology(testTopology()); err != nil {
		t.Fatalf("apply topology: %v", err)
	}
	return w
}

var joinCounter int

// join admits one client with a unique remote address.
func join(t *testing.T, w *World) (*Client, *recorder) {
	t.Helper()
	joinCounter++
	return joinAddr(t, w, fmt.Sprintf("10.0.0.%d", joinCounter))
}

func joinAddr(t *testing.T, w *World, addr string) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	c, err := w.Registry().NewClient(rec, addr)
	if err != nil {
		t.Fatalf("admit client: %v", err)
	}
	return c, rec
}

// pickChar moves the session off the spectator slot.
func pickChar(t *testing.T, c *Client, id int) {
	t.Helper()
	if err := c.ChangeCharacter(id, false); err != nil {
		t.Fatalf("change character: %v", err)
	}
}

func mustMove(t *testing.T, c *Client, target *Area) {
	t.Helper()
	if err := c.ChangeArea(target); err != nil {
		t.Fatalf("change area to %s: %v", target.Name(), err)
	}
}
