package commands

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	server "courtmux/server"
)

type fakeTransport struct {
	mu     sync.Mutex
	frames [][]string
}

func (f *fakeTransport) Send(name string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, append([]string{name}, args...))
}

func (f *fakeTransport) Close() {}

func (f *fakeTransport) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, fr := range f.frames {
		if fr[0] == name {
			n++
		}
	}
	return n
}

func (f *fakeTransport) oocContains(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fr := range f.frames {
		if fr[0] == server.CmdOOC && len(fr) >= 3 && strings.Contains(fr[2], substr) {
			return true
		}
	}
	return false
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *server.World) {
	t.Helper()
	cfg := server.Config{
		Hostname:         "test",
		MOTD:             "welcome",
		PlayerLimit:      10,
		MulticlientLimit: 5,
		MusicFloodguard:  server.FloodguardConfig{TimesPerInterval: 100, IntervalLength: time.Second, MuteLength: time.Second},
		WTCEFloodguard:   server.FloodguardConfig{TimesPerInterval: 100, IntervalLength: time.Second, MuteLength: time.Second},
		ModPasswords:     map[string]string{"admin": "hunter2"},
	}
	roster := server.NewRoster([]string{"Phoenix", "Edgeworth"})
	music := server.MusicList{{Category: "Courtroom", Songs: []server.Song{{Name: "trial.mp3", Length: -1}}}}
	w := server.NewWorld(cfg, roster, music)
	topo := server.Topology{{Hub: "Main", Areas: []server.AreaDef{{Area: "Lobby"}, {Area: "Court"}}}}
	if err := w.ApplyTopology(topo); err != nil {
		t.Fatalf("apply topology: %v", err)
	}
	return New(w, nil, nil, ""), w
}

var addrCounter int

func admit(t *testing.T, w *server.World) (*server.Client, *fakeTransport) {
	t.Helper()
	addrCounter++
	ft := &fakeTransport{}
	c, err := w.Registry().NewClient(ft, fmt.Sprintf("192.0.2.%d", addrCounter))
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	return c, ft
}

func TestWelcomeHandshake(t *testing.T) {
	d, w := newTestDispatcher(t)
	c, ft := admit(t, w)
	d.Welcome(c)

	ft.mu.Lock()
	first := ft.frames[0]
	ft.mu.Unlock()
	if first[0] != "ID" || first[2] != "courtmux" {
		t.Fatalf("handshake should open with the ID frame, got %v", first)
	}
	if ft.count(server.CmdPlayerCount) != 1 {
		t.Fatalf("handshake should report the player count")
	}
}

func TestUnknownCommand(t *testing.T) {
	d, w := newTestDispatcher(t)
	c, ft := admit(t, w)
	d.HandleFrame(c, "CT", []string{"Bob", "/bogus"})
	if !ft.oocContains("Unknown command /bogus") {
		t.Fatalf("unknown commands should be reported")
	}
}

func TestModOnlyGate(t *testing.T) {
	d, w := newTestDispatcher(t)
	c, ft := admit(t, w)
	d.HandleFrame(c, "CT", []string{"Bob", "/save_areas /tmp/out.yaml"})
	if !ft.oocContains("logged in as a moderator") {
		t.Fatalf("moderator commands should be gated")
	}
}

func TestPlainChatRequiresName(t *testing.T) {
	d, w := newTestDispatcher(t)
	c, ft := admit(t, w)
	d.HandleFrame(c, "CT", []string{"", "hello"})
	if !ft.oocContains("set a name") {
		t.Fatalf("unnamed chat should be rejected")
	}
}

func TestPlainChatBroadcasts(t *testing.T) {
	d, w := newTestDispatcher(t)
	speaker, _ := admit(t, w)
	_, prec := admit(t, w)

	d.HandleFrame(speaker, "CT", []string{"Bob", "hi all"})
	prec.mu.Lock()
	var relayed bool
	for _, fr := range prec.frames {
		if fr[0] == server.CmdOOC && len(fr) >= 3 && fr[1] == "Bob" && fr[2] == "hi all" {
			relayed = true
		}
	}
	prec.mu.Unlock()
	if !relayed {
		t.Fatalf("plain chat should fan out under the speaker's name")
	}
}

func TestRoll(t *testing.T) {
	d, w := newTestDispatcher(t)
	c, ft := admit(t, w)

	d.HandleFrame(c, "CT", []string{"Bob", "/roll 50d2"})
	if !ft.oocContains("Roll between") {
		t.Fatalf("out-of-range rolls should be rejected")
	}
	d.HandleFrame(c, "CT", []string{"Bob", "/roll 2d6"})
	if !ft.oocContains("rolled 2d6") {
		t.Fatalf("valid roll should broadcast its result")
	}
}

func TestLogin(t *testing.T) {
	d, w := newTestDispatcher(t)
	c, ft := admit(t, w)

	d.HandleFrame(c, "CT", []string{"Bob", "/login wrong"})
	if c.IsMod() {
		t.Fatalf("bad password must not grant mod")
	}
	if !ft.oocContains("Invalid password") {
		t.Fatalf("failed login should be reported")
	}

	d.HandleFrame(c, "CT", []string{"Bob", "/login hunter2"})
	if !c.IsMod() {
		t.Fatalf("correct password should grant mod")
	}
	if !ft.oocContains("Logged in as a moderator (admin)") {
		t.Fatalf("successful login should name the profile")
	}
}

func TestMCRoutesAreasBeforeMusic(t *testing.T) {
	d, w := newTestDispatcher(t)
	c, ft := admit(t, w)

	d.HandleFrame(c, "CC", []string{"0", "0"})
	if c.CharID() != 0 {
		t.Fatalf("CC should pick the slot, got %d", c.CharID())
	}

	d.HandleFrame(c, "MC", []string{"Court"})
	if c.Area().Name() != "Court" {
		t.Fatalf("an area name on MC is a transition, got %q", c.Area().Name())
	}

	d.HandleFrame(c, "MC", []string{"trial.mp3", "0", "", "0"})
	if ft.count(server.CmdPlayMusic) != 1 {
		t.Fatalf("a song name on MC should start playback")
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in  string
		cmd string
		arg string
	}{
		{"/roll 2d6", "roll", "2d6"},
		{"/ROLL", "roll", ""},
		{"/pm 3 hello there", "pm", "3 hello there"},
		{"help", "help", ""},
	}
	for _, tc := range cases {
		cmd, arg := splitCommand(tc.in)
		if cmd != tc.cmd || arg != tc.arg {
			t.Errorf("splitCommand(%q) = %q %q, want %q %q", tc.in, cmd, arg, tc.cmd, tc.arg)
		}
	}
}
