package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"courtmux/server/logging"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("a missing file should not be fatal: %v", err)
	}
	if cfg.ListenAddr != ":27016" {
		t.Fatalf("default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.PlayerLimit != 100 || cfg.MulticlientLimit != 16 {
		t.Fatalf("default limits, got %d/%d", cfg.PlayerLimit, cfg.MulticlientLimit)
	}
	if len(cfg.Logging.Sinks) != 1 || cfg.Logging.Sinks[0] != "console" {
		t.Fatalf("default sinks, got %v", cfg.Logging.Sinks)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
listen_addr: ":9000"
hostname: courthouse
player_limit: 25
mod_passwords:
  admin: hunter2
music_floodguard:
  times_per_interval: 3
  interval_length: 20s
  mute_length: 1m
logging:
  sinks: [console, json]
  severity: debug
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9000" || cfg.Hostname != "courthouse" || cfg.PlayerLimit != 25 {
		t.Fatalf("file values should win: %+v", cfg)
	}
	if cfg.MulticlientLimit != 16 {
		t.Fatalf("omitted values keep their defaults, got %d", cfg.MulticlientLimit)
	}
	if cfg.ModPasswords["admin"] != "hunter2" {
		t.Fatalf("mod passwords should load, got %v", cfg.ModPasswords)
	}
	if cfg.MusicFloodguard.TimesPerInterval != 3 || cfg.MusicFloodguard.IntervalLength != 20*time.Second {
		t.Fatalf("floodguard should load, got %+v", cfg.MusicFloodguard)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: \":9000\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("COURTMUX_LISTEN_ADDR", ":7777")
	t.Setenv("COURTMUX_PLAYER_LIMIT", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":7777" {
		t.Fatalf("env should beat the file, got %q", cfg.ListenAddr)
	}
	if cfg.PlayerLimit != 3 {
		t.Fatalf("env should beat the default, got %d", cfg.PlayerLimit)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad severity":   "logging:\n  severity: loud\n",
		"zero players":   "player_limit: 0\n",
		"no listen addr": "listen_addr: \"\"\n",
	}
	for name, raw := range cases {
		path := filepath.Join(dir, "c.yaml")
		if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: should be rejected", name)
		}
	}
}

func TestProjections(t *testing.T) {
	cfg := Default()
	cfg.Hostname = "courthouse"
	cfg.Logging.Severity = "warn"
	cfg.Logging.JSONPath = "/tmp/log.json"

	sc := cfg.ServerConfig()
	if sc.Hostname != "courthouse" || sc.PlayerLimit != cfg.PlayerLimit {
		t.Fatalf("server projection mismatch: %+v", sc)
	}
	if sc.MusicFloodguard != cfg.MusicFloodguard {
		t.Fatalf("floodguard should carry over")
	}

	lc := cfg.LoggingConfig()
	if lc.MinimumSeverity != logging.SeverityWarn {
		t.Fatalf("severity projection, got %v", lc.MinimumSeverity)
	}
	if lc.JSON.FilePath != "/tmp/log.json" {
		t.Fatalf("json path projection, got %q", lc.JSON.FilePath)
	}
}

func TestLoadRoster(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "characters.yaml")
	if err := os.WriteFile(path, []byte("- Phoenix\n- Edgeworth\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Default()
	cfg.CharactersPath = path
	roster, err := cfg.LoadRoster()
	if err != nil {
		t.Fatalf("load roster: %v", err)
	}
	if roster.Len() != 2 || roster.Name(1) != "Edgeworth" {
		t.Fatalf("unexpected roster: %d %q", roster.Len(), roster.Name(1))
	}

	cfg.CharactersPath = filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(cfg.CharactersPath, []byte("[]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := cfg.LoadRoster(); err == nil {
		t.Fatalf("an empty roster should be rejected")
	}
}
