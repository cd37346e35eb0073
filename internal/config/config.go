// Package config loads the on-disk server configuration and projects it
// into the shapes the rest of the process consumes. Environment variables
// override the file for the values an operator is most likely to flip per
// deployment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	server "courtmux/server"
	"courtmux/server/logging"
)

// Logging is the sink section of the config file.
type Logging struct {
	Sinks    []string `yaml:"sinks"`
	Severity string   `yaml:"severity"`
	JSONPath string   `yaml:"json_path" env:"COURTMUX_LOG_JSON"`
	Color    bool     `yaml:"color"`
}

// File is the full on-disk configuration.
type File struct {
	ListenAddr       string `yaml:"listen_addr" env:"COURTMUX_LISTEN_ADDR"`
	Hostname         string `yaml:"hostname" env:"COURTMUX_HOSTNAME"`
	MOTD             string `yaml:"motd"`
	PlayerLimit      int    `yaml:"player_limit" env:"COURTMUX_PLAYER_LIMIT"`
	MulticlientLimit int    `yaml:"multiclient_limit"`

	CharactersPath string `yaml:"characters"`
	MusicPath      string `yaml:"music"`
	MusicDir       string `yaml:"music_dir"`
	TopologyPath   string `yaml:"topology" env:"COURTMUX_TOPOLOGY"`
	DatabasePath   string `yaml:"database" env:"COURTMUX_DB"`

	ModPasswords map[string]string `yaml:"mod_passwords"`

	MusicFloodguard server.FloodguardConfig `yaml:"music_floodguard"`
	WTCEFloodguard  server.FloodguardConfig `yaml:"wtce_floodguard"`

	Logging Logging `yaml:"logging"`
}

// Default returns the configuration used when the file omits a value.
func Default() File {
	return File{
		ListenAddr:       ":27016",
		Hostname:         "courtmux",
		MOTD:             "Welcome.",
		PlayerLimit:      100,
		MulticlientLimit: 16,
		CharactersPath:   "config/characters.yaml",
		MusicPath:        "config/music.yaml",
		MusicDir:         "config/music",
		TopologyPath:     "config/areas.yaml",
		DatabasePath:     "storage/courtmux.db",
		MusicFloodguard: server.FloodguardConfig{
			TimesPerInterval: 1,
			IntervalLength:   10 * time.Second,
			MuteLength:       3 * time.Minute,
		},
		WTCEFloodguard: server.FloodguardConfig{
			TimesPerInterval: 1,
			IntervalLength:   5 * time.Second,
			MuteLength:       2 * time.Minute,
		},
		Logging: Logging{
			Sinks:    []string{"console"},
			Severity: "info",
		},
	}
}

// Load reads the file at path, applies environment overrides and
// validates the result. A missing file is not an error; the defaults and
// environment alone must be enough to boot a dev server.
func Load(path string) (File, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if uerr := yaml.Unmarshal(raw, &cfg); uerr != nil {
			return File{}, fmt.Errorf("config %s: %w", path, uerr)
		}
	case os.IsNotExist(err):
	default:
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := env.Parse(&cfg); err != nil {
		return File{}, fmt.Errorf("config env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

func (f File) validate() error {
	if f.PlayerLimit < 1 {
		return fmt.Errorf("config: player_limit must be at least 1")
	}
	if f.MulticlientLimit < 1 {
		return fmt.Errorf("config: multiclient_limit must be at least 1")
	}
	if f.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr must be set")
	}
	switch strings.ToLower(f.Logging.Severity) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown logging severity %q", f.Logging.Severity)
	}
	return nil
}

// ServerConfig projects the subset of the file the world graph consumes.
func (f File) ServerConfig() server.Config {
	return server.Config{
		Hostname:         f.Hostname,
		MOTD:             f.MOTD,
		PlayerLimit:      f.PlayerLimit,
		MulticlientLimit: f.MulticlientLimit,
		MusicFloodguard:  f.MusicFloodguard,
		WTCEFloodguard:   f.WTCEFloodguard,
		ModPasswords:     f.ModPasswords,
	}
}

// LoggingConfig projects the sink section into the event router's shape.
func (f File) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if len(f.Logging.Sinks) > 0 {
		cfg.EnabledSinks = append([]string(nil), f.Logging.Sinks...)
	}
	cfg.MinimumSeverity = parseSeverity(f.Logging.Severity)
	cfg.JSON.FilePath = f.Logging.JSONPath
	cfg.Console.UseColor = f.Logging.Color
	return cfg
}

func parseSeverity(s string) logging.Severity {
	switch strings.ToLower(s) {
	case "debug":
		return logging.SeverityDebug
	case "warn":
		return logging.SeverityWarn
	case "error":
		return logging.SeverityError
	default:
		return logging.SeverityInfo
	}
}

// LoadRoster reads the character list. The file is a YAML sequence of
// character names; order defines the wire ids.
func (f File) LoadRoster() (*server.Roster, error) {
	raw, err := os.ReadFile(f.CharactersPath)
	if err != nil {
		return nil, fmt.Errorf("characters %s: %w", f.CharactersPath, err)
	}
	var names []string
	if err := yaml.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("characters %s: %w", f.CharactersPath, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("characters %s: empty roster", f.CharactersPath)
	}
	return server.NewRoster(names), nil
}

// LoadMusic reads the server-wide music catalog.
func (f File) LoadMusic() (server.MusicList, error) {
	return server.LoadMusicList(f.MusicPath)
}

// LoadTopology reads and validates the hub layout.
func (f File) LoadTopology() (server.Topology, error) {
	return server.LoadTopology(f.TopologyPath)
}
