// Package store is the SQLite persistence layer: durable room logs,
// per-hub character data and friendships.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	server "courtmux/server"
)

const schema = `
CREATE TABLE IF NOT EXISTS room_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	at          INTEGER NOT NULL,
	kind        TEXT    NOT NULL,
	actor_id    INTEGER NOT NULL,
	actor_ipid  TEXT    NOT NULL,
	hub         TEXT    NOT NULL,
	area        TEXT    NOT NULL,
	target_id   INTEGER NOT NULL,
	message     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS room_events_at   ON room_events (at);
CREATE INDEX IF NOT EXISTS room_events_ipid ON room_events (actor_ipid);

CREATE TABLE IF NOT EXISTS character_data (
	hub_id  INTEGER NOT NULL,
	char_id INTEGER NOT NULL,
	data    TEXT    NOT NULL,
	PRIMARY KEY (hub_id, char_id)
);

CREATE TABLE IF NOT EXISTS friends (
	ipid_a TEXT NOT NULL,
	ipid_b TEXT NOT NULL,
	since  INTEGER NOT NULL,
	PRIMARY KEY (ipid_a, ipid_b)
);
`

// Store wraps one SQLite database. Safe for concurrent use; database/sql
// serializes access to the single writer connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// LogRoomEvent appends one durable room-log record. Write failures are
// swallowed; the room log must never take a live session down.
func (s *Store) LogRoomEvent(ev server.RoomEvent) {
	_, _ = s.db.Exec(
		`INSERT INTO room_events (at, kind, actor_id, actor_ipid, hub, area, target_id, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(), ev.Kind, ev.ActorID, ev.ActorIP, ev.Hub, ev.Area, ev.TargetID, ev.Message,
	)
}

// LoadCharacterData reads the override table for one hub.
func (s *Store) LoadCharacterData(hubID int) (map[int]*server.CharacterData, error) {
	rows, err := s.db.Query(`SELECT char_id, data FROM character_data WHERE hub_id = ?`, hubID)
	if err != nil {
		return nil, fmt.Errorf("store: load character data: %w", err)
	}
	defer rows.Close()

	out := make(map[int]*server.CharacterData)
	for rows.Next() {
		var charID int
		var raw string
		if err := rows.Scan(&charID, &raw); err != nil {
			return nil, fmt.Errorf("store: scan character data: %w", err)
		}
		var d server.CharacterData
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("store: character data for slot %d is malformed: %w", charID, err)
		}
		out[charID] = &d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: load character data: %w", err)
	}
	return out, nil
}

// SaveCharacterData replaces the override table for one hub.
func (s *Store) SaveCharacterData(hubID int, data map[int]*server.CharacterData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: save character data: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM character_data WHERE hub_id = ?`, hubID); err != nil {
		return fmt.Errorf("store: save character data: %w", err)
	}
	for charID, d := range data {
		raw, merr := json.Marshal(d)
		if merr != nil {
			return fmt.Errorf("store: save character data: %w", merr)
		}
		if _, err := tx.Exec(
			`INSERT INTO character_data (hub_id, char_id, data) VALUES (?, ?, ?)`,
			hubID, charID, string(raw),
		); err != nil {
			return fmt.Errorf("store: save character data: %w", err)
		}
	}
	return tx.Commit()
}

// friendPair orders the two ipids so each friendship is one row.
func friendPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// LoadFriends lists every ipid the given ipid has an accepted friendship
// with.
func (s *Store) LoadFriends(ipid string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT ipid_a, ipid_b FROM friends WHERE ipid_a = ? OR ipid_b = ?`, ipid, ipid)
	if err != nil {
		return nil, fmt.Errorf("store: load friends: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("store: scan friends: %w", err)
		}
		if a == ipid {
			out = append(out, b)
		} else {
			out = append(out, a)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: load friends: %w", err)
	}
	return out, nil
}

// AddFriend records an accepted friendship. Idempotent.
func (s *Store) AddFriend(a, b string) error {
	a, b = friendPair(a, b)
	if _, err := s.db.Exec(
		`INSERT INTO friends (ipid_a, ipid_b, since) VALUES (?, ?, ?)
		 ON CONFLICT (ipid_a, ipid_b) DO NOTHING`,
		a, b, time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("store: add friend: %w", err)
	}
	return nil
}

// RemoveFriend dissolves a friendship. Removing an absent pair is a no-op.
func (s *Store) RemoveFriend(a, b string) error {
	a, b = friendPair(a, b)
	if _, err := s.db.Exec(
		`DELETE FROM friends WHERE ipid_a = ? AND ipid_b = ?`, a, b,
	); err != nil {
		return fmt.Errorf("store: remove friend: %w", err)
	}
	return nil
}

var (
	_ server.RoomLogger     = (*Store)(nil)
	_ server.CharacterStore = (*Store)(nil)
	_ server.FriendStore    = (*Store)(nil)
)
