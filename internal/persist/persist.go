// Package persist is the durable local-state bridge: a small SQLite file
// holding the credential pair and the allow-listed session and cart
// snapshots, rehydrated on startup before any store is consulted.
package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/erazemk/galerija/internal/model"
)

// rootKey prefixes every persisted entry.
const rootKey = "galerija"

// Persisted entry keys.
const (
	keyAccessToken  = rootKey + "/access_token"
	keyRefreshToken = rootKey + "/refresh_token"
	keySession      = rootKey + "/auth"
	keyCart         = rootKey + "/cart"
)

// State is an open local state file.
type State struct {
	db *sql.DB
}

// Open opens (creating if needed) the state file and ensures its schema.
func Open(path string) (*State, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state file: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS state (
		    key   TEXT PRIMARY KEY,
		    value TEXT NOT NULL
		)`,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state schema: %w", err)
	}

	return &State{db: db}, nil
}

// Close closes the state file.
func (s *State) Close() error {
	return s.db.Close()
}

func (s *State) get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading state key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *State) set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing state key %q: %w", key, err)
	}
	return nil
}

func (s *State) delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting state key %q: %w", key, err)
	}
	return nil
}

// Access returns the stored access credential, or "".
func (s *State) Access() string {
	value, _, err := s.get(keyAccessToken)
	if err != nil {
		slog.Error("reading access credential", "error", err)
	}
	return value
}

// Refresh returns the stored refresh credential, or "".
func (s *State) Refresh() string {
	value, _, err := s.get(keyRefreshToken)
	if err != nil {
		slog.Error("reading refresh credential", "error", err)
	}
	return value
}

// SetAccess overwrites the stored access credential.
func (s *State) SetAccess(access string) error {
	return s.set(keyAccessToken, access)
}

// SetPair stores both credentials.
func (s *State) SetPair(access, refresh string) error {
	if err := s.set(keyAccessToken, access); err != nil {
		return err
	}
	return s.set(keyRefreshToken, refresh)
}

// Clear removes both credentials.
func (s *State) Clear() error {
	if err := s.delete(keyAccessToken); err != nil {
		return err
	}
	return s.delete(keyRefreshToken)
}

// SaveSession persists the session snapshot for rehydration.
func (s *State) SaveSession(user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding session snapshot: %w", err)
	}
	return s.set(keySession, string(data))
}

// LoadSession returns the persisted session snapshot, or nil if none.
func (s *State) LoadSession() (*model.User, error) {
	value, ok, err := s.get(keySession)
	if err != nil || !ok {
		return nil, err
	}
	var user model.User
	if err := json.Unmarshal([]byte(value), &user); err != nil {
		return nil, fmt.Errorf("decoding session snapshot: %w", err)
	}
	return &user, nil
}

// ClearSession removes the persisted session snapshot.
func (s *State) ClearSession() error {
	return s.delete(keySession)
}

// SaveCart persists the cart snapshot for rehydration.
func (s *State) SaveCart(cart *model.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encoding cart snapshot: %w", err)
	}
	return s.set(keyCart, string(data))
}

// LoadCart returns the persisted cart snapshot, or nil if none.
func (s *State) LoadCart() (*model.Cart, error) {
	value, ok, err := s.get(keyCart)
	if err != nil || !ok {
		return nil, err
	}
	var cart model.Cart
	if err := json.Unmarshal([]byte(value), &cart); err != nil {
		return nil, fmt.Errorf("decoding cart snapshot: %w", err)
	}
	return &cart, nil
}

// ClearCart removes the persisted cart snapshot.
func (s *State) ClearCart() error {
	return s.delete(keyCart)
}
