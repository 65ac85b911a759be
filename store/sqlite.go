package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	dbpkg "github.com/Hussein-Mazeh/fritzer/internal/db"
)

// SQLiteStore caches one session id per gateway in a SQLite database,
// so a single file serves several boxes.
type SQLiteStore struct {
	db      *dbpkg.DB
	gateway string
}

// DefaultSQLitePath resolves ~/.config/fritzer/sessions.db.
func DefaultSQLitePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, "fritzer", "sessions.db"), nil
}

// OpenSQLiteStore opens (and migrates) the database at path for gateway.
func OpenSQLiteStore(path, gateway string) (*SQLiteStore, error) {
	if gateway == "" {
		return nil, errors.New("gateway is required")
	}
	if path == "" {
		p, err := DefaultSQLitePath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	d, err := dbpkg.Open(path)
	if err != nil {
		return nil, err
	}
	if err := dbpkg.Migrate(d); err != nil {
		dbpkg.Close(d)
		return nil, err
	}
	return &SQLiteStore{db: d, gateway: gateway}, nil
}

// Load returns the cached session id for the gateway.
func (s *SQLiteStore) Load(_ context.Context) (string, error) {
	row, err := dbpkg.GetSession(s.db, s.gateway)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return row.SID, nil
}

// Save replaces the cached session id for the gateway.
func (s *SQLiteStore) Save(_ context.Context, sid string) error {
	return dbpkg.UpsertSession(s.db, s.gateway, sid)
}

// Clear drops the cached session id for the gateway.
func (s *SQLiteStore) Clear(_ context.Context) error {
	return dbpkg.DeleteSession(s.db, s.gateway)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return dbpkg.Close(s.db)
}
