package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// SessionRow is the cached session for one gateway.
type SessionRow struct {
	Gateway   string
	SID       string
	UpdatedAt string
}

// UpsertSession stores sid for gateway, replacing any previous value.
func UpsertSession(d *DB, gateway, sid string) error {
	if d == nil || d.sql == nil {
		return fmt.Errorf("database handle is nil")
	}

	_, err := d.sql.Exec(
		`INSERT INTO sessions (gateway, sid) VALUES (?, ?)
		 ON CONFLICT(gateway) DO UPDATE SET sid = excluded.sid, updated_at = CURRENT_TIMESTAMP`,
		gateway, sid,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// GetSession returns the cached session for gateway, or sql.ErrNoRows.
func GetSession(d *DB, gateway string) (*SessionRow, error) {
	if d == nil || d.sql == nil {
		return nil, fmt.Errorf("database handle is nil")
	}

	var r SessionRow
	err := d.sql.QueryRow(
		`SELECT gateway, sid, updated_at FROM sessions WHERE gateway = ?`,
		gateway,
	).Scan(&r.Gateway, &r.SID, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return &r, nil
}

// DeleteSession removes the cached session for gateway. Deleting a missing row is not an error.
func DeleteSession(d *DB, gateway string) error {
	if d == nil || d.sql == nil {
		return fmt.Errorf("database handle is nil")
	}

	if _, err := d.sql.Exec(`DELETE FROM sessions WHERE gateway = ?`, gateway); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
