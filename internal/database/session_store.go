package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

const sessionSchema = `
	CREATE TABLE IF NOT EXISTS session_values (
		session_id VARCHAR(64)  NOT NULL,
		k          VARCHAR(64)  NOT NULL,
		v          TEXT         NOT NULL,
		updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, k)
	)`

// SessionStore keeps per-session values in MySQL so sign-ins survive a
// restart. It satisfies auth.Store.
type SessionStore struct {
	DB *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{DB: db}
}

// EnsureSchema creates the session_values table if it does not exist.
func (s *SessionStore) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, sessionSchema)
	return err
}

func (s *SessionStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	var v string
	err := s.DB.QueryRowContext(ctx,
		"SELECT v FROM session_values WHERE session_id = ? AND k = ?",
		sessionID, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SessionStore) Set(ctx context.Context, sessionID, key, value string) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO session_values (session_id, k, v) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
		sessionID, key, value,
	)
	return err
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	args := make([]interface{}, 0, len(keys)+1)
	args = append(args, sessionID)
	for _, k := range keys {
		args = append(args, k)
	}

	_, err := s.DB.ExecContext(ctx,
		"DELETE FROM session_values WHERE session_id = ? AND k IN ("+placeholders+")",
		args...,
	)
	return err
}
