package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SessionRecord is a persisted credential for one auth context. IssuedAt is
// stored as unix milliseconds.
type SessionRecord struct {
	Namespace string
	Token     string
	ScopeID   string
	IssuedAt  time.Time
}

// SessionStore persists one session per namespace ("site", "admin") in the
// local state database.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Put stores or replaces the session for its namespace.
func (s *SessionStore) Put(ctx context.Context, rec *SessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (namespace, token, scope_id, issued_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET token = excluded.token,
			scope_id = excluded.scope_id, issued_at = excluded.issued_at
	`, rec.Namespace, rec.Token, rec.ScopeID, rec.IssuedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get returns the stored session for a namespace, or nil when there is none.
func (s *SessionStore) Get(ctx context.Context, namespace string) (*SessionRecord, error) {
	rec := &SessionRecord{Namespace: namespace}
	var issuedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT token, scope_id, issued_at FROM sessions WHERE namespace = ?
	`, namespace).Scan(&rec.Token, &rec.ScopeID, &issuedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	rec.IssuedAt = time.UnixMilli(issuedAt)
	return rec, nil
}

// Delete removes the session for a namespace. Deleting an absent session is
// not an error.
func (s *SessionStore) Delete(ctx context.Context, namespace string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
