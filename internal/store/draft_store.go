package store

import (
	"context"
	"database/sql"
	"fmt"
)

// DraftStore persists one in-progress order draft per site as an opaque JSON
// snapshot. Drafts live only until their order is submitted successfully.
type DraftStore struct {
	db *sql.DB
}

func NewDraftStore(db *sql.DB) *DraftStore {
	return &DraftStore{db: db}
}

// Put stores or replaces the draft snapshot for a site.
func (s *DraftStore) Put(ctx context.Context, siteID string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (site_id, payload, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(site_id) DO UPDATE SET payload = excluded.payload,
			updated_at = excluded.updated_at
	`, siteID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

// Get returns the draft snapshot for a site, or nil when there is none.
func (s *DraftStore) Get(ctx context.Context, siteID string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM drafts WHERE site_id = ?
	`, siteID).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	return []byte(payload), nil
}

// Delete removes the draft for a site. Deleting an absent draft is not an
// error.
func (s *DraftStore) Delete(ctx context.Context, siteID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE site_id = ?`, siteID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
