package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertSource creates or renames a source.
func (s *Store) UpsertSource(ctx context.Context, id, name, baseURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertSourceTx(ctx, tx, id, name, baseURL); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertSourceTx(ctx context.Context, tx *sql.Tx, id, name, baseURL string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sources (id, name, base_url)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			base_url = COALESCE(excluded.base_url, sources.base_url)`,
		id, name, nullable(baseURL))
	if err != nil {
		return fmt.Errorf("failed to upsert source %s: %w", id, err)
	}
	return nil
}

// SetSourceConfig stores the opaque JSON config blob for a source.
// Used to persist dynamically registered OpenAPI sources.
func (s *Store) SetSourceConfig(ctx context.Context, id, config string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET config = ? WHERE id = ?`, nullable(config), id)
	if err != nil {
		return fmt.Errorf("failed to set source config: %w", err)
	}
	return nil
}

// GetSource returns one source, or nil when absent.
func (s *Store) GetSource(ctx context.Context, id string) (*Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, base_url, doc_count, last_synced, config
		FROM sources WHERE id = ?`, id)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return src, err
}

// Sources lists all sources ordered by id.
func (s *Store) Sources(ctx context.Context) ([]*Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, base_url, doc_count, last_synced, config
		FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var out []*Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// UpdateSourceSyncTime stamps last_synced with the current time.
func (s *Store) UpdateSourceSyncTime(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_synced = ? WHERE id = ?`, formatTime(now()), id)
	if err != nil {
		return fmt.Errorf("failed to update sync time: %w", err)
	}
	return nil
}

// refreshDocCountTx recomputes the cached doc_count for a source.
func refreshDocCountTx(ctx context.Context, tx *sql.Tx, sourceID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE sources SET doc_count =
			(SELECT COUNT(*) FROM documents WHERE source_id = ?)
		WHERE id = ?`, sourceID, sourceID)
	if err != nil {
		return fmt.Errorf("failed to refresh doc count: %w", err)
	}
	return nil
}

func scanSource(row rowScanner) (*Source, error) {
	var src Source
	var baseURL, lastSynced, config sql.NullString
	if err := row.Scan(&src.ID, &src.Name, &baseURL, &src.DocCount, &lastSynced, &config); err != nil {
		return nil, err
	}
	src.BaseURL = baseURL.String
	src.LastSynced = parseTime(lastSynced)
	src.Config = config.String
	return &src, nil
}
