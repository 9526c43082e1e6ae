package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SyncCounts carries the final counters of a sync run.
type SyncCounts struct {
	Created   int
	Updated   int
	Unchanged int
	Deleted   int
	Error     string
}

// CreateSyncLog opens a sync_log row with status running and returns its id.
func (s *Store) CreateSyncLog(ctx context.Context, sourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_logs (source_id, status, started_at)
		VALUES (?, ?, ?)`, sourceID, SyncStatusRunning, formatTime(now()))
	if err != nil {
		return 0, fmt.Errorf("failed to create sync log: %w", err)
	}
	return res.LastInsertId()
}

// UpdateSyncLog closes a sync_log row with its final status and counts.
func (s *Store) UpdateSyncLog(ctx context.Context, id int64, status string, counts SyncCounts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_logs SET
			status = ?, finished_at = ?,
			created = ?, updated = ?, unchanged = ?, deleted = ?, error = ?
		WHERE id = ?`,
		status, formatTime(now()),
		counts.Created, counts.Updated, counts.Unchanged, counts.Deleted,
		nullable(counts.Error), id)
	if err != nil {
		return fmt.Errorf("failed to update sync log: %w", err)
	}
	return nil
}

// LastSuccessfulSyncLog returns the most recent success row for a source,
// or nil. The runner uses its counts for the default quality gate.
func (s *Store) LastSuccessfulSyncLog(ctx context.Context, sourceID string) (*SyncLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_id, status, started_at, finished_at,
		       created, updated, unchanged, deleted, error
		FROM sync_logs
		WHERE source_id = ? AND status = ?
		ORDER BY id DESC LIMIT 1`, sourceID, SyncStatusSuccess)

	var log SyncLog
	var startedAt, finishedAt, errMsg sql.NullString
	err := row.Scan(&log.ID, &log.SourceID, &log.Status, &startedAt, &finishedAt,
		&log.Created, &log.Updated, &log.Unchanged, &log.Deleted, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up sync log: %w", err)
	}

	log.StartedAt = parseTime(startedAt)
	log.FinishedAt = parseTime(finishedAt)
	log.Error = errMsg.String
	return &log, nil
}

// LogSearch appends one search_log row. Every query, including zero-result
// ones, is recorded.
func (s *Store) LogSearch(ctx context.Context, query, source string, resultCount int, topScore float64, tookMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	var top sql.NullFloat64
	if resultCount > 0 {
		top = sql.NullFloat64{Float64: topScore, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_logs (query, source, result_count, top_score, took_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		query, nullable(source), resultCount, top, tookMS, formatTime(now()))
	if err != nil {
		return fmt.Errorf("failed to log search: %w", err)
	}
	return nil
}

// SearchLogCount returns the number of search_log rows.
func (s *Store) SearchLogCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count search logs: %w", err)
	}
	return count, nil
}

// TrimSearchLogs keeps only the newest `keep` rows. Offline retention
// helper; never run as a background task.
func (s *Store) TrimSearchLogs(ctx context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM search_logs WHERE id NOT IN
			(SELECT id FROM search_logs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim search logs: %w", err)
	}
	return res.RowsAffected()
}
