package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertErrorCodes replaces error codes for one source in a single
// transaction. (source_id, code) conflicts replace message, description,
// and doc_id.
func (s *Store) UpsertErrorCodes(ctx context.Context, sourceID string, codes []ErrorCode) error {
	if len(codes) == 0 {
		return nil
	}

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

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO error_codes (source_id, code, message, description, doc_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source_id, code) DO UPDATE SET
			message = excluded.message,
			description = excluded.description,
			doc_id = excluded.doc_id`)
	if err != nil {
		return fmt.Errorf("failed to prepare error-code statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range codes {
		if _, err := stmt.ExecContext(ctx, sourceID, c.Code,
			nullable(c.Message), nullable(c.Description), nullable(c.DocID)); err != nil {
			return fmt.Errorf("failed to upsert error code %s: %w", c.Code, err)
		}
	}

	return tx.Commit()
}

// FindErrorCode looks up a code exactly. When multiple sources define the
// same code, the first by source id wins. Returns nil when absent.
func (s *Store) FindErrorCode(ctx context.Context, code string) (*ErrorCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT source_id, code, message, description, doc_id
		FROM error_codes WHERE code = ? ORDER BY source_id LIMIT 1`, code)

	var ec ErrorCode
	var message, description, docID sql.NullString
	err := row.Scan(&ec.SourceID, &ec.Code, &message, &description, &docID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up error code: %w", err)
	}

	ec.Message = message.String
	ec.Description = description.String
	ec.DocID = docID.String
	return &ec, nil
}
