package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sferrors "github.com/specfusion/specfusion/internal/errors"
	"github.com/specfusion/specfusion/internal/tokenizer"
)

// docColumns is the canonical column list for scanning documents.
const docColumns = `id, source_id, path, path_depth, title, api_path, dev_mode,
	doc_type, content, content_hash, prev_content_hash, source_url, metadata,
	tokenized_title, tokenized_content, last_updated, synced_at`

// BulkResult reports the outcome of a bulk upsert.
type BulkResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// UpsertDocument inserts or updates one document.
// The id and content hash are computed here; if the stored hash matches the
// new one the row is left untouched and ActionUnchanged is returned.
func (s *Store) UpsertDocument(ctx context.Context, input UpsertInput) (string, UpsertAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", "", fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertSourceTx(ctx, tx, input.SourceID, input.SourceID, ""); err != nil {
		return "", "", err
	}

	id, action, err := upsertDocumentTx(ctx, tx, input)
	if err != nil {
		return "", "", err
	}

	if err := refreshDocCountTx(ctx, tx, input.SourceID); err != nil {
		return "", "", err
	}

	return id, action, tx.Commit()
}

// BulkUpsert applies the per-document upsert logic for a whole batch in one
// transaction, then recomputes the cached doc_count for the source.
// On any error the batch rolls back atomically.
func (s *Store) BulkUpsert(ctx context.Context, sourceID, sourceName string, inputs []UpsertInput) (BulkResult, error) {
	var result BulkResult

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return result, fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if sourceName == "" {
		sourceName = sourceID
	}
	if err := upsertSourceTx(ctx, tx, sourceID, sourceName, ""); err != nil {
		return result, err
	}

	for i, input := range inputs {
		if input.SourceID == "" {
			input.SourceID = sourceID
		}
		if input.SourceID != sourceID {
			return BulkResult{}, sferrors.New(sferrors.ErrCodeBadBatch,
				fmt.Sprintf("document %d belongs to source %q, batch is for %q", i, input.SourceID, sourceID), nil)
		}

		_, action, err := upsertDocumentTx(ctx, tx, input)
		if err != nil {
			return BulkResult{}, err
		}
		switch action {
		case ActionCreated:
			result.Created++
		case ActionUpdated:
			result.Updated++
		case ActionUnchanged:
			result.Unchanged++
		}
	}

	if err := refreshDocCountTx(ctx, tx, sourceID); err != nil {
		return BulkResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return BulkResult{}, fmt.Errorf("failed to commit batch: %w", err)
	}
	return result, nil
}

// upsertDocumentTx holds the single-document upsert logic shared by
// UpsertDocument and BulkUpsert.
func upsertDocumentTx(ctx context.Context, tx *sql.Tx, input UpsertInput) (string, UpsertAction, error) {
	if err := validateInput(input); err != nil {
		return "", "", err
	}

	if input.DocType == "" {
		input.DocType = DocTypeAPIReference
	}
	// dev_mode is a Wecom-only axis; drop it silently for other sources.
	if input.SourceID != SourceWecom {
		input.DevMode = ""
	}

	id := DocID(input.SourceID, input.Path)
	hash := HashContent(input.Content)

	var existingHash string
	err := tx.QueryRowContext(ctx,
		`SELECT content_hash FROM documents WHERE id = ?`, id).Scan(&existingHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Insert below.
	case err != nil:
		return "", "", fmt.Errorf("failed to check existing document: %w", err)
	case existingHash == hash:
		return id, ActionUnchanged, nil
	}

	tokTitle := tokenizer.Join(tokenizer.Tokenize(input.Title))
	tokContent := tokenizer.Join(tokenizer.Tokenize(input.Content))
	syncedAt := now()

	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (id, source_id, path, path_depth, title, api_path,
				dev_mode, doc_type, content, content_hash, prev_content_hash,
				source_url, metadata, tokenized_title, tokenized_content,
				last_updated, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?)`,
			id, input.SourceID, input.Path, PathDepth(input.Path), input.Title,
			nullable(input.APIPath), nullable(input.DevMode), string(input.DocType),
			input.Content, hash, nullable(input.SourceURL), nullable(input.Metadata),
			tokTitle, tokContent, formatTime(input.LastUpdated), formatTime(syncedAt))
		if err != nil {
			return "", "", fmt.Errorf("failed to insert document %s: %w", id, err)
		}
		return id, ActionCreated, nil
	}

	// Content changed: update all fields and roll the prior hash forward.
	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET
			path = ?, path_depth = ?, title = ?, api_path = ?, dev_mode = ?,
			doc_type = ?, content = ?, content_hash = ?, prev_content_hash = ?,
			source_url = ?, metadata = ?, tokenized_title = ?,
			tokenized_content = ?, last_updated = ?, synced_at = ?
		WHERE id = ?`,
		input.Path, PathDepth(input.Path), input.Title, nullable(input.APIPath),
		nullable(input.DevMode), string(input.DocType), input.Content, hash,
		existingHash, nullable(input.SourceURL), nullable(input.Metadata),
		tokTitle, tokContent, formatTime(input.LastUpdated), formatTime(syncedAt), id)
	if err != nil {
		return "", "", fmt.Errorf("failed to update document %s: %w", id, err)
	}
	return id, ActionUpdated, nil
}

func validateInput(input UpsertInput) error {
	switch {
	case input.SourceID == "":
		return sferrors.New(sferrors.ErrCodeBadBatch, "document missing source id", nil)
	case input.Path == "":
		return sferrors.New(sferrors.ErrCodeBadBatch, "document missing path", nil)
	case input.Title == "":
		return sferrors.New(sferrors.ErrCodeBadBatch, "document missing title", nil)
	case input.Content == "":
		return sferrors.New(sferrors.ErrCodeBadBatch, "document missing content", nil)
	}
	if input.DocType != "" && !ValidDocType(input.DocType) {
		return sferrors.New(sferrors.ErrCodeInvalidDocType,
			fmt.Sprintf("unknown doc_type %q", input.DocType), nil)
	}
	return nil
}

// GetDocument returns the document with the given id, or nil when absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+docColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

// DeleteDocument removes a document. The FTS trigger removes the matching
// index row. Returns whether a row was deleted.
func (s *Store) DeleteDocument(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, fmt.Errorf("store is closed")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DocumentsBySource returns all documents for one source, ordered by path.
func (s *Store) DocumentsBySource(ctx context.Context, sourceID string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+docColumns+` FROM documents WHERE source_id = ? ORDER BY path`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// RecentDocuments returns documents whose last_updated falls within the
// last `days` days, newest first.
func (s *Store) RecentDocuments(ctx context.Context, sourceID string, days, limit int) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := formatTime(now().AddDate(0, 0, -days))
	query := `SELECT ` + docColumns + ` FROM documents WHERE last_updated >= ?`
	args := []any{cutoff}
	if sourceID != "" {
		query += ` AND source_id = ?`
		args = append(args, sourceID)
	}
	query += ` ORDER BY last_updated DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// CategoryCount is one first-path-segment bucket within a source.
type CategoryCount struct {
	SourceID string
	Category string
	Count    int
}

// Categories groups documents by source and first path segment.
func (s *Store) Categories(ctx context.Context, sourceID string) ([]CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT source_id,
		       CASE WHEN instr(path, '/') > 0
		            THEN substr(path, 1, instr(path, '/') - 1)
		            ELSE path END AS category,
		       COUNT(*) AS n
		FROM documents`
	args := []any{}
	if sourceID != "" {
		query += ` WHERE source_id = ?`
		args = append(args, sourceID)
	}
	query += ` GROUP BY source_id, category ORDER BY source_id, category`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.SourceID, &c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DocumentsByCategory lists documents under one first path segment.
func (s *Store) DocumentsByCategory(ctx context.Context, sourceID, category, mode string, limit int) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + docColumns + ` FROM documents
		WHERE source_id = ? AND (path = ? OR path LIKE ? ESCAPE '\')`
	args := []any{sourceID, category, escapeLike(category) + "/%"}
	if mode != "" {
		query += ` AND dev_mode = ?`
		args = append(args, mode)
	}
	query += ` ORDER BY path LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// escapeLike escapes LIKE wildcards so literal '%'/'_' in paths and codes
// do not widen matches.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var d Document
	var apiPath, devMode, prevHash, sourceURL, metadata, lastUpdated, syncedAt sql.NullString
	var docType string

	err := row.Scan(&d.ID, &d.SourceID, &d.Path, &d.PathDepth, &d.Title,
		&apiPath, &devMode, &docType, &d.Content, &d.ContentHash, &prevHash,
		&sourceURL, &metadata, &d.TokenizedTitle, &d.TokenizedContent,
		&lastUpdated, &syncedAt)
	if err != nil {
		return nil, err
	}

	d.APIPath = apiPath.String
	d.DevMode = devMode.String
	d.DocType = DocType(docType)
	d.PrevContentHash = prevHash.String
	d.SourceURL = sourceURL.String
	d.Metadata = metadata.String
	d.LastUpdated = parseTime(lastUpdated)
	d.SyncedAt = parseTime(syncedAt)
	return &d, nil
}

func scanDocuments(rows *sql.Rows) ([]*Document, error) {
	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
