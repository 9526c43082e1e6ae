package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sferrors "github.com/specfusion/specfusion/internal/errors"
)

// candidateCap bounds the number of rows scored per query.
const candidateCap = 200

// SearchFilter narrows search queries by source and Wecom dev mode.
type SearchFilter struct {
	Source string
	Mode   string
}

// FTSHit is one FTS candidate with its raw bm25 rank (negative; larger
// magnitude = better).
type FTSHit struct {
	Doc  *Document
	Rank float64
}

// SearchFTS executes an FTS5 MATCH over the tokenized columns.
// A malformed match expression returns an error with code
// ERR_501_MATCH_SYNTAX so callers can fall back to LIKE.
func (s *Store) SearchFTS(ctx context.Context, match string, f SearchFilter) ([]FTSHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + prefixColumns("d") + `, bm25(documents_fts) AS fts_rank
		FROM documents_fts
		JOIN documents d ON d.rowid = documents_fts.rowid
		WHERE documents_fts MATCH ?`
	args := []any{match}
	if f.Source != "" {
		query += ` AND d.source_id = ?`
		args = append(args, f.Source)
	}
	if f.Mode != "" {
		query += ` AND d.dev_mode = ?`
		args = append(args, f.Mode)
	}
	query += ` LIMIT ?`
	args = append(args, candidateCap)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		// FTS5 rejects rare token characters with a syntax error.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return nil, sferrors.New(sferrors.ErrCodeMatchSyntax, err.Error(), err)
		}
		return nil, fmt.Errorf("FTS search failed: %w", err)
	}
	defer rows.Close()

	var hits []FTSHit
	for rows.Next() {
		var d Document
		doc, rank, err := scanDocumentWithRank(rows, &d)
		if err != nil {
			return nil, fmt.Errorf("failed to scan FTS hit: %w", err)
		}
		hits = append(hits, FTSHit{Doc: doc, Rank: rank})
	}
	return hits, rows.Err()
}

// SearchLike is the fallback path: per-token double-LIKE on content and
// title, conjoined with AND.
func (s *Store) SearchLike(ctx context.Context, tokens []string, f SearchFilter) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + docColumns + ` FROM documents WHERE 1=1`
	var args []any
	for _, tok := range tokens {
		query += ` AND (content LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(tok) + "%"
		args = append(args, pattern, pattern)
	}
	query, args = applyFilter(query, args, f)
	query += ` LIMIT ?`
	args = append(args, candidateCap)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("LIKE search failed: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// SearchAPIPath returns documents whose api_path contains q.
func (s *Store) SearchAPIPath(ctx context.Context, q string, f SearchFilter, limit int) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + docColumns + ` FROM documents WHERE api_path LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(q) + "%"}
	query, args = applyFilter(query, args, f)
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("api_path search failed: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// SearchContentLiteral returns documents whose content contains the literal
// string. Used for error-code queries without a linked document.
func (s *Store) SearchContentLiteral(ctx context.Context, literal string, f SearchFilter, limit int) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + docColumns + ` FROM documents WHERE content LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(literal) + "%"}
	query, args = applyFilter(query, args, f)
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("content search failed: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func applyFilter(query string, args []any, f SearchFilter) (string, []any) {
	if f.Source != "" {
		query += ` AND source_id = ?`
		args = append(args, f.Source)
	}
	if f.Mode != "" {
		query += ` AND dev_mode = ?`
		args = append(args, f.Mode)
	}
	return query, args
}

// prefixColumns qualifies docColumns with a table alias.
func prefixColumns(alias string) string {
	cols := strings.Split(docColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func scanDocumentWithRank(row rowScanner, d *Document) (*Document, float64, error) {
	var apiPath, devMode, prevHash, sourceURL, metadata, lastUpdated, syncedAt sql.NullString
	var docType string
	var rank float64

	err := row.Scan(&d.ID, &d.SourceID, &d.Path, &d.PathDepth, &d.Title,
		&apiPath, &devMode, &docType, &d.Content, &d.ContentHash, &prevHash,
		&sourceURL, &metadata, &d.TokenizedTitle, &d.TokenizedContent,
		&lastUpdated, &syncedAt, &rank)
	if err != nil {
		return nil, 0, err
	}

	d.APIPath = apiPath.String
	d.DevMode = devMode.String
	d.DocType = DocType(docType)
	d.PrevContentHash = prevHash.String
	d.SourceURL = sourceURL.String
	d.Metadata = metadata.String
	d.LastUpdated = parseTime(lastUpdated)
	d.SyncedAt = parseTime(syncedAt)
	return d, rank, nil
}
