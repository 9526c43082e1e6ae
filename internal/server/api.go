package server

import (
	"time"

	"github.com/specfusion/specfusion/internal/store"
	"github.com/specfusion/specfusion/internal/telemetry"
)

// DocumentPayload is one document in an admin upsert body. last_updated
// accepts RFC 3339 or plain dates.
type DocumentPayload struct {
	Path        string `json:"path"`
	Title       string `json:"title"`
	APIPath     string `json:"api_path,omitempty"`
	DevMode     string `json:"dev_mode,omitempty"`
	DocType     string `json:"doc_type,omitempty"`
	Content     string `json:"content"`
	SourceURL   string `json:"source_url,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// ErrorCodePayload is one extracted platform error code. doc_path links
// it to the document that introduced it.
type ErrorCodePayload struct {
	Code        string `json:"code"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
	DocPath     string `json:"doc_path,omitempty"`
}

// UpsertRequest is the single-document admin body.
type UpsertRequest struct {
	Source string `json:"source"`
	DocumentPayload
}

// UpsertResponse reports the outcome of a single upsert.
type UpsertResponse struct {
	DocID  string `json:"doc_id"`
	Action string `json:"action"`
}

// BulkUpsertRequest is the batch admin body.
type BulkUpsertRequest struct {
	Source     string             `json:"source"`
	SourceName string             `json:"source_name,omitempty"`
	Documents  []DocumentPayload  `json:"documents"`
	ErrorCodes []ErrorCodePayload `json:"error_codes,omitempty"`
}

// BulkUpsertResponse mirrors store.BulkResult.
type BulkUpsertResponse struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// DeleteResponse reports a document deletion.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ReindexResponse reports an FTS rebuild.
type ReindexResponse struct {
	Reindexed int `json:"reindexed"`
}

// HealthSource is one source in the health payload.
type HealthSource struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DocCount   int    `json:"doc_count"`
	LastSynced string `json:"last_synced,omitempty"`
}

// HealthResponse is the /api/health payload.
type HealthResponse struct {
	Status    string              `json:"status"`
	Sources   []HealthSource      `json:"sources"`
	TotalDocs int                 `json:"total_docs"`
	Search    *telemetry.Snapshot `json:"search,omitempty"`
}

// ErrorResponse is the JSON error body on admin and health routes.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// toInput converts a payload to a store input.
func (p DocumentPayload) toInput(sourceID string) store.UpsertInput {
	return store.UpsertInput{
		SourceID:    sourceID,
		Path:        p.Path,
		Title:       p.Title,
		APIPath:     p.APIPath,
		DevMode:     p.DevMode,
		DocType:     store.DocType(p.DocType),
		Content:     p.Content,
		SourceURL:   p.SourceURL,
		Metadata:    p.Metadata,
		LastUpdated: parseWhen(p.LastUpdated),
	}
}

func parseWhen(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
