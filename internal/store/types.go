package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DocType is the categorical label over documents.
type DocType string

const (
	DocTypeAPIReference DocType = "api_reference"
	DocTypeGuide        DocType = "guide"
	DocTypeErrorCode    DocType = "error_code"
	DocTypeEvent        DocType = "event"
	DocTypeCardTemplate DocType = "card_template"
	DocTypeChangelog    DocType = "changelog"
)

// ValidDocType reports whether t is one of the six enumerated values.
func ValidDocType(t DocType) bool {
	switch t {
	case DocTypeAPIReference, DocTypeGuide, DocTypeErrorCode,
		DocTypeEvent, DocTypeCardTemplate, DocTypeChangelog:
		return true
	}
	return false
}

// Dev modes (Wecom-only axis).
const (
	DevModeInternal        = "internal"
	DevModeThirdParty      = "third_party"
	DevModeServiceProvider = "service_provider"
)

// SourceWecom is the only source allowed to carry dev_mode.
const SourceWecom = "wecom"

// UpsertAction is the outcome of an upsert.
type UpsertAction string

const (
	ActionCreated   UpsertAction = "created"
	ActionUpdated   UpsertAction = "updated"
	ActionUnchanged UpsertAction = "unchanged"
)

// Source is an ingested platform.
type Source struct {
	ID         string
	Name       string
	BaseURL    string
	DocCount   int
	LastSynced time.Time
	Config     string
}

// Document is one retrieved article with its tokenized FTS columns.
type Document struct {
	ID               string
	SourceID         string
	Path             string
	PathDepth        int
	Title            string
	APIPath          string
	DevMode          string
	DocType          DocType
	Content          string
	ContentHash      string
	PrevContentHash  string
	SourceURL        string
	Metadata         string
	TokenizedTitle   string
	TokenizedContent string
	LastUpdated      time.Time
	SyncedAt         time.Time
}

// ErrorCode is a platform error code, optionally linked to the document
// that introduces it.
type ErrorCode struct {
	SourceID    string
	Code        string
	Message     string
	Description string
	DocID       string
}

// SyncLog is one per-run ingest record.
type SyncLog struct {
	ID         int64
	SourceID   string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Created    int
	Updated    int
	Unchanged  int
	Deleted    int
	Error      string
}

// Sync log statuses.
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// SearchLog is one per-query record.
type SearchLog struct {
	ID          int64
	Query       string
	Source      string
	ResultCount int
	TopScore    float64
	TookMS      int64
	CreatedAt   time.Time
}

// UpsertInput is a pending document as emitted by adapters; id, hash,
// path_depth, and the tokenized columns are computed at upsert time.
type UpsertInput struct {
	SourceID    string
	Path        string
	Title       string
	APIPath     string
	DevMode     string
	DocType     DocType
	Content     string
	SourceURL   string
	Metadata    string
	LastUpdated time.Time
}

// DocID derives the deterministic document id:
// {source_id}_{first 12 hex chars of SHA-256(path)}.
// Reinserting the same (source_id, path) yields the same id.
func DocID(sourceID, path string) string {
	sum := sha256.Sum256([]byte(path))
	return sourceID + "_" + hex.EncodeToString(sum[:])[:12]
}

// HashContent returns the hex SHA-256 of content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// PathDepth counts non-empty slash-delimited segments, minimum 1.
func PathDepth(path string) int {
	depth := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			depth++
		}
	}
	if depth < 1 {
		depth = 1
	}
	return depth
}
