package store

// schema is applied idempotently on open. The documents_fts virtual table
// is an external-content FTS5 index over the pre-tokenized columns, joined
// to documents by rowid and kept consistent by the three triggers.
const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS sources (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	base_url    TEXT,
	doc_count   INTEGER NOT NULL DEFAULT 0,
	last_synced TEXT,
	config      TEXT
);

CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	source_id         TEXT NOT NULL REFERENCES sources(id),
	path              TEXT NOT NULL,
	path_depth        INTEGER NOT NULL,
	title             TEXT NOT NULL,
	api_path          TEXT,
	dev_mode          TEXT,
	doc_type          TEXT NOT NULL DEFAULT 'api_reference',
	content           TEXT NOT NULL,
	content_hash      TEXT NOT NULL,
	prev_content_hash TEXT,
	source_url        TEXT,
	metadata          TEXT,
	tokenized_title   TEXT NOT NULL,
	tokenized_content TEXT NOT NULL,
	last_updated      TEXT,
	synced_at         TEXT NOT NULL,
	UNIQUE(source_id, path)
);

CREATE INDEX IF NOT EXISTS idx_documents_source   ON documents(source_id);
CREATE INDEX IF NOT EXISTS idx_documents_api_path ON documents(api_path);
CREATE INDEX IF NOT EXISTS idx_documents_updated  ON documents(last_updated);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	tokenized_title,
	tokenized_content,
	content='documents',
	content_rowid='rowid',
	tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
	INSERT INTO documents_fts(rowid, tokenized_title, tokenized_content)
	VALUES (new.rowid, new.tokenized_title, new.tokenized_content);
END;

CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, tokenized_title, tokenized_content)
	VALUES ('delete', old.rowid, old.tokenized_title, old.tokenized_content);
END;

CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, tokenized_title, tokenized_content)
	VALUES ('delete', old.rowid, old.tokenized_title, old.tokenized_content);
	INSERT INTO documents_fts(rowid, tokenized_title, tokenized_content)
	VALUES (new.rowid, new.tokenized_title, new.tokenized_content);
END;

CREATE TABLE IF NOT EXISTS error_codes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id   TEXT NOT NULL,
	code        TEXT NOT NULL,
	message     TEXT,
	description TEXT,
	doc_id      TEXT,
	UNIQUE(source_id, code)
);

CREATE INDEX IF NOT EXISTS idx_error_codes_code ON error_codes(code);

CREATE TABLE IF NOT EXISTS sync_logs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id   TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	created     INTEGER NOT NULL DEFAULT 0,
	updated     INTEGER NOT NULL DEFAULT 0,
	unchanged   INTEGER NOT NULL DEFAULT 0,
	deleted     INTEGER NOT NULL DEFAULT 0,
	error       TEXT
);

CREATE TABLE IF NOT EXISTS search_logs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	query        TEXT NOT NULL,
	source       TEXT,
	result_count INTEGER NOT NULL,
	top_score    REAL,
	took_ms      INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`
