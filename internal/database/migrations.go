package database

import "strings"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS {emails} (
    id TEXT PRIMARY KEY,
    subject TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    received_at DATETIME NOT NULL,
    from_addr TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS {blobs} (
    id TEXT PRIMARY KEY,
    sha256 TEXT NOT NULL,
    attachment_id TEXT NOT NULL,
    filename TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL DEFAULT '',
    size INTEGER NOT NULL,
    data BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS {attachments} (
    id TEXT PRIMARY KEY,
    message_id TEXT NOT NULL DEFAULT '',
    filename TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL DEFAULT '',
    modified_at DATETIME NOT NULL,
    blob_id TEXT NOT NULL REFERENCES {blobs}(id),
    size INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_{emails}_received ON {emails}(received_at);
CREATE INDEX IF NOT EXISTS idx_{blobs}_sha256 ON {blobs}(sha256);
CREATE INDEX IF NOT EXISTS idx_{attachments}_message ON {attachments}(message_id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS {emails} (
    id TEXT PRIMARY KEY,
    subject TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL DEFAULT '',
    received_at TIMESTAMPTZ NOT NULL,
    from_addr TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS {blobs} (
    id TEXT PRIMARY KEY,
    sha256 TEXT NOT NULL,
    attachment_id TEXT NOT NULL,
    filename TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL DEFAULT '',
    size BIGINT NOT NULL,
    data BYTEA NOT NULL,
    created_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS {attachments} (
    id TEXT PRIMARY KEY,
    message_id TEXT NOT NULL DEFAULT '',
    filename TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL DEFAULT '',
    modified_at TIMESTAMPTZ NOT NULL,
    blob_id TEXT NOT NULL REFERENCES {blobs}(id),
    size BIGINT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_{emails}_received ON {emails}(received_at);
CREATE INDEX IF NOT EXISTS idx_{blobs}_sha256 ON {blobs}(sha256);
CREATE INDEX IF NOT EXISTS idx_{attachments}_message ON {attachments}(message_id);
`

// schema returns the dialect schema with the configured table names filled in.
// Table names are validated as identifiers by the config layer.
func (db *DB) schema() string {
	schema := sqliteSchema
	if db.isPostgres() {
		schema = postgresSchema
	}
	return db.expand(schema)
}

// expand substitutes table placeholders in a query
func (db *DB) expand(query string) string {
	return strings.NewReplacer(
		"{emails}", db.tables.Emails,
		"{attachments}", db.tables.Attachments,
		"{blobs}", db.tables.Blobs,
	).Replace(query)
}
