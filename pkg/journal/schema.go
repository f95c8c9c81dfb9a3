package journal

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Times are stored as Unix nanoseconds.
const schema = `
CREATE TABLE IF NOT EXISTS entries (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL,
    outcome TEXT NOT NULL,
    revision TEXT,
    detail TEXT,
    error TEXT,
    started INTEGER NOT NULL,
    finished INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_started ON entries(started);
CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertEntry = `
INSERT INTO entries (id, kind, outcome, revision, detail, error, started, finished)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`

// pruneEntries keeps the newest ? rows.
const pruneEntries = `
DELETE FROM entries WHERE seq NOT IN (
    SELECT seq FROM entries ORDER BY seq DESC LIMIT ?
);
`
