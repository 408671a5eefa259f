package journal

// Schema is applied on open. Timestamps are stored in UTC.
const Schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	subject     TEXT NOT NULL DEFAULT '',
	severity    TEXT NOT NULL,
	message     TEXT NOT NULL,
	suggestion  TEXT NOT NULL DEFAULT '',
	value       REAL NOT NULL,
	threshold   REAL NOT NULL,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS alerts_created_at ON alerts (created_at);

CREATE TABLE IF NOT EXISTS risk_scores (
	cycle       INTEGER NOT NULL,
	computed_at TIMESTAMP NOT NULL,
	score       REAL NOT NULL,
	band        TEXT NOT NULL,
	components  TEXT NOT NULL,
	PRIMARY KEY (computed_at, cycle)
);
`
