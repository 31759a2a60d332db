package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE COLLATE NOCASE,
	sort_order INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS events (
	id            TEXT PRIMARY KEY,
	summary       TEXT NOT NULL,
	start_date    TEXT NOT NULL,
	end_date      TEXT NOT NULL DEFAULT '',
	all_day       INTEGER NOT NULL DEFAULT 0 CHECK(all_day IN (0, 1)),
	attendees     TEXT NOT NULL DEFAULT '[]',
	description   TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	calendar_name TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
	id            TEXT PRIMARY KEY,
	summary       TEXT NOT NULL,
	due_date      TEXT NOT NULL DEFAULT '',
	initial_date  TEXT NOT NULL DEFAULT '',
	all_day       INTEGER NOT NULL DEFAULT 0 CHECK(all_day IN (0, 1)),
	description   TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	calendar_name TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS contacts (
	id           TEXT PRIMARY KEY,
	address_book TEXT NOT NULL DEFAULT '',
	first_name   TEXT NOT NULL DEFAULT '',
	last_name    TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	company      TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	website      TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_start_date ON events(start_date);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_categories_sort_order ON categories(sort_order);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_contacts_book_email
	ON contacts(address_book, email COLLATE NOCASE);

CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
