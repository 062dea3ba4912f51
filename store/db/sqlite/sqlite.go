// Package sqlite implements the store driver on SQLite for single-node and
// demo deployments.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	// Import the pure-Go sqlite driver.
	_ "modernc.org/sqlite"

	"github.com/asklly/asklly/internal/profile"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a connection to the sqlite database specified by the profile
// DSN.
func NewDB(profile *profile.Profile) (*DB, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Connect with some sane settings:
	// - No foreign key constraints: it's currently disabled by default, but
	//   it's a good practice to be explicit and prevent future surprises.
	// - Journal mode set to WAL: it's the recommended journal mode for most
	//   applications as it prevents locking issues.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	driver := DB{db: sqliteDB, profile: profile}
	// The sqlite driver allows only one writer at a time.
	driver.db.SetMaxOpenConns(1)

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const latestSchema = `
CREATE TABLE IF NOT EXISTS agents_chat (
	cid TEXT NOT NULL,
	agent_type TEXT NOT NULL,
	memory TEXT NOT NULL DEFAULT '[]',
	model_provider TEXT NOT NULL DEFAULT '',
	last_update TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (cid, agent_type)
);

CREATE TABLE IF NOT EXISTS created_bots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	botname TEXT NOT NULL,
	apikey TEXT NOT NULL UNIQUE,
	uid TEXT NOT NULL,
	organization TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	prompt TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	default_websearch INTEGER NOT NULL DEFAULT 0,
	tags TEXT NOT NULL DEFAULT '[]',
	chats INTEGER NOT NULL DEFAULT 0,
	views INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS token_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	organization TEXT NOT NULL,
	usage_type TEXT NOT NULL,
	bot_key TEXT NOT NULL,
	chat_tokens INTEGER NOT NULL DEFAULT 0,
	embed_tokens INTEGER NOT NULL DEFAULT 0,
	api_calls INTEGER NOT NULL DEFAULT 0,
	usage_date TEXT NOT NULL,
	UNIQUE (organization, usage_type, bot_key, usage_date)
);
`

// Migrate applies the latest schema.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	return nil
}
