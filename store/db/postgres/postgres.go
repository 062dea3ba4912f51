// Package postgres implements the store driver on PostgreSQL with pgvector.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Import the postgres driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/asklly/asklly/internal/profile"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a connection to the postgres database specified by the
// profile DSN and verifies it with a ping.
func NewDB(profile *profile.Profile) (*DB, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const latestSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS agents_chat (
	cid TEXT NOT NULL,
	agent_type TEXT NOT NULL,
	memory JSONB NOT NULL DEFAULT '[]',
	model_provider TEXT NOT NULL DEFAULT '',
	last_update TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (cid, agent_type)
);

CREATE TABLE IF NOT EXISTS created_bots (
	id BIGSERIAL PRIMARY KEY,
	botname TEXT NOT NULL,
	apikey TEXT NOT NULL UNIQUE,
	uid TEXT NOT NULL,
	organization TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	prompt TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	default_websearch BOOLEAN NOT NULL DEFAULT FALSE,
	tags TEXT[] NOT NULL DEFAULT '{}',
	chats BIGINT NOT NULL DEFAULT 0,
	views BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS knowledge_chunks (
	id BIGSERIAL PRIMARY KEY,
	kb_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	chunk_index INTEGER NOT NULL DEFAULT 0,
	content TEXT NOT NULL,
	organization TEXT NOT NULL,
	embedding vector(1024),
	UNIQUE (kb_id, organization, file_name, chunk_index)
);

CREATE TABLE IF NOT EXISTS token_metrics (
	id BIGSERIAL PRIMARY KEY,
	organization TEXT NOT NULL,
	usage_type TEXT NOT NULL,
	bot_key TEXT NOT NULL,
	chat_tokens BIGINT NOT NULL DEFAULT 0,
	embed_tokens BIGINT NOT NULL DEFAULT 0,
	api_calls BIGINT NOT NULL DEFAULT 0,
	usage_date DATE NOT NULL,
	CONSTRAINT unique_usage_per_day_per_bot UNIQUE (organization, usage_type, bot_key, usage_date)
);
`

// Migrate applies the latest schema. Statements are idempotent so running
// them on every start is safe.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	return nil
}

// placeholder returns the parameter marker for 1-based position i.
func placeholder(i int) string {
	return fmt.Sprintf("$%d", i)
}

// placeholders returns n comma separated parameter markers starting at $1.
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
