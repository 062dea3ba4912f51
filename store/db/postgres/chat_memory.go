package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/asklly/asklly/store"
)

func (d *DB) UpsertChatMemory(ctx context.Context, upsert *store.ChatMemory) (*store.ChatMemory, error) {
	memory, err := json.Marshal(upsert.Memory)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal memory")
	}

	stmt := `
		INSERT INTO agents_chat (cid, agent_type, memory, model_provider, last_update)
		VALUES (` + placeholders(4) + `, now())
		ON CONFLICT (cid, agent_type) DO UPDATE SET
			memory = EXCLUDED.memory,
			model_provider = EXCLUDED.model_provider,
			last_update = now()
		RETURNING last_update
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.CID,
		upsert.AgentType,
		memory,
		upsert.ModelProvider,
	).Scan(&upsert.LastUpdate); err != nil {
		return nil, errors.Wrap(err, "failed to upsert chat memory")
	}
	return upsert, nil
}

func (d *DB) FindChatMemory(ctx context.Context, find *store.FindChatMemory) ([]*store.ChatMemory, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.CID; v != nil {
		where, args = append(where, "cid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.AgentType; v != nil {
		where, args = append(where, "agent_type = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT cid, agent_type, memory, model_provider, last_update
		FROM agents_chat
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY agent_type
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query chat memory")
	}
	defer rows.Close()

	list := []*store.ChatMemory{}
	for rows.Next() {
		var doc store.ChatMemory
		var memory []byte
		if err := rows.Scan(&doc.CID, &doc.AgentType, &memory, &doc.ModelProvider, &doc.LastUpdate); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat memory")
		}
		if err := json.Unmarshal(memory, &doc.Memory); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal memory")
		}
		list = append(list, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteChatMemory(ctx context.Context, delete *store.DeleteChatMemory) error {
	where, args := []string{"cid = " + placeholder(1)}, []any{delete.CID}
	if v := delete.AgentType; v != nil {
		where, args = append(where, "agent_type = "+placeholder(len(args)+1)), append(args, *v)
	}

	stmt := `DELETE FROM agents_chat WHERE ` + strings.Join(where, " AND ")
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return errors.Wrap(err, "failed to delete chat memory")
	}
	if _, err := result.RowsAffected(); err != nil && err != sql.ErrNoRows {
		return err
	}
	return nil
}
