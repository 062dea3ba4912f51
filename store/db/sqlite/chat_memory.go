package sqlite

import (
	"context"
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
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (cid, agent_type) DO UPDATE SET
			memory = EXCLUDED.memory,
			model_provider = EXCLUDED.model_provider,
			last_update = CURRENT_TIMESTAMP
		RETURNING last_update
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.CID,
		upsert.AgentType,
		string(memory),
		upsert.ModelProvider,
	).Scan(&upsert.LastUpdate); err != nil {
		return nil, errors.Wrap(err, "failed to upsert chat memory")
	}
	return upsert, nil
}

func (d *DB) FindChatMemory(ctx context.Context, find *store.FindChatMemory) ([]*store.ChatMemory, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.CID; v != nil {
		where, args = append(where, "cid = ?"), append(args, *v)
	}
	if v := find.AgentType; v != nil {
		where, args = append(where, "agent_type = ?"), append(args, *v)
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
		var memory string
		if err := rows.Scan(&doc.CID, &doc.AgentType, &memory, &doc.ModelProvider, &doc.LastUpdate); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat memory")
		}
		if err := json.Unmarshal([]byte(memory), &doc.Memory); err != nil {
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
	where, args := []string{"cid = ?"}, []any{delete.CID}
	if v := delete.AgentType; v != nil {
		where, args = append(where, "agent_type = ?"), append(args, *v)
	}

	stmt := `DELETE FROM agents_chat WHERE ` + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to delete chat memory")
	}
	return nil
}
