package sqlite

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/asklly/asklly/store"
)

func (d *DB) FindBots(ctx context.Context, find *store.FindBot) ([]*store.Bot, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.APIKey; v != nil {
		where, args = append(where, "apikey = ?"), append(args, *v)
	}
	if v := find.Organization; v != nil {
		where, args = append(where, "organization = ?"), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = ?"), append(args, *v)
	}

	query := `
		SELECT id, botname, apikey, uid, organization, title, prompt, model,
			default_websearch, tags, chats, views, created_at
		FROM created_bots
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query bots")
	}
	defer rows.Close()

	list := []*store.Bot{}
	for rows.Next() {
		var bot store.Bot
		var tags string
		if err := rows.Scan(
			&bot.ID,
			&bot.BotName,
			&bot.APIKey,
			&bot.UID,
			&bot.Organization,
			&bot.Title,
			&bot.Prompt,
			&bot.Model,
			&bot.DefaultWebsearch,
			&tags,
			&bot.Chats,
			&bot.Views,
			&bot.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan bot")
		}
		if err := json.Unmarshal([]byte(tags), &bot.Tags); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal tags")
		}
		list = append(list, &bot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
