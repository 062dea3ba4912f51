package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/asklly/asklly/store"
)

func (d *DB) FindBots(ctx context.Context, find *store.FindBot) ([]*store.Bot, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.APIKey; v != nil {
		where, args = append(where, "apikey = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Organization; v != nil {
		where, args = append(where, "organization = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
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
			pq.Array(&bot.Tags),
			&bot.Chats,
			&bot.Views,
			&bot.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan bot")
		}
		list = append(list, &bot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
