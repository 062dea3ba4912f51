package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/asklly/asklly/store"
)

// AddTokenUsage records token spend for one bot on one day. The per-day row
// is created on first use and incremented afterwards.
func (d *DB) AddTokenUsage(ctx context.Context, add *store.TokenUsage) error {
	stmt := `
		INSERT INTO token_metrics (organization, usage_type, bot_key, chat_tokens, embed_tokens, api_calls, usage_date)
		VALUES (` + placeholders(6) + `, CURRENT_DATE)
		ON CONFLICT ON CONSTRAINT unique_usage_per_day_per_bot DO UPDATE SET
			chat_tokens = token_metrics.chat_tokens + EXCLUDED.chat_tokens,
			embed_tokens = token_metrics.embed_tokens + EXCLUDED.embed_tokens,
			api_calls = token_metrics.api_calls + EXCLUDED.api_calls
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		add.Organization,
		add.UsageType,
		add.BotKey,
		add.ChatTokens,
		add.EmbedTokens,
		add.APICalls,
	); err != nil {
		return errors.Wrap(err, "failed to add token usage")
	}
	return nil
}

func (d *DB) ListTokenUsage(ctx context.Context, find *store.FindTokenUsage) ([]*store.TokenUsage, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.Organization; v != nil {
		where, args = append(where, "organization = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.BotKey; v != nil {
		where, args = append(where, "bot_key = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT organization, usage_type, bot_key, chat_tokens, embed_tokens, api_calls, usage_date
		FROM token_metrics
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY usage_date DESC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query token usage")
	}
	defer rows.Close()

	list := []*store.TokenUsage{}
	for rows.Next() {
		var usage store.TokenUsage
		if err := rows.Scan(
			&usage.Organization,
			&usage.UsageType,
			&usage.BotKey,
			&usage.ChatTokens,
			&usage.EmbedTokens,
			&usage.APICalls,
			&usage.UsageDate,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan token usage")
		}
		list = append(list, &usage)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
