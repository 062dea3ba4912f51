package store

import (
	"context"
	"time"
)

// TokenUsage accumulates per-bot token spend. Rows are unique per
// (organization, usage type, bot key, day); adding usage for an existing
// day increments the counters in place.
type TokenUsage struct {
	Organization string
	UsageType    string
	BotKey       string
	ChatTokens   int64
	EmbedTokens  int64
	APICalls     int64
	UsageDate    time.Time
}

type FindTokenUsage struct {
	Organization *string
	BotKey       *string
}

func (s *Store) AddTokenUsage(ctx context.Context, add *TokenUsage) error {
	return s.driver.AddTokenUsage(ctx, add)
}

func (s *Store) ListTokenUsage(ctx context.Context, find *FindTokenUsage) ([]*TokenUsage, error) {
	return s.driver.ListTokenUsage(ctx, find)
}
