package store

import (
	"context"
	"time"
)

// Bot is a deployed assistant registered by an organization. The retrieval
// agent resolves the caller's bot key against this registry before touching
// the knowledge base.
type Bot struct {
	ID               int64
	BotName          string
	APIKey           string
	UID              string
	Organization     string
	Title            string
	Prompt           string
	Model            string
	DefaultWebsearch bool
	Tags             []string
	Chats            int64
	Views            int64
	CreatedAt        time.Time
}

type FindBot struct {
	APIKey       *string
	Organization *string
	UID          *string
}

func (s *Store) FindBots(ctx context.Context, find *FindBot) ([]*Bot, error) {
	return s.driver.FindBots(ctx, find)
}

// GetBotByAPIKey returns the bot registered under the given key, or nil when
// the key is unknown.
func (s *Store) GetBotByAPIKey(ctx context.Context, apiKey string) (*Bot, error) {
	bots, err := s.driver.FindBots(ctx, &FindBot{APIKey: &apiKey})
	if err != nil {
		return nil, err
	}
	if len(bots) == 0 {
		return nil, nil
	}
	return bots[0], nil
}
