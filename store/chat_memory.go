package store

import (
	"context"
	"time"
)

// ChatMessage is one message inside a persisted conversation document.
// The JSON field names match the stored document, so existing rows keep
// loading across releases.
type ChatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Time      string `json:"time"`
	ModelUsed string `json:"model_used"`
	// Context carries tool output attached to the message, such as web
	// search results. Empty for plain chat turns.
	Context string `json:"context,omitempty"`
	// Query is the raw user query a tool-augmented message answered.
	Query string `json:"query,omitempty"`
}

// ChatMemory is the conversation document of one agent within one session.
// Documents are keyed by (CID, AgentType) so agents of the same session
// never overwrite each other.
type ChatMemory struct {
	CID           string
	AgentType     string
	Memory        []ChatMessage
	ModelProvider string
	LastUpdate    time.Time
}

type FindChatMemory struct {
	CID       *string
	AgentType *string
}

type DeleteChatMemory struct {
	CID       string
	AgentType *string
}

func (s *Store) UpsertChatMemory(ctx context.Context, upsert *ChatMemory) (*ChatMemory, error) {
	return s.driver.UpsertChatMemory(ctx, upsert)
}

func (s *Store) FindChatMemory(ctx context.Context, find *FindChatMemory) ([]*ChatMemory, error) {
	return s.driver.FindChatMemory(ctx, find)
}

// GetChatMemory returns the single document for (cid, agentType), or nil
// when none exists.
func (s *Store) GetChatMemory(ctx context.Context, cid, agentType string) (*ChatMemory, error) {
	list, err := s.driver.FindChatMemory(ctx, &FindChatMemory{CID: &cid, AgentType: &agentType})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) DeleteChatMemory(ctx context.Context, delete *DeleteChatMemory) error {
	return s.driver.DeleteChatMemory(ctx, delete)
}
