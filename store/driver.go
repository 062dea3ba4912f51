package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database drivers.
type Driver interface {
	GetDB() *sql.DB
	Migrate(ctx context.Context) error
	Close() error

	// Conversation document model.
	UpsertChatMemory(ctx context.Context, upsert *ChatMemory) (*ChatMemory, error)
	FindChatMemory(ctx context.Context, find *FindChatMemory) ([]*ChatMemory, error)
	DeleteChatMemory(ctx context.Context, delete *DeleteChatMemory) error

	// Bot registry.
	FindBots(ctx context.Context, find *FindBot) ([]*Bot, error)

	// Knowledge base chunks.
	UpsertKnowledgeChunk(ctx context.Context, upsert *KnowledgeChunk) (*KnowledgeChunk, error)
	SearchKnowledgeChunks(ctx context.Context, search *SearchKnowledgeChunks) ([]*KnowledgeChunk, error)

	// Token accounting.
	AddTokenUsage(ctx context.Context, add *TokenUsage) error
	ListTokenUsage(ctx context.Context, find *FindTokenUsage) ([]*TokenUsage, error)
}
