package store

import "context"

// KnowledgeChunk is one embedded slice of an uploaded document. Chunks are
// searched by vector similarity scoped to the owning organization.
type KnowledgeChunk struct {
	ID           int64
	KBID         string
	FileName     string
	ChunkIndex   int
	Content      string
	Organization string
	Embedding    []float32
}

type SearchKnowledgeChunks struct {
	Embedding    []float32
	Organization string
	KBID         *string
	Limit        int
}

func (s *Store) UpsertKnowledgeChunk(ctx context.Context, upsert *KnowledgeChunk) (*KnowledgeChunk, error) {
	return s.driver.UpsertKnowledgeChunk(ctx, upsert)
}

func (s *Store) SearchKnowledgeChunks(ctx context.Context, search *SearchKnowledgeChunks) ([]*KnowledgeChunk, error) {
	return s.driver.SearchKnowledgeChunks(ctx, search)
}
