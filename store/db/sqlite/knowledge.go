package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/asklly/asklly/store"
)

// Vector search needs the pgvector extension, so the sqlite driver keeps the
// knowledge base read path unavailable. Single-node deployments run without
// retrieval rather than with a degraded brute-force scan.

func (d *DB) UpsertKnowledgeChunk(ctx context.Context, upsert *store.KnowledgeChunk) (*store.KnowledgeChunk, error) {
	return nil, errors.New("knowledge base is not supported on sqlite")
}

func (d *DB) SearchKnowledgeChunks(ctx context.Context, search *store.SearchKnowledgeChunks) ([]*store.KnowledgeChunk, error) {
	return nil, errors.New("knowledge base is not supported on sqlite")
}
