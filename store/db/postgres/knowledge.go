package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/asklly/asklly/store"
)

func (d *DB) UpsertKnowledgeChunk(ctx context.Context, upsert *store.KnowledgeChunk) (*store.KnowledgeChunk, error) {
	stmt := `
		INSERT INTO knowledge_chunks (kb_id, file_name, chunk_index, content, organization, embedding)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (kb_id, organization, file_name, chunk_index) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		upsert.KBID,
		upsert.FileName,
		upsert.ChunkIndex,
		upsert.Content,
		upsert.Organization,
		pgvector.NewVector(upsert.Embedding),
	).Scan(&upsert.ID); err != nil {
		return nil, errors.Wrap(err, "failed to upsert knowledge chunk")
	}
	return upsert, nil
}

// SearchKnowledgeChunks returns the chunks closest to the query embedding by
// cosine distance, scoped to one organization.
func (d *DB) SearchKnowledgeChunks(ctx context.Context, search *store.SearchKnowledgeChunks) ([]*store.KnowledgeChunk, error) {
	where, args := []string{"organization = " + placeholder(1)}, []any{search.Organization}
	if v := search.KBID; v != nil {
		where, args = append(where, "kb_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	limit := search.Limit
	if limit <= 0 {
		limit = 3
	}
	args = append(args, pgvector.NewVector(search.Embedding), limit)

	query := `
		SELECT id, kb_id, file_name, chunk_index, content, organization
		FROM knowledge_chunks
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> ` + placeholder(len(args)-1) + `
		LIMIT ` + placeholder(len(args))
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search knowledge chunks")
	}
	defer rows.Close()

	list := []*store.KnowledgeChunk{}
	for rows.Next() {
		var chunk store.KnowledgeChunk
		if err := rows.Scan(
			&chunk.ID,
			&chunk.KBID,
			&chunk.FileName,
			&chunk.ChunkIndex,
			&chunk.Content,
			&chunk.Organization,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan knowledge chunk")
		}
		list = append(list, &chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
