package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DocumentChunkRepository handles persistence and similarity search over
// embedded knowledge chunks.
type DocumentChunkRepository struct {
	db dbtx
}

func NewDocumentChunkRepository(pool *pgxpool.Pool) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: pool}
}

// InsertBatch stores a batch of ingested chunks sequentially and returns the
// number persisted. Inserts are not transactional, so on error the count
// points at the failing chunk and everything before it is already stored.
// Chunks are immutable, a conflicting (source_document, chunk_index) pair is
// an ingestion error and surfaces as such.
func (r *DocumentChunkRepository) InsertBatch(ctx context.Context, chunks []*domain.DocumentChunk) (int, error) {
	for idx, c := range chunks {
		if err := r.insertOne(ctx, c); err != nil {
			return idx, err
		}
	}
	return len(chunks), nil
}

func (r *DocumentChunkRepository) insertOne(ctx context.Context, c *domain.DocumentChunk) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO document_chunks
			(id, source_document, chunk_index, content, embedding, metadata, is_public, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.SourceDocument, c.ChunkIndex, c.Content,
		pgvector.NewVector(c.Embedding), metadata, c.IsPublic, createdAt,
	)
	return err
}

// SearchByEmbedding returns the k chunks most similar to the query embedding,
// similarity descending. The stage filter is part of the WHERE clause, so the
// limit always applies to matching chunks only.
func (r *DocumentChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filter service.ChunkFilter, k int) ([]*domain.ChunkSearchResult, error) {
	vec := pgvector.NewVector(embedding)

	query := `
		SELECT id, source_document, chunk_index, content, metadata, is_public, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE ($2 = '' OR metadata->>'stage' = $2)
		  AND ($3 = false OR is_public)
		ORDER BY embedding <=> $1
		LIMIT $4`

	rows, err := r.db.Query(ctx, query, vec, filter.Stage, filter.PublicOnly, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*domain.ChunkSearchResult, 0, k)
	for rows.Next() {
		var chunk domain.DocumentChunk
		var metadata []byte
		var similarity float32
		if err := rows.Scan(&chunk.ID, &chunk.SourceDocument, &chunk.ChunkIndex, &chunk.Content,
			&metadata, &chunk.IsPublic, &chunk.CreatedAt, &similarity); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
				return nil, err
			}
		}
		results = append(results, &domain.ChunkSearchResult{Chunk: &chunk, Similarity: similarity})
	}

	return results, rows.Err()
}

// CountBySource returns the number of stored chunks for a source document.
func (r *DocumentChunkRepository) CountBySource(ctx context.Context, sourceDocument string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM document_chunks WHERE source_document = $1`,
		sourceDocument,
	).Scan(&count)
	return count, err
}
