package domain

import "time"

// EmbeddingDimensions is the fixed dimensionality of chunk embeddings
// (text-embedding-3-small). Vectors of any other length are rejected.
const EmbeddingDimensions = 1536

// DocumentChunk is an immutable slice of a source knowledge document paired
// with its embedding. Chunks are written once during ingestion and are
// read-only to retrieval.
type DocumentChunk struct {
	ID             string
	SourceDocument string
	ChunkIndex     int
	Content        string
	Embedding      []float32
	Metadata       map[string]string
	IsPublic       bool
	CreatedAt      time.Time
}

// MetadataStageKey is the metadata field used for stage/topic pre-filtering.
const MetadataStageKey = "stage"

// Stage returns the chunk's stage classifier, if tagged.
func (c *DocumentChunk) Stage() string {
	return c.Metadata[MetadataStageKey]
}

// ValidateEmbedding checks that a vector matches the store's fixed
// dimensionality. Mismatched vectors fail hard, they are never truncated
// or padded.
func ValidateEmbedding(embedding []float32) error {
	if len(embedding) != EmbeddingDimensions {
		return ErrDimensionMismatch
	}
	return nil
}

// ChunkSearchResult pairs a chunk with its cosine similarity to a query.
type ChunkSearchResult struct {
	Chunk      *DocumentChunk
	Similarity float32
}
