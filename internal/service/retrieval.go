package service

import (
	"context"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/telemetry"
)

const (
	// DefaultTopK is the result count used when a caller does not ask for one.
	DefaultTopK = 5
	// MaxTopK is the hard cap on requested results. Larger requests are
	// clamped, not rejected.
	MaxTopK = 50
)

// ChunkFilter restricts a similarity search before ranking. Stage is an
// equality match on the chunk's stage metadata; PublicOnly restricts
// anonymous callers to public knowledge content.
type ChunkFilter struct {
	Stage      string
	PublicOnly bool
}

// ChunkSearchRepository defines the repository interface for similarity
// search over document chunks.
type ChunkSearchRepository interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, filter ChunkFilter, k int) ([]*domain.ChunkSearchResult, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorQuery is one similarity search request.
type VectorQuery struct {
	Embedding []float32
	Stage     string
	TopK      int
}

// VectorSearchService performs cosine-similarity retrieval over the chunk
// store.
type VectorSearchService struct {
	repo       ChunkSearchRepository
	embedding  EmbeddingClient
	dimensions int
}

func NewVectorSearchService(repo ChunkSearchRepository, embedding EmbeddingClient, dimensions int) *VectorSearchService {
	if dimensions <= 0 {
		dimensions = domain.EmbeddingDimensions
	}
	return &VectorSearchService{
		repo:       repo,
		embedding:  embedding,
		dimensions: dimensions,
	}
}

// Search returns the k most similar chunks, similarity descending. Anonymous
// callers only see public content. An embedding of the wrong dimensionality
// fails hard.
func (s *VectorSearchService) Search(ctx context.Context, caller domain.Caller, query VectorQuery) ([]*domain.ChunkSearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "VectorSearchService.Search", telemetry.SpanAttributes{
		UserID:    caller.UserID,
		Operation: "vector_search",
	})
	defer span.End()

	if len(query.Embedding) != s.dimensions {
		return nil, domain.ErrDimensionMismatch
	}

	k := clampTopK(query.TopK)
	filter := ChunkFilter{
		Stage:      query.Stage,
		PublicOnly: caller.IsAnonymous(),
	}

	results, err := s.repo.SearchByEmbedding(ctx, query.Embedding, filter, k)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return results, nil
}

// SearchText embeds the query text and searches. Used by callers that hold
// raw text rather than a precomputed embedding.
func (s *VectorSearchService) SearchText(ctx context.Context, caller domain.Caller, text, stage string, topK int) ([]*domain.ChunkSearchResult, error) {
	if text == "" {
		return nil, domain.ErrEmptyQuery
	}
	if s.embedding == nil {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "no embedding client configured")
	}

	embedding, err := s.embedding.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	return s.Search(ctx, caller, VectorQuery{Embedding: embedding, Stage: stage, TopK: topK})
}

func clampTopK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}
