package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/clearpath-coaching/hugoctx/internal/api"
	"github.com/clearpath-coaching/hugoctx/internal/api/middleware"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/service"
)

type VectorSearcher interface {
	Search(ctx context.Context, caller domain.Caller, query service.VectorQuery) ([]*domain.ChunkSearchResult, error)
	SearchText(ctx context.Context, caller domain.Caller, text, stage string, topK int) ([]*domain.ChunkSearchResult, error)
}

type LexicalSearcher interface {
	Search(ctx context.Context, query, applicationID string, k int) ([]*domain.EntrySearchResult, error)
}

type SearchHandler struct {
	vector  VectorSearcher
	lexical LexicalSearcher
}

func NewSearchHandler(vector VectorSearcher, lexical LexicalSearcher) *SearchHandler {
	return &SearchHandler{vector: vector, lexical: lexical}
}

type SemanticSearchRequest struct {
	Embedding []float32 `json:"embedding,omitempty"`
	Query     string    `json:"query,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	TopK      int       `json:"top_k,omitempty"`
}

type ChunkResultResponse struct {
	ChunkID        string            `json:"chunk_id"`
	SourceDocument string            `json:"source_document"`
	ChunkIndex     int               `json:"chunk_index"`
	Content        string            `json:"content"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Similarity     float32           `json:"similarity"`
}

type SemanticSearchResponse struct {
	Results []*ChunkResultResponse `json:"results"`
}

type EntrySearchRequest struct {
	Query         string `json:"query"`
	ApplicationID string `json:"application_id"`
	Limit         int    `json:"limit,omitempty"`
}

type EntryResultResponse struct {
	ID              string   `json:"id"`
	KnowledgeBaseID string   `json:"knowledge_base_id"`
	Title           string   `json:"title"`
	Category        string   `json:"category,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Snippet         string   `json:"snippet,omitempty"`
	Relevance       float32  `json:"relevance"`
}

type EntrySearchResponse struct {
	Results []*EntryResultResponse `json:"results"`
}

// Semantic runs a cosine-similarity search over the chunk store. Callers may
// send either a precomputed embedding or raw query text; anonymous callers
// only see public chunks.
func (h *SearchHandler) Semantic(w http.ResponseWriter, r *http.Request) {
	var req SemanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := middleware.GetCaller(r.Context())

	var (
		results []*domain.ChunkSearchResult
		err     error
	)
	switch {
	case len(req.Embedding) > 0:
		results, err = h.vector.Search(r.Context(), caller, service.VectorQuery{
			Embedding: req.Embedding,
			Stage:     req.Stage,
			TopK:      req.TopK,
		})
	case req.Query != "":
		results, err = h.vector.SearchText(r.Context(), caller, req.Query, req.Stage, req.TopK)
	default:
		api.Error(w, http.StatusBadRequest, "embedding or query is required")
		return
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SemanticSearchResponse{Results: chunkResults(results)})
}

// Entries runs a weighted full-text search over knowledge entries granted to
// an application.
func (h *SearchHandler) Entries(w http.ResponseWriter, r *http.Request) {
	var req EntrySearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ApplicationID == "" {
		api.Error(w, http.StatusBadRequest, "application_id is required")
		return
	}

	results, err := h.lexical.Search(r.Context(), req.Query, req.ApplicationID, req.Limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*EntryResultResponse, len(results))
	for i, result := range results {
		responses[i] = &EntryResultResponse{
			ID:              result.Entry.ID,
			KnowledgeBaseID: result.Entry.KnowledgeBaseID,
			Title:           result.Entry.Title,
			Category:        result.Entry.Category,
			Tags:            result.Entry.Tags,
			Snippet:         snippet(result.Entry.Content, 280),
			Relevance:       result.Relevance,
		}
	}

	api.Success(w, http.StatusOK, EntrySearchResponse{Results: responses})
}

func chunkResults(results []*domain.ChunkSearchResult) []*ChunkResultResponse {
	responses := make([]*ChunkResultResponse, len(results))
	for i, result := range results {
		responses[i] = &ChunkResultResponse{
			ChunkID:        result.Chunk.ID,
			SourceDocument: result.Chunk.SourceDocument,
			ChunkIndex:     result.Chunk.ChunkIndex,
			Content:        result.Chunk.Content,
			Metadata:       result.Chunk.Metadata,
			Similarity:     result.Similarity,
		}
	}
	return responses
}

func snippet(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max]
}
