package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clearpath-coaching/hugoctx/internal/api/middleware"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockVectorSearcher is a mock implementation of VectorSearcher
type MockVectorSearcher struct {
	mock.Mock
}

func (m *MockVectorSearcher) Search(ctx context.Context, caller domain.Caller, query service.VectorQuery) ([]*domain.ChunkSearchResult, error) {
	args := m.Called(ctx, caller, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChunkSearchResult), args.Error(1)
}

func (m *MockVectorSearcher) SearchText(ctx context.Context, caller domain.Caller, text, stage string, topK int) ([]*domain.ChunkSearchResult, error) {
	args := m.Called(ctx, caller, text, stage, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChunkSearchResult), args.Error(1)
}

// MockLexicalSearcher is a mock implementation of LexicalSearcher
type MockLexicalSearcher struct {
	mock.Mock
}

func (m *MockLexicalSearcher) Search(ctx context.Context, query, applicationID string, k int) ([]*domain.EntrySearchResult, error) {
	args := m.Called(ctx, query, applicationID, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EntrySearchResult), args.Error(1)
}

func postJSON(t *testing.T, path string, payload any, caller *domain.Caller) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if caller != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.CallerKey, *caller))
	}
	return req
}

func searchResult(id string, similarity float32) *domain.ChunkSearchResult {
	return &domain.ChunkSearchResult{
		Chunk: &domain.DocumentChunk{
			ID:             id,
			SourceDocument: "guide.pdf",
			ChunkIndex:     2,
			Content:        "chunk content",
		},
		Similarity: similarity,
	}
}

func TestSemanticSearch_WithEmbedding(t *testing.T) {
	vector := new(MockVectorSearcher)
	caller := domain.Caller{UserID: "u1"}
	embedding := []float32{0.1, 0.2, 0.3}

	vector.On("Search", mock.Anything, caller, service.VectorQuery{Embedding: embedding, TopK: 3}).
		Return([]*domain.ChunkSearchResult{searchResult("c1", 0.91)}, nil)

	handler := NewSearchHandler(vector, new(MockLexicalSearcher))
	req := postJSON(t, "/search/semantic", SemanticSearchRequest{Embedding: embedding, TopK: 3}, &caller)
	rec := httptest.NewRecorder()

	handler.Semantic(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data SemanticSearchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, "c1", resp.Data.Results[0].ChunkID)
	assert.InDelta(t, 0.91, resp.Data.Results[0].Similarity, 0.001)
	vector.AssertExpectations(t)
}

func TestSemanticSearch_WithQueryText(t *testing.T) {
	vector := new(MockVectorSearcher)
	vector.On("SearchText", mock.Anything, domain.Caller{}, "how to build habits", "foundation", 0).
		Return([]*domain.ChunkSearchResult{}, nil)

	handler := NewSearchHandler(vector, new(MockLexicalSearcher))
	req := postJSON(t, "/search/semantic", SemanticSearchRequest{Query: "how to build habits", Stage: "foundation"}, nil)
	rec := httptest.NewRecorder()

	handler.Semantic(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	vector.AssertExpectations(t)
}

func TestSemanticSearch_RequiresInput(t *testing.T) {
	handler := NewSearchHandler(new(MockVectorSearcher), new(MockLexicalSearcher))
	req := postJSON(t, "/search/semantic", SemanticSearchRequest{}, nil)
	rec := httptest.NewRecorder()

	handler.Semantic(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSemanticSearch_DimensionMismatch(t *testing.T) {
	vector := new(MockVectorSearcher)
	vector.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrDimensionMismatch)

	handler := NewSearchHandler(vector, new(MockLexicalSearcher))
	req := postJSON(t, "/search/semantic", SemanticSearchRequest{Embedding: []float32{0.1}}, nil)
	rec := httptest.NewRecorder()

	handler.Semantic(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntrySearch(t *testing.T) {
	lexical := new(MockLexicalSearcher)
	lexical.On("Search", mock.Anything, "goal setting", "app1", 0).
		Return([]*domain.EntrySearchResult{
			{
				Entry:     &domain.KnowledgeEntry{ID: "e1", KnowledgeBaseID: "kb1", Title: "Goal Setting 101", Content: "Start small."},
				Relevance: 0.6,
			},
		}, nil)

	handler := NewSearchHandler(new(MockVectorSearcher), lexical)
	req := postJSON(t, "/search/entries", EntrySearchRequest{Query: "goal setting", ApplicationID: "app1"}, nil)
	rec := httptest.NewRecorder()

	handler.Entries(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data EntrySearchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, "Goal Setting 101", resp.Data.Results[0].Title)
	lexical.AssertExpectations(t)
}

func TestEntrySearch_RequiresApplication(t *testing.T) {
	handler := NewSearchHandler(new(MockVectorSearcher), new(MockLexicalSearcher))
	req := postJSON(t, "/search/entries", EntrySearchRequest{Query: "goal setting"}, nil)
	rec := httptest.NewRecorder()

	handler.Entries(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
