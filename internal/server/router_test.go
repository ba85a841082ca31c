package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clearpath-coaching/hugoctx/internal/api/handlers"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(ctx context.Context, token string) (domain.Caller, error) {
	if token == "good-token" {
		return domain.Caller{UserID: "u1", ApplicationID: "app1"}, nil
	}
	return domain.Caller{}, domain.ErrInvalidToken
}

type stubVectorSearcher struct {
	lastCaller domain.Caller
}

func (s *stubVectorSearcher) Search(ctx context.Context, caller domain.Caller, query service.VectorQuery) ([]*domain.ChunkSearchResult, error) {
	s.lastCaller = caller
	return []*domain.ChunkSearchResult{}, nil
}

func (s *stubVectorSearcher) SearchText(ctx context.Context, caller domain.Caller, text, stage string, topK int) ([]*domain.ChunkSearchResult, error) {
	s.lastCaller = caller
	return []*domain.ChunkSearchResult{}, nil
}

type stubLexicalSearcher struct{}

func (stubLexicalSearcher) Search(ctx context.Context, query, applicationID string, k int) ([]*domain.EntrySearchResult, error) {
	return []*domain.EntrySearchResult{}, nil
}

type stubAssembler struct{}

func (stubAssembler) Assemble(ctx context.Context, caller domain.Caller, input service.AssembleInput) (*service.ContextPayload, error) {
	return &service.ContextPayload{}, nil
}

func newTestRouter(vector *stubVectorSearcher) http.Handler {
	return NewRouter(RouterConfig{
		AuthValidator:       stubValidator{},
		SearchHandler:       handlers.NewSearchHandler(vector, stubLexicalSearcher{}),
		MentionsHandler:     handlers.NewMentionsHandler(),
		ContextHandler:      handlers.NewContextHandler(stubAssembler{}),
		ConversationHandler: handlers.NewConversationHandler(nil),
		MemoryHandler:       handlers.NewMemoryHandler(nil),
		KnowledgeHandler:    handlers.NewKnowledgeHandler(nil, nil),
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(&stubVectorSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Data["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_SemanticSearchAllowsAnonymous(t *testing.T) {
	vector := &stubVectorSearcher{lastCaller: domain.Caller{UserID: "stale"}}
	router := newTestRouter(vector)

	req := httptest.NewRequest(http.MethodPost, "/search/semantic", strings.NewReader(`{"query":"habits"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, vector.lastCaller.IsAnonymous())
}

func TestRouter_SemanticSearchResolvesToken(t *testing.T) {
	vector := &stubVectorSearcher{}
	router := newTestRouter(vector)

	req := httptest.NewRequest(http.MethodPost, "/search/semantic", strings.NewReader(`{"query":"habits"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", vector.lastCaller.UserID)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(&stubVectorSearcher{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/search/entries"},
		{http.MethodPost, "/mentions/extract"},
		{http.MethodPost, "/context/assemble"},
		{http.MethodPost, "/conversations"},
		{http.MethodGet, "/memories"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req := httptest.NewRequest(p.method, p.path, strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRouter_AuthedMentionsExtract(t *testing.T) {
	router := newTestRouter(&stubVectorSearcher{})

	req := httptest.NewRequest(http.MethodPost, "/mentions/extract", strings.NewReader(`{"text":"hi @dana"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
