package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/authz"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Facet stubs use function fields so individual tests can make one lookup
// fail or stall without redefining the rest.
type stubApps struct {
	getApplication func(ctx context.Context, id string) (*domain.Application, error)
	listKBs        func(ctx context.Context, applicationID string) ([]string, error)
	getProgress    func(ctx context.Context, userID, applicationID string) (*domain.UserProgress, error)
}

func (s *stubApps) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	if s.getApplication != nil {
		return s.getApplication(ctx, id)
	}
	return &domain.Application{ID: id, Name: "hugo", IsActive: true}, nil
}

func (s *stubApps) ListKnowledgeBaseIDs(ctx context.Context, applicationID string) ([]string, error) {
	if s.listKBs != nil {
		return s.listKBs(ctx, applicationID)
	}
	return []string{"kb1"}, nil
}

func (s *stubApps) GetProgress(ctx context.Context, userID, applicationID string) (*domain.UserProgress, error) {
	if s.getProgress != nil {
		return s.getProgress(ctx, userID, applicationID)
	}
	return &domain.UserProgress{UserID: userID, ApplicationID: applicationID, Stage: "foundation"}, nil
}

type stubTurns struct {
	list func(ctx context.Context, userID, applicationID string, limit int) ([]*domain.Message, error)
}

func (s *stubTurns) ListRecentMessages(ctx context.Context, userID, applicationID string, limit int) ([]*domain.Message, error) {
	if s.list != nil {
		return s.list(ctx, userID, applicationID, limit)
	}
	return []*domain.Message{{ID: "m1", Role: domain.RoleUser, Content: "hello"}}, nil
}

type stubMemories struct {
	list func(ctx context.Context, userID, applicationID string, limit int) ([]*domain.UserMemory, error)
}

func (s *stubMemories) ListActive(ctx context.Context, userID, applicationID string, limit int) ([]*domain.UserMemory, error) {
	if s.list != nil {
		return s.list(ctx, userID, applicationID, limit)
	}
	return []*domain.UserMemory{{ID: "mem1", UserID: userID, Importance: 0.9}}, nil
}

type stubVector struct {
	search func(ctx context.Context, caller domain.Caller, text, stage string, topK int) ([]*domain.ChunkSearchResult, error)
	called bool
}

func (s *stubVector) SearchText(ctx context.Context, caller domain.Caller, text, stage string, topK int) ([]*domain.ChunkSearchResult, error) {
	s.called = true
	if s.search != nil {
		return s.search(ctx, caller, text, stage, topK)
	}
	return []*domain.ChunkSearchResult{chunkResult("c1", 0.9)}, nil
}

type stubLexical struct {
	search func(ctx context.Context, query, applicationID string, k int) ([]*domain.EntrySearchResult, error)
	called bool
}

func (s *stubLexical) Search(ctx context.Context, query, applicationID string, k int) ([]*domain.EntrySearchResult, error) {
	s.called = true
	if s.search != nil {
		return s.search(ctx, query, applicationID, k)
	}
	return []*domain.EntrySearchResult{entryResult("e1", 0.7)}, nil
}

func newTestAssembler(apps *stubApps, turns *stubTurns, memories *stubMemories, vector *stubVector, lexical *stubLexical, cfg AssemblerConfig) *ContextAssembler {
	return NewContextAssembler(apps, turns, memories, vector, lexical, authz.NewOwnerAuthorizer(), cfg)
}

func TestAssemble_AllFacets(t *testing.T) {
	vector := &stubVector{}
	lexical := &stubLexical{}
	assembler := newTestAssembler(&stubApps{}, &stubTurns{}, &stubMemories{}, vector, lexical, AssemblerConfig{})

	payload, err := assembler.Assemble(context.Background(), domain.Caller{UserID: "u1"}, AssembleInput{
		ApplicationID:  "app1",
		UserID:         "u1",
		KnowledgeQuery: "goal setting",
	})

	require.NoError(t, err)
	assert.False(t, payload.Partial)
	assert.Empty(t, payload.DegradedFacets)
	assert.NotNil(t, payload.Application)
	assert.Equal(t, []string{"kb1"}, payload.KnowledgeBaseIDs)
	assert.Len(t, payload.RecentTurns, 1)
	assert.Equal(t, "foundation", payload.Progress.Stage)
	assert.Len(t, payload.Memories, 1)
	assert.Len(t, payload.ChunkResults, 1)
	assert.Len(t, payload.EntryResults, 1)
}

func TestAssemble_SkipsKnowledgeWithoutQuery(t *testing.T) {
	vector := &stubVector{}
	lexical := &stubLexical{}
	assembler := newTestAssembler(&stubApps{}, &stubTurns{}, &stubMemories{}, vector, lexical, AssemblerConfig{})

	payload, err := assembler.Assemble(context.Background(), domain.Caller{UserID: "u1"}, AssembleInput{
		ApplicationID: "app1",
		UserID:        "u1",
	})

	require.NoError(t, err)
	assert.False(t, payload.Partial)
	assert.False(t, vector.called)
	assert.False(t, lexical.called)
	assert.Nil(t, payload.ChunkResults)
	assert.Nil(t, payload.EntryResults)
}

func TestAssemble_FailedFacetDegrades(t *testing.T) {
	apps := &stubApps{
		getApplication: func(ctx context.Context, id string) (*domain.Application, error) {
			return nil, domain.ErrApplicationNotFound
		},
	}
	assembler := newTestAssembler(apps, &stubTurns{}, &stubMemories{}, &stubVector{}, &stubLexical{}, AssemblerConfig{})

	payload, err := assembler.Assemble(context.Background(), domain.Caller{UserID: "u1"}, AssembleInput{
		ApplicationID: "missing",
		UserID:        "u1",
	})

	require.NoError(t, err)
	assert.True(t, payload.Partial)
	assert.Contains(t, payload.DegradedFacets, FacetApplication)
	assert.Nil(t, payload.Application)
	// The rest of the payload is still served.
	assert.Len(t, payload.RecentTurns, 1)
	assert.Len(t, payload.Memories, 1)
}

func TestAssemble_SlowFacetDegrades(t *testing.T) {
	memories := &stubMemories{
		list: func(ctx context.Context, userID, applicationID string, limit int) ([]*domain.UserMemory, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	assembler := newTestAssembler(&stubApps{}, &stubTurns{}, memories, &stubVector{}, &stubLexical{}, AssemblerConfig{
		FacetTimeout:   30 * time.Millisecond,
		OverallTimeout: 500 * time.Millisecond,
	})

	payload, err := assembler.Assemble(context.Background(), domain.Caller{UserID: "u1"}, AssembleInput{
		ApplicationID: "app1",
		UserID:        "u1",
	})

	require.NoError(t, err)
	assert.True(t, payload.Partial)
	assert.Equal(t, []string{FacetMemories}, payload.DegradedFacets)
	assert.Nil(t, payload.Memories)
	assert.NotNil(t, payload.Application)
}

func TestAssemble_OverallDeadline(t *testing.T) {
	stall := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	apps := &stubApps{
		getApplication: func(ctx context.Context, id string) (*domain.Application, error) {
			return nil, stall(ctx)
		},
	}
	turns := &stubTurns{
		list: func(ctx context.Context, userID, applicationID string, limit int) ([]*domain.Message, error) {
			return nil, stall(ctx)
		},
	}
	memories := &stubMemories{
		list: func(ctx context.Context, userID, applicationID string, limit int) ([]*domain.UserMemory, error) {
			return nil, stall(ctx)
		},
	}
	assembler := newTestAssembler(apps, turns, memories, &stubVector{}, &stubLexical{}, AssemblerConfig{
		FacetTimeout:   500 * time.Millisecond,
		OverallTimeout: 20 * time.Millisecond,
	})

	_, err := assembler.Assemble(context.Background(), domain.Caller{UserID: "u1"}, AssembleInput{
		ApplicationID: "app1",
		UserID:        "u1",
	})

	assert.ErrorIs(t, err, domain.ErrAssemblyDeadline)
}

func TestAssemble_FailsClosedOnAuthorization(t *testing.T) {
	assembler := newTestAssembler(&stubApps{}, &stubTurns{}, &stubMemories{}, &stubVector{}, &stubLexical{}, AssemblerConfig{})

	_, err := assembler.Assemble(context.Background(), domain.Caller{}, AssembleInput{
		ApplicationID: "app1",
		UserID:        "u1",
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = assembler.Assemble(context.Background(), domain.Caller{UserID: "u2"}, AssembleInput{
		ApplicationID: "app1",
		UserID:        "u1",
	})
	assert.ErrorIs(t, err, domain.ErrCrossTenantRead)
}

func TestAssemble_RequiresApplicationID(t *testing.T) {
	assembler := newTestAssembler(&stubApps{}, &stubTurns{}, &stubMemories{}, &stubVector{}, &stubLexical{}, AssemblerConfig{})

	_, err := assembler.Assemble(context.Background(), domain.Caller{UserID: "u1"}, AssembleInput{
		UserID: "u1",
	})

	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestAssemble_FacetErrorDoesNotFailTurn(t *testing.T) {
	lexical := &stubLexical{
		search: func(ctx context.Context, query, applicationID string, k int) ([]*domain.EntrySearchResult, error) {
			return nil, errors.New("index rebuild in progress")
		},
	}
	assembler := newTestAssembler(&stubApps{}, &stubTurns{}, &stubMemories{}, &stubVector{}, lexical, AssemblerConfig{})

	payload, err := assembler.Assemble(context.Background(), domain.Caller{UserID: "u1"}, AssembleInput{
		ApplicationID:  "app1",
		UserID:         "u1",
		KnowledgeQuery: "habits",
	})

	require.NoError(t, err)
	assert.True(t, payload.Partial)
	assert.Contains(t, payload.DegradedFacets, FacetKnowledge)
}
