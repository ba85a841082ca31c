package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clearpath-coaching/hugoctx/internal/domain"
)

// MockMemoryManager is a mock implementation of MemoryManager
type MockMemoryManager struct {
	mock.Mock
}

func (m *MockMemoryManager) Record(ctx context.Context, caller domain.Caller, memory *domain.UserMemory) error {
	args := m.Called(ctx, caller, memory)
	return args.Error(0)
}

func (m *MockMemoryManager) Recall(ctx context.Context, caller domain.Caller, userID, applicationID string, limit int) ([]*domain.UserMemory, error) {
	args := m.Called(ctx, caller, userID, applicationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UserMemory), args.Error(1)
}

func (m *MockMemoryManager) Forget(ctx context.Context, caller domain.Caller, id, userID string) error {
	args := m.Called(ctx, caller, id, userID)
	return args.Error(0)
}

func TestRecordMemory(t *testing.T) {
	caller := domain.Caller{UserID: "u1", ApplicationID: "app1"}

	svc := new(MockMemoryManager)
	svc.On("Record", mock.Anything, caller, mock.Anything).
		Run(func(args mock.Arguments) {
			memory := args.Get(2).(*domain.UserMemory)
			assert.Equal(t, "u1", memory.UserID)
			assert.Equal(t, domain.MemoryKindPreference, memory.Kind)
			memory.ID = "mem1"
		}).
		Return(nil)

	handler := NewMemoryHandler(svc)
	req := postJSON(t, "/memories", RecordMemoryRequest{
		ApplicationID: "app1",
		Kind:          "preference",
		Content:       "prefers evening sessions",
		Importance:    0.6,
		DecayRate:     0.05,
	}, &caller)
	rec := httptest.NewRecorder()

	handler.Record(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data RecordedMemoryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "mem1", resp.Data.ID)
	svc.AssertExpectations(t)
}

func TestRecordMemory_InvalidExpiry(t *testing.T) {
	caller := domain.Caller{UserID: "u1"}
	handler := NewMemoryHandler(new(MockMemoryManager))
	req := postJSON(t, "/memories", RecordMemoryRequest{
		ApplicationID: "app1",
		Kind:          "preference",
		Content:       "prefers evening sessions",
		ExpiresAt:     "next tuesday",
	}, &caller)
	rec := httptest.NewRecorder()

	handler.Record(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordMemory_AnonymousRejected(t *testing.T) {
	svc := new(MockMemoryManager)
	svc.On("Record", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.ErrUnauthorized)

	handler := NewMemoryHandler(svc)
	req := postJSON(t, "/memories", RecordMemoryRequest{
		ApplicationID: "app1",
		Kind:          "preference",
		Content:       "prefers evening sessions",
	}, nil)
	rec := httptest.NewRecorder()

	handler.Record(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecallMemories(t *testing.T) {
	caller := domain.Caller{UserID: "u1"}
	expires := time.Now().UTC().Add(time.Hour)

	svc := new(MockMemoryManager)
	svc.On("Recall", mock.Anything, caller, "u1", "app1", 0).
		Return([]*domain.UserMemory{
			{
				ID:         "mem1",
				Kind:       domain.MemoryKindInsight,
				Content:    "responds well to checklists",
				Importance: 0.8,
				DecayRate:  0.1,
				CreatedAt:  time.Now().UTC(),
				ExpiresAt:  &expires,
			},
		}, nil)

	handler := NewMemoryHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/memories?application_id=app1", nil)
	req = req.WithContext(callerContext(req.Context(), caller))
	rec := httptest.NewRecorder()

	handler.Recall(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data RecallMemoriesResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Memories, 1)
	assert.Equal(t, "mem1", resp.Data.Memories[0].ID)
	assert.NotEmpty(t, resp.Data.Memories[0].ExpiresAt)
	svc.AssertExpectations(t)
}

func TestRecallMemories_RequiresApplication(t *testing.T) {
	caller := domain.Caller{UserID: "u1"}
	handler := NewMemoryHandler(new(MockMemoryManager))
	req := httptest.NewRequest(http.MethodGet, "/memories", nil)
	req = req.WithContext(callerContext(req.Context(), caller))
	rec := httptest.NewRecorder()

	handler.Recall(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgetMemory(t *testing.T) {
	caller := domain.Caller{UserID: "u1"}
	svc := new(MockMemoryManager)
	svc.On("Forget", mock.Anything, caller, "mem1", "u1").Return(nil)

	handler := NewMemoryHandler(svc)
	req := httptest.NewRequest(http.MethodDelete, "/memories/mem1", nil)
	req = req.WithContext(callerContext(req.Context(), caller))
	req = withURLParam(req, "id", "mem1")
	rec := httptest.NewRecorder()

	handler.Forget(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestForgetMemory_NotFound(t *testing.T) {
	caller := domain.Caller{UserID: "u1"}
	svc := new(MockMemoryManager)
	svc.On("Forget", mock.Anything, caller, "mem9", "u1").Return(domain.ErrMemoryNotFound)

	handler := NewMemoryHandler(svc)
	req := httptest.NewRequest(http.MethodDelete, "/memories/mem9", nil)
	req = req.WithContext(callerContext(req.Context(), caller))
	req = withURLParam(req, "id", "mem9")
	rec := httptest.NewRecorder()

	handler.Forget(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
