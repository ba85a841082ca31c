package service

import (
	"context"
	"testing"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/authz"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMemoryRepository is a mock implementation of MemoryRepository
type MockMemoryRepository struct {
	mock.Mock
}

func (m *MockMemoryRepository) Create(ctx context.Context, memory *domain.UserMemory) error {
	args := m.Called(ctx, memory)
	return args.Error(0)
}

func (m *MockMemoryRepository) ListActive(ctx context.Context, userID, applicationID string, limit int) ([]*domain.UserMemory, error) {
	args := m.Called(ctx, userID, applicationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UserMemory), args.Error(1)
}

func (m *MockMemoryRepository) DecayInactive(ctx context.Context, threshold time.Duration) (int64, error) {
	args := m.Called(ctx, threshold)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMemoryRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMemoryRepository) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func validMemory(userID string) *domain.UserMemory {
	return &domain.UserMemory{
		UserID:        userID,
		ApplicationID: "app1",
		Kind:          domain.MemoryKindPreference,
		Content:       "prefers morning sessions",
		Importance:    0.8,
		DecayRate:     0.05,
	}
}

func TestMemoryRecord_AssignsID(t *testing.T) {
	repo := new(MockMemoryRepository)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.UserMemory")).Return(nil)

	svc := NewMemoryService(repo, authz.NewOwnerAuthorizer())
	memory := validMemory("u1")

	err := svc.Record(context.Background(), domain.Caller{UserID: "u1"}, memory)

	require.NoError(t, err)
	assert.NotEmpty(t, memory.ID)
	repo.AssertExpectations(t)
}

func TestMemoryRecord_RejectsAnonymous(t *testing.T) {
	repo := new(MockMemoryRepository)
	svc := NewMemoryService(repo, authz.NewOwnerAuthorizer())

	err := svc.Record(context.Background(), domain.Caller{}, validMemory("u1"))

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	repo.AssertNotCalled(t, "Create")
}

func TestMemoryRecord_RejectsCrossTenant(t *testing.T) {
	repo := new(MockMemoryRepository)
	svc := NewMemoryService(repo, authz.NewOwnerAuthorizer())

	err := svc.Record(context.Background(), domain.Caller{UserID: "u2"}, validMemory("u1"))

	assert.ErrorIs(t, err, domain.ErrCrossTenantRead)
	repo.AssertNotCalled(t, "Create")
}

func TestMemoryRecord_ValidatesKind(t *testing.T) {
	repo := new(MockMemoryRepository)
	svc := NewMemoryService(repo, authz.NewOwnerAuthorizer())

	memory := validMemory("u1")
	memory.Kind = "rumor"

	err := svc.Record(context.Background(), domain.Caller{UserID: "u1"}, memory)

	assert.ErrorIs(t, err, domain.ErrInvalidMemoryKind)
}

func TestMemoryRecall_ClampsLimit(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		expected  int
	}{
		{"zero uses default", 0, DefaultRecallLimit},
		{"oversized is clamped", 500, DefaultRecallLimit},
		{"in range passes through", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockMemoryRepository)
			repo.On("ListActive", mock.Anything, "u1", "app1", tt.expected).
				Return([]*domain.UserMemory{}, nil)

			svc := NewMemoryService(repo, authz.NewOwnerAuthorizer())
			_, err := svc.Recall(context.Background(), domain.Caller{UserID: "u1"}, "u1", "app1", tt.requested)

			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestMemoryRecall_RejectsCrossTenant(t *testing.T) {
	repo := new(MockMemoryRepository)
	svc := NewMemoryService(repo, authz.NewOwnerAuthorizer())

	_, err := svc.Recall(context.Background(), domain.Caller{UserID: "u2"}, "u1", "app1", 5)

	assert.ErrorIs(t, err, domain.ErrCrossTenantRead)
	repo.AssertNotCalled(t, "ListActive")
}

func TestMemoryForget_ScopedToOwner(t *testing.T) {
	repo := new(MockMemoryRepository)
	repo.On("Delete", mock.Anything, "m1", "u1").Return(nil)

	svc := NewMemoryService(repo, authz.NewOwnerAuthorizer())
	err := svc.Forget(context.Background(), domain.Caller{UserID: "u1"}, "m1", "u1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRunDecay_DecaysAndCleansUp(t *testing.T) {
	repo := new(MockMemoryRepository)
	repo.On("DecayInactive", mock.Anything, 720*time.Hour).Return(int64(12), nil)
	repo.On("DeleteExpired", mock.Anything).Return(int64(3), nil)

	svc := NewMemoryService(repo, authz.NewOwnerAuthorizer())
	decayed, err := svc.RunDecay(context.Background(), 720*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(12), decayed)
	repo.AssertExpectations(t)
}
