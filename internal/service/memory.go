package service

import (
	"context"
	"log"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/authz"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/telemetry"
	"github.com/google/uuid"
)

// DefaultRecallLimit bounds how many memories a recall returns.
const DefaultRecallLimit = 20

// MemoryRepository defines the repository interface for decaying user
// memories.
type MemoryRepository interface {
	Create(ctx context.Context, m *domain.UserMemory) error
	ListActive(ctx context.Context, userID, applicationID string, limit int) ([]*domain.UserMemory, error)
	DecayInactive(ctx context.Context, threshold time.Duration) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id, userID string) error
}

// MemoryService manages per-user memories: recording, tenant-scoped recall,
// and the periodic decay pass. Reads do not reinforce importance.
type MemoryService struct {
	repo MemoryRepository
	auth authz.Authorizer
}

func NewMemoryService(repo MemoryRepository, auth authz.Authorizer) *MemoryService {
	return &MemoryService{
		repo: repo,
		auth: auth,
	}
}

// Record validates and stores a memory owned by the caller.
func (s *MemoryService) Record(ctx context.Context, caller domain.Caller, m *domain.UserMemory) error {
	ctx, span := telemetry.StartSpan(ctx, "MemoryService.Record", telemetry.SpanAttributes{
		UserID:        caller.UserID,
		ApplicationID: m.ApplicationID,
		Operation:     "memory_record",
	})
	defer span.End()

	if err := s.auth.Authorize(caller, m.UserID); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return s.repo.Create(ctx, m)
}

// Recall returns the caller's memories ordered by importance descending,
// excluding expired ones.
func (s *MemoryService) Recall(ctx context.Context, caller domain.Caller, userID, applicationID string, limit int) ([]*domain.UserMemory, error) {
	ctx, span := telemetry.StartSpan(ctx, "MemoryService.Recall", telemetry.SpanAttributes{
		UserID:        userID,
		ApplicationID: applicationID,
		Operation:     "memory_recall",
	})
	defer span.End()

	if err := s.auth.Authorize(caller, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultRecallLimit {
		limit = DefaultRecallLimit
	}
	return s.repo.ListActive(ctx, userID, applicationID, limit)
}

// Forget deletes one memory owned by the caller.
func (s *MemoryService) Forget(ctx context.Context, caller domain.Caller, id, userID string) error {
	if err := s.auth.Authorize(caller, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id, userID)
}

// RunDecay applies one decay pass over inactive memories and removes expired
// ones. Safe to re-invoke; a repeat run within the same inactivity window is
// a no-op for already-decayed rows.
func (s *MemoryService) RunDecay(ctx context.Context, inactivityThreshold time.Duration) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "MemoryService.RunDecay", telemetry.SpanAttributes{
		Operation: "memory_decay",
	})
	defer span.End()

	decayed, err := s.repo.DecayInactive(ctx, inactivityThreshold)
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	deleted, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		// Decay already applied; report it and surface the cleanup error.
		span.SetError(err)
		return decayed, err
	}
	if deleted > 0 {
		log.Printf("memory decay: removed %d expired memories", deleted)
	}

	return decayed, nil
}
