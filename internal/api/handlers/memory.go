package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clearpath-coaching/hugoctx/internal/api"
	"github.com/clearpath-coaching/hugoctx/internal/api/middleware"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
)

type MemoryManager interface {
	Record(ctx context.Context, caller domain.Caller, m *domain.UserMemory) error
	Recall(ctx context.Context, caller domain.Caller, userID, applicationID string, limit int) ([]*domain.UserMemory, error)
	Forget(ctx context.Context, caller domain.Caller, id, userID string) error
}

type MemoryHandler struct {
	svc MemoryManager
}

func NewMemoryHandler(svc MemoryManager) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type RecordMemoryRequest struct {
	ApplicationID  string  `json:"application_id"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Kind           string  `json:"kind"`
	Content        string  `json:"content"`
	Importance     float32 `json:"importance"`
	DecayRate      float32 `json:"decay_rate"`
	ExpiresAt      string  `json:"expires_at,omitempty"`
}

type RecordedMemoryResponse struct {
	ID string `json:"id"`
}

type RecalledMemoryResponse struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	Content        string  `json:"content"`
	Importance     float32 `json:"importance"`
	DecayRate      float32 `json:"decay_rate"`
	CreatedAt      string  `json:"created_at"`
	LastAccessedAt string  `json:"last_accessed_at,omitempty"`
	ExpiresAt      string  `json:"expires_at,omitempty"`
}

type RecallMemoriesResponse struct {
	Memories []*RecalledMemoryResponse `json:"memories"`
}

// Record stores a memory owned by the caller.
func (h *MemoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	var req RecordMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	memory := &domain.UserMemory{
		UserID:         caller.UserID,
		ApplicationID:  req.ApplicationID,
		ConversationID: req.ConversationID,
		Kind:           domain.MemoryKind(req.Kind),
		Content:        req.Content,
		Importance:     req.Importance,
		DecayRate:      req.DecayRate,
	}
	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "expires_at must be RFC 3339")
			return
		}
		memory.ExpiresAt = &expiresAt
	}

	if err := h.svc.Record(r.Context(), caller, memory); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, RecordedMemoryResponse{ID: memory.ID})
}

// Recall returns the caller's active memories, importance descending.
func (h *MemoryHandler) Recall(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	applicationID := r.URL.Query().Get("application_id")
	if applicationID == "" {
		api.Error(w, http.StatusBadRequest, "application_id is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	memories, err := h.svc.Recall(r.Context(), caller, caller.UserID, applicationID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*RecalledMemoryResponse, len(memories))
	for i, memory := range memories {
		responses[i] = &RecalledMemoryResponse{
			ID:         memory.ID,
			Kind:       string(memory.Kind),
			Content:    memory.Content,
			Importance: memory.Importance,
			DecayRate:  memory.DecayRate,
			CreatedAt:  memory.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if !memory.LastAccessedAt.IsZero() {
			responses[i].LastAccessedAt = memory.LastAccessedAt.UTC().Format(time.RFC3339Nano)
		}
		if memory.ExpiresAt != nil {
			responses[i].ExpiresAt = memory.ExpiresAt.UTC().Format(time.RFC3339Nano)
		}
	}

	api.Success(w, http.StatusOK, RecallMemoriesResponse{Memories: responses})
}

// Forget deletes one memory owned by the caller.
func (h *MemoryHandler) Forget(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.svc.Forget(r.Context(), caller, id, caller.UserID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]any{"status": "deleted"})
}
