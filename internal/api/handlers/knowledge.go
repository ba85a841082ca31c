package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clearpath-coaching/hugoctx/internal/api"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/pagination"
)

const defaultEntryPageSize = 25

type EntryStore interface {
	Create(ctx context.Context, e *domain.KnowledgeEntry) error
	Update(ctx context.Context, e *domain.KnowledgeEntry) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string, cursor *pagination.Cursor, limit int) ([]*domain.KnowledgeEntry, error)
}

// EntryAccessRecorder queues access-count side effects for read entries.
type EntryAccessRecorder interface {
	Enqueue(ids []string)
}

type KnowledgeHandler struct {
	entries EntryStore
	touches EntryAccessRecorder
}

func NewKnowledgeHandler(entries EntryStore, touches EntryAccessRecorder) *KnowledgeHandler {
	return &KnowledgeHandler{entries: entries, touches: touches}
}

type UpsertEntryRequest struct {
	KnowledgeBaseID string   `json:"knowledge_base_id"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Category        string   `json:"category,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

type EntryResponse struct {
	ID              string   `json:"id"`
	KnowledgeBaseID string   `json:"knowledge_base_id"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Category        string   `json:"category,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	AccessCount     int64    `json:"access_count"`
	LastAccessedAt  string   `json:"last_accessed_at,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type EntryListResponse struct {
	Items   []*EntryResponse `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

// Create stores a new knowledge entry. The lexical index is regenerated in
// the same statement, so the entry is searchable as soon as the call
// returns.
func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now().UTC()
	entry := &domain.KnowledgeEntry{
		ID:              uuid.NewString(),
		KnowledgeBaseID: req.KnowledgeBaseID,
		Title:           req.Title,
		Content:         req.Content,
		Category:        req.Category,
		Tags:            req.Tags,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := entry.Validate(); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.entries.Create(r.Context(), entry); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, entryResponse(entry))
}

// Update rewrites an existing entry's content and metadata.
func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpsertEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry := &domain.KnowledgeEntry{
		ID:              id,
		KnowledgeBaseID: req.KnowledgeBaseID,
		Title:           req.Title,
		Content:         req.Content,
		Category:        req.Category,
		Tags:            req.Tags,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := entry.Validate(); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.entries.Update(r.Context(), entry); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryResponse(entry))
}

// Get returns one entry by ID. A direct read counts as an access, through
// the same deferred touch path search results use.
func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.entries.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if h.touches != nil {
		h.touches.Enqueue([]string{entry.ID})
	}

	api.Success(w, http.StatusOK, entryResponse(entry))
}

// List pages through a knowledge base's entries, newest first, with keyset
// cursors.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	knowledgeBaseID := chi.URLParam(r, "id")

	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = defaultEntryPageSize
	}

	entries, err := h.entries.ListByKnowledgeBase(r.Context(), knowledgeBaseID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	items := make([]*EntryResponse, len(entries))
	for i, entry := range entries {
		items[i] = entryResponse(entry)
	}

	nextCursor := ""
	if hasMore {
		last := entries[len(entries)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UpdatedAt)
	}

	api.Success(w, http.StatusOK, EntryListResponse{
		Items:   items,
		Cursor:  nextCursor,
		HasMore: hasMore,
	})
}

func entryResponse(entry *domain.KnowledgeEntry) *EntryResponse {
	resp := &EntryResponse{
		ID:              entry.ID,
		KnowledgeBaseID: entry.KnowledgeBaseID,
		Title:           entry.Title,
		Content:         entry.Content,
		Category:        entry.Category,
		Tags:            entry.Tags,
		AccessCount:     entry.AccessCount,
		CreatedAt:       entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       entry.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if entry.LastAccessedAt != nil {
		resp.LastAccessedAt = entry.LastAccessedAt.UTC().Format(time.RFC3339Nano)
	}
	return resp
}
