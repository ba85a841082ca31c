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

type ConversationManager interface {
	StartConversation(ctx context.Context, caller domain.Caller, applicationID, title string) (*domain.Conversation, error)
	Append(ctx context.Context, caller domain.Caller, m *domain.Message) (*domain.Message, error)
	RecentTurns(ctx context.Context, caller domain.Caller, userID, applicationID string, limit int) ([]*domain.Message, error)
}

type ConversationHandler struct {
	svc ConversationManager
}

func NewConversationHandler(svc ConversationManager) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type StartConversationRequest struct {
	ApplicationID string `json:"application_id"`
	Title         string `json:"title,omitempty"`
}

type ConversationResponse struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	ApplicationID string `json:"application_id"`
	Title         string `json:"title,omitempty"`
	MessageCount  int    `json:"message_count"`
	LastMessageAt string `json:"last_message_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type AppendMessageRequest struct {
	Role           string   `json:"role"`
	Content        string   `json:"content"`
	Tone           string   `json:"tone,omitempty"`
	SourceChunkIDs []string `json:"source_chunk_ids,omitempty"`
}

type RecentTurnsResponse struct {
	Messages []*TurnResponse `json:"messages"`
}

// Start creates a conversation owned by the caller.
func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	var req StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ApplicationID == "" {
		api.Error(w, http.StatusBadRequest, "application_id is required")
		return
	}

	conv, err := h.svc.StartConversation(r.Context(), caller, req.ApplicationID, req.Title)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, conversationResponse(conv))
}

// Append adds a turn to an existing conversation. The turn insert and the
// conversation's derived counters commit atomically server-side.
func (h *ConversationHandler) Append(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	conversationID := chi.URLParam(r, "id")

	var req AppendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		Role:           domain.MessageRole(req.Role),
		Content:        req.Content,
		Tone:           req.Tone,
		SourceChunkIDs: req.SourceChunkIDs,
	}

	appended, err := h.svc.Append(r.Context(), caller, msg)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, TurnResponse{
		ID:             appended.ID,
		Role:           string(appended.Role),
		Content:        appended.Content,
		Tone:           appended.Tone,
		SourceChunkIDs: appended.SourceChunkIDs,
		CreatedAt:      appended.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// Recent returns the caller's newest turns within an application, newest
// first.
func (h *ConversationHandler) Recent(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	applicationID := r.URL.Query().Get("application_id")
	if applicationID == "" {
		api.Error(w, http.StatusBadRequest, "application_id is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	turns, err := h.svc.RecentTurns(r.Context(), caller, caller.UserID, applicationID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	messages := make([]*TurnResponse, len(turns))
	for i, turn := range turns {
		messages[i] = &TurnResponse{
			ID:             turn.ID,
			Role:           string(turn.Role),
			Content:        turn.Content,
			Tone:           turn.Tone,
			SourceChunkIDs: turn.SourceChunkIDs,
			CreatedAt:      turn.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	api.Success(w, http.StatusOK, RecentTurnsResponse{Messages: messages})
}

func conversationResponse(conv *domain.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:            conv.ID,
		UserID:        conv.UserID,
		ApplicationID: conv.ApplicationID,
		Title:         conv.Title,
		MessageCount:  conv.MessageCount,
		CreatedAt:     conv.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if conv.LastMessageAt != nil {
		resp.LastMessageAt = conv.LastMessageAt.UTC().Format(time.RFC3339Nano)
	}
	return resp
}
