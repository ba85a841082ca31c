package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/clearpath-coaching/hugoctx/internal/api"
	"github.com/clearpath-coaching/hugoctx/internal/api/middleware"
	"github.com/clearpath-coaching/hugoctx/internal/domain"
	"github.com/clearpath-coaching/hugoctx/internal/service"
)

type AssemblerService interface {
	Assemble(ctx context.Context, caller domain.Caller, input service.AssembleInput) (*service.ContextPayload, error)
}

type ContextHandler struct {
	svc AssemblerService
}

func NewContextHandler(svc AssemblerService) *ContextHandler {
	return &ContextHandler{svc: svc}
}

type AssembleRequest struct {
	ApplicationID   string `json:"application_id"`
	RecentTurnLimit int    `json:"recent_turn_limit,omitempty"`
	KnowledgeQuery  string `json:"knowledge_query,omitempty"`
	KnowledgeStage  string `json:"knowledge_stage,omitempty"`
}

type ApplicationResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Config      map[string]any `json:"config,omitempty"`
	Personality map[string]any `json:"personality,omitempty"`
}

type TurnResponse struct {
	ID             string   `json:"id"`
	Role           string   `json:"role"`
	Content        string   `json:"content"`
	Tone           string   `json:"tone,omitempty"`
	SourceChunkIDs []string `json:"source_chunk_ids,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

type ProgressResponse struct {
	Stage      string         `json:"stage,omitempty"`
	Milestones map[string]any `json:"milestones,omitempty"`
}

type MemoryResponse struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Content    string  `json:"content"`
	Importance float32 `json:"importance"`
	CreatedAt  string  `json:"created_at"`
}

type AssembleResponse struct {
	Application      *ApplicationResponse   `json:"application,omitempty"`
	KnowledgeBaseIDs []string               `json:"knowledge_base_ids,omitempty"`
	RecentTurns      []*TurnResponse        `json:"recent_turns"`
	Progress         *ProgressResponse      `json:"progress,omitempty"`
	Memories         []*MemoryResponse      `json:"memories"`
	ChunkResults     []*ChunkResultResponse `json:"chunk_results,omitempty"`
	EntryResults     []*EntryResultResponse `json:"entry_results,omitempty"`
	Partial          bool                   `json:"partial"`
	DegradedFacets   []string               `json:"degraded_facets,omitempty"`
}

// Assemble builds the bounded context payload for the caller's next turn.
func (h *ContextHandler) Assemble(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	if caller.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AssembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ApplicationID == "" {
		api.Error(w, http.StatusBadRequest, "application_id is required")
		return
	}

	payload, err := h.svc.Assemble(r.Context(), caller, service.AssembleInput{
		ApplicationID:   req.ApplicationID,
		UserID:          caller.UserID,
		RecentTurnLimit: req.RecentTurnLimit,
		KnowledgeQuery:  req.KnowledgeQuery,
		KnowledgeStage:  req.KnowledgeStage,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, assembleResponse(payload))
}

func assembleResponse(payload *service.ContextPayload) AssembleResponse {
	resp := AssembleResponse{
		KnowledgeBaseIDs: payload.KnowledgeBaseIDs,
		RecentTurns:      make([]*TurnResponse, len(payload.RecentTurns)),
		Memories:         make([]*MemoryResponse, len(payload.Memories)),
		ChunkResults:     chunkResults(payload.ChunkResults),
		Partial:          payload.Partial,
		DegradedFacets:   payload.DegradedFacets,
	}

	if app := payload.Application; app != nil {
		resp.Application = &ApplicationResponse{
			ID:     app.ID,
			Name:   app.Name,
			Config: app.Config,
		}
		if app.Personality != nil {
			resp.Application.Personality = app.Personality.Schema
		}
	}

	for i, turn := range payload.RecentTurns {
		resp.RecentTurns[i] = &TurnResponse{
			ID:             turn.ID,
			Role:           string(turn.Role),
			Content:        turn.Content,
			Tone:           turn.Tone,
			SourceChunkIDs: turn.SourceChunkIDs,
			CreatedAt:      turn.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	if progress := payload.Progress; progress != nil && progress.Stage != "" {
		resp.Progress = &ProgressResponse{
			Stage:      progress.Stage,
			Milestones: progress.Milestones,
		}
	}

	for i, memory := range payload.Memories {
		resp.Memories[i] = &MemoryResponse{
			ID:         memory.ID,
			Kind:       string(memory.Kind),
			Content:    memory.Content,
			Importance: memory.Importance,
			CreatedAt:  memory.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	if len(payload.EntryResults) > 0 {
		resp.EntryResults = make([]*EntryResultResponse, len(payload.EntryResults))
		for i, result := range payload.EntryResults {
			resp.EntryResults[i] = &EntryResultResponse{
				ID:              result.Entry.ID,
				KnowledgeBaseID: result.Entry.KnowledgeBaseID,
				Title:           result.Entry.Title,
				Category:        result.Entry.Category,
				Tags:            result.Entry.Tags,
				Snippet:         snippet(result.Entry.Content, 280),
				Relevance:       result.Relevance,
			}
		}
	}

	return resp
}
