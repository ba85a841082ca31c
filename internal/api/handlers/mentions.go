package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/clearpath-coaching/hugoctx/internal/api"
	"github.com/clearpath-coaching/hugoctx/internal/mentions"
)

type MentionsHandler struct{}

func NewMentionsHandler() *MentionsHandler {
	return &MentionsHandler{}
}

type ExtractMentionsRequest struct {
	Text string `json:"text"`
}

type ExtractMentionsResponse struct {
	Mentions []string `json:"mentions"`
}

// Extract returns the distinct mention tokens found in a message body.
func (h *MentionsHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractMentionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	found, err := mentions.Extract(req.Text)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ExtractMentionsResponse{Mentions: found})
}
