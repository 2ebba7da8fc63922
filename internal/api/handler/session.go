package handler

import (
	"net/http"

	"github.com/cxlinux-ai/supportbot/internal/api/response"
	"github.com/cxlinux-ai/supportbot/internal/memory"
	"github.com/go-chi/chi/v5"
)

// SessionHandler handles conversation session endpoints
type SessionHandler struct {
	memory *memory.Manager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(mem *memory.Manager) *SessionHandler {
	return &SessionHandler{memory: mem}
}

// Get returns the current conversation state for a channel/identity pair
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	identityID := chi.URLParam(r, "identityID")
	if channelID == "" || identityID == "" {
		response.BadRequest(w, "missing channel or identity ID")
		return
	}

	session := h.memory.Load(r.Context(), channelID, identityID)
	response.OK(w, session)
}

// Delete clears the conversation state for a channel/identity pair
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	identityID := chi.URLParam(r, "identityID")
	if channelID == "" || identityID == "" {
		response.BadRequest(w, "missing channel or identity ID")
		return
	}

	if err := h.memory.Clear(r.Context(), channelID, identityID); err != nil {
		response.InternalError(w, err.Error())
		return
	}

	response.NoContent(w)
}
