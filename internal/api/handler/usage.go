package handler

import (
	"net/http"

	"github.com/cxlinux-ai/supportbot/internal/api/response"
	"github.com/cxlinux-ai/supportbot/internal/quota"
	"github.com/go-chi/chi/v5"
)

// UsageHandler handles quota inspection endpoints
type UsageHandler struct {
	limiter *quota.Limiter
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(limiter *quota.Limiter) *UsageHandler {
	return &UsageHandler{limiter: limiter}
}

// Get returns how many questions an identity has left today
func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	identityID := chi.URLParam(r, "identityID")
	if identityID == "" {
		response.BadRequest(w, "missing identity ID")
		return
	}

	privileged := r.URL.Query().Get("privileged") == "true"
	remaining := h.limiter.Remaining(r.Context(), identityID, privileged)

	body := map[string]any{
		"identity_id": identityID,
		"remaining":   remaining,
	}
	if remaining == quota.Unlimited {
		body["remaining"] = "unlimited"
	}

	response.OK(w, body)
}
