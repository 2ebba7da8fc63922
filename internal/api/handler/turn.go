package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cxlinux-ai/supportbot/internal/agent"
	"github.com/cxlinux-ai/supportbot/internal/api/response"
	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// TurnHandler handles conversation turn endpoints
type TurnHandler struct {
	orchestrator *agent.Orchestrator
}

// NewTurnHandler creates a new turn handler
func NewTurnHandler(orchestrator *agent.Orchestrator) *TurnHandler {
	return &TurnHandler{orchestrator: orchestrator}
}

// Answer runs one question through the full pipeline
func (h *TurnHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var turn domain.TurnInput
	if err := json.NewDecoder(r.Body).Decode(&turn); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(turn); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.orchestrator.Answer(r.Context(), turn)
	if err != nil {
		if errors.Is(err, agent.ErrQuotaExceeded) {
			response.Error(w, http.StatusTooManyRequests, "daily question limit reached, try again tomorrow")
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.OK(w, result)
}
