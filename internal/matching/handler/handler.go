package handler

import (
	"net/http"

	"jury_portal_backend/internal/matching/domain"
	"jury_portal_backend/internal/matching/service"
	"jury_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SuggestionsResponse is returned by the suggestions endpoint. Warning
// carries the AI stage failure while rule-based suggestions are still shown.
type SuggestionsResponse struct {
	Suggestions []domain.MatchSuggestion `json:"suggestions"`
	AIInvoked   bool                     `json:"aiInvoked"`
	Warning     string                   `json:"warning,omitempty"`
}

// Handler handles match suggestion requests.
type Handler struct {
	svc *service.Service
}

// New creates a new matching handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the matching routes on the invitations group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/suggestions", h.Suggest)
}

// Suggest handles POST /api/v1/invitations/:id/suggestions
func (h *Handler) Suggest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	result, err := h.svc.Suggest(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := SuggestionsResponse{Suggestions: result.Suggestions, AIInvoked: result.AIInvoked}
	if resp.Suggestions == nil {
		resp.Suggestions = []domain.MatchSuggestion{}
	}
	if result.Err != nil {
		resp.Warning = result.Err.Message
	}
	httpkit.OK(c, resp)
}
