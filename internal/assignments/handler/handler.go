package handler

import (
	"net/http"

	"jury_portal_backend/internal/assignments/service"
	"jury_portal_backend/internal/assignments/transport"
	"jury_portal_backend/platform/httpkit"
	"jury_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for assignments and meetings.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the meetings view on protected and mutations on manager.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup, manager *gin.RouterGroup) {
	protected.GET("/meetings", h.Meetings)
	protected.GET("/assignments/:id", h.GetByID)

	manager.POST("/invitations/:id/match", h.ApplyMatch)
	manager.POST("/assignments/:id/complete", h.Complete)
	manager.PATCH("/assignments/:id/status", h.UpdateStatus)
}

// Meetings handles GET /api/v1/meetings
func (h *Handler) Meetings(c *gin.Context) {
	var req transport.MeetingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if scope := identity.JurorScope(); scope != nil {
		req.JurorID = scope
	}

	view, err := h.svc.Meetings(c.Request.Context(), service.MeetingsFilter{
		RoundName: req.RoundName,
		StartupID: req.StartupID,
		JurorID:   req.JurorID,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToMeetingViewResponse(view))
}

// GetByID handles GET /api/v1/assignments/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if !identity.IsManager() && a.JurorID != identity.UserID() {
		httpkit.Error(c, http.StatusNotFound, "assignment not found", nil)
		return
	}
	httpkit.OK(c, transport.ToAssignmentResponse(a))
}

// ApplyMatch handles POST /api/v1/invitations/:id/match
func (h *Handler) ApplyMatch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.ApplyMatchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	a, err := h.svc.ApplyMatch(c.Request.Context(), id, req.StartupID, req.JurorID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAssignmentResponse(a))
}

// Complete handles POST /api/v1/assignments/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.CompleteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Complete(c.Request.Context(), id, req.Notes, req.Version)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAssignmentResponse(a))
}

// UpdateStatus handles PATCH /api/v1/assignments/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	a, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status, req.Version)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAssignmentResponse(a))
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
