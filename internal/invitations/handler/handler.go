package handler

import (
	"net/http"

	"jury_portal_backend/internal/invitations/domain"
	"jury_portal_backend/internal/invitations/repository"
	"jury_portal_backend/internal/invitations/service"
	"jury_portal_backend/internal/invitations/transport"
	"jury_portal_backend/platform/httpkit"
	"jury_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	maxICSBytes         = 5 << 20
)

// Handler handles HTTP requests for calendar invitations.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new invitations handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts read routes on rg and mutating routes on manager.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, manager *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/buckets", h.ListBuckets)
	rg.GET("/:id", h.GetByID)

	manager.GET("/buckets/counts", h.BucketCounts)
	manager.POST("/ingest", h.Ingest)
	manager.POST("/:id/transition", h.Transition)
}

// List handles GET /api/v1/invitations
func (h *Handler) List(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	items, err := h.svc.List(c.Request.Context(), toFilter(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToResponses(items, displayContext(c, req.Context)))
}

// ListBuckets handles GET /api/v1/invitations/buckets
func (h *Handler) ListBuckets(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	groups, err := h.svc.ListBuckets(c.Request.Context(), toFilter(req))
	if httpkit.HandleError(c, err) {
		return
	}

	dc := displayContext(c, req.Context)
	resp := make([]transport.BucketResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, transport.BucketResponse{
			Bucket:      string(g.Bucket),
			Count:       g.Count,
			Invitations: transport.ToResponses(g.Invitations, dc),
		})
	}
	httpkit.OK(c, resp)
}

// BucketCounts handles GET /api/v1/invitations/buckets/counts
func (h *Handler) BucketCounts(c *gin.Context) {
	round := c.Query("round")
	if round != "" {
		if err := h.val.Var(round, "round"); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	counts, err := h.svc.BucketCounts(c.Request.Context(), round)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.BucketCountsResponse{Counts: make(map[string]int, len(counts))}
	for bucket, n := range counts {
		resp.Counts[string(bucket)] = n
		resp.Total += n
	}
	httpkit.OK(c, resp)
}

// GetByID handles GET /api/v1/invitations/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	inv, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToResponse(inv, displayContext(c, c.Query("context"))))
}

// Ingest handles POST /api/v1/invitations/ingest with a text/calendar body.
func (h *Handler) Ingest(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxICSBytes)
	defer body.Close()

	result, err := h.svc.Ingest(c.Request.Context(), body)
	if httpkit.HandleError(c, err) {
		return
	}

	skipped := result.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	httpkit.OK(c, transport.IngestResponse{
		Created:     result.Created,
		Updated:     result.Updated,
		Rescheduled: result.Rescheduled,
		Cancelled:   result.Cancelled,
		Unchanged:   result.Unchanged,
		Skipped:     skipped,
		Invitations: transport.ToResponses(result.Invitations, domain.ContextManager),
	})
}

// Transition handles POST /api/v1/invitations/:id/transition
func (h *Handler) Transition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	inv, err := h.svc.Transition(c.Request.Context(), id, req.Action, req.Note, req.Version)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToResponse(inv, domain.ContextManager))
}

func (h *Handler) bindList(c *gin.Context) (transport.ListInvitationsRequest, bool) {
	var req transport.ListInvitationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return req, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return req, false
	}
	// Jurors only see their own meetings.
	if scope := identity.JurorScope(); scope != nil {
		req.JurorID = scope
	}
	return req, true
}

func toFilter(req transport.ListInvitationsRequest) repository.ListFilter {
	return repository.ListFilter{
		RoundName: req.RoundName,
		StartupID: req.StartupID,
		JurorID:   req.JurorID,
		From:      req.From,
		To:        req.To,
		Limit:     req.Limit,
	}
}

func displayContext(c *gin.Context, requested string) domain.DisplayContext {
	switch requested {
	case string(domain.ContextJuror):
		return domain.ContextJuror
	case string(domain.ContextManager):
		return domain.ContextManager
	}
	if httpkit.GetIdentity(c).IsManager() {
		return domain.ContextManager
	}
	return domain.ContextJuror
}
