package handler

import (
	"net/http"

	"jury_portal_backend/internal/feedback/domain"
	"jury_portal_backend/internal/feedback/service"
	"jury_portal_backend/internal/feedback/transport"
	"jury_portal_backend/platform/httpkit"
	"jury_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for feedback content.
type Handler struct {
	svc          *service.Service
	val          *validator.Validator
	defaultRound string
}

func New(svc *service.Service, val *validator.Validator, defaultRound string) *Handler {
	return &Handler{svc: svc, val: val, defaultRound: defaultRound}
}

// RegisterRoutes mounts all feedback routes on the manager group. batch is
// applied to the multi-entity routes.
func (h *Handler) RegisterRoutes(manager *gin.RouterGroup, batch gin.HandlerFunc) {
	fb := manager.Group("/feedback")
	fb.GET("/archive", h.ArchiveURL)

	b := fb.Group("/:kind/batch", batch)
	b.POST("/generate", h.BatchGenerate)
	b.POST("/enhance", h.BatchEnhance)
	b.POST("/approve/preview", h.PreviewBatchApprove)
	b.POST("/approve", h.BatchApprove)

	r := fb.Group("/:kind/:startupId")
	r.GET("", h.Load)
	r.GET("/sends", h.Sends)
	r.POST("/generate", h.Generate)
	r.PUT("/draft", h.SaveDraft)
	r.POST("/edit", h.BeginEdit)
	r.POST("/enhance", h.Enhance)
	r.POST("/approve", h.Approve)
	r.POST("/send", h.Send)
}

// Load handles GET /api/v1/feedback/:kind/:startupId
func (h *Handler) Load(c *gin.Context) {
	var q transport.RoundQuery
	if !h.bindQuery(c, &q) {
		return
	}
	key, ok := h.recordKey(c, q.RoundName)
	if !ok {
		return
	}
	res, err := h.svc.Load(c.Request.Context(), key)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLoadResponse(res))
}

// Sends handles GET /api/v1/feedback/:kind/:startupId/sends
func (h *Handler) Sends(c *gin.Context) {
	var q transport.RoundQuery
	if !h.bindQuery(c, &q) {
		return
	}
	key, ok := h.recordKey(c, q.RoundName)
	if !ok {
		return
	}
	sends, err := h.svc.Sends(c.Request.Context(), key)
	if httpkit.HandleError(c, err) {
		return
	}
	items := make([]transport.DeliveryResponse, len(sends))
	for i, e := range sends {
		items[i] = transport.ToDeliveryResponse(e)
	}
	httpkit.OK(c, gin.H{"items": items})
}

// Generate handles POST /api/v1/feedback/:kind/:startupId/generate
func (h *Handler) Generate(c *gin.Context) {
	var req transport.RoundRequest
	if !h.bindJSON(c, &req) {
		return
	}
	key, ok := h.recordKey(c, req.RoundName)
	if !ok {
		return
	}
	content, err := h.svc.Generate(c.Request.Context(), key)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToContentResponse(key, content))
}

// SaveDraft handles PUT /api/v1/feedback/:kind/:startupId/draft
func (h *Handler) SaveDraft(c *gin.Context) {
	var req transport.SaveDraftRequest
	if !h.bindJSON(c, &req) {
		return
	}
	key, ok := h.recordKey(c, req.RoundName)
	if !ok {
		return
	}
	if key.Kind == domain.KindCustomEmail && req.Subject == "" {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "subject is required for custom emails")
		return
	}
	content, err := h.svc.SaveDraft(c.Request.Context(), key, transport.ToVariant(key.Kind, req), req.Version)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToContentResponse(key, content))
}

// BeginEdit handles POST /api/v1/feedback/:kind/:startupId/edit
func (h *Handler) BeginEdit(c *gin.Context) {
	var req transport.VersionedRequest
	if !h.bindJSON(c, &req) {
		return
	}
	key, ok := h.recordKey(c, req.RoundName)
	if !ok {
		return
	}
	content, err := h.svc.BeginEdit(c.Request.Context(), key, req.Version)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToContentResponse(key, content))
}

// Enhance handles POST /api/v1/feedback/:kind/:startupId/enhance
func (h *Handler) Enhance(c *gin.Context) {
	var req transport.RoundRequest
	if !h.bindJSON(c, &req) {
		return
	}
	key, ok := h.recordKey(c, req.RoundName)
	if !ok {
		return
	}
	content, err := h.svc.Enhance(c.Request.Context(), key)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToContentResponse(key, content))
}

// Approve handles POST /api/v1/feedback/:kind/:startupId/approve
func (h *Handler) Approve(c *gin.Context) {
	var req transport.VersionedRequest
	if !h.bindJSON(c, &req) {
		return
	}
	key, ok := h.recordKey(c, req.RoundName)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	content, err := h.svc.Approve(c.Request.Context(), key, identity.UserID(), req.Version)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToContentResponse(key, content))
}

// Send handles POST /api/v1/feedback/:kind/:startupId/send
func (h *Handler) Send(c *gin.Context) {
	var req transport.RoundRequest
	if !h.bindJSON(c, &req) {
		return
	}
	key, ok := h.recordKey(c, req.RoundName)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	res, err := h.svc.Send(c.Request.Context(), key, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToSendResponse(key, res))
}

// ArchiveURL handles GET /api/v1/feedback/archive?key=
func (h *Handler) ArchiveURL(c *gin.Context) {
	var q transport.ArchiveQuery
	if !h.bindQuery(c, &q) {
		return
	}
	url, err := h.svc.ArchiveURL(c.Request.Context(), q.Key)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ArchiveURLResponse{URL: url})
}

// BatchGenerate handles POST /api/v1/feedback/:kind/batch/generate
func (h *Handler) BatchGenerate(c *gin.Context) {
	req, ok := h.batchRequest(c)
	if !ok {
		return
	}
	res, err := h.svc.BatchGenerate(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToBatchResponse(res))
}

// BatchEnhance handles POST /api/v1/feedback/:kind/batch/enhance
func (h *Handler) BatchEnhance(c *gin.Context) {
	req, ok := h.batchRequest(c)
	if !ok {
		return
	}
	res, err := h.svc.BatchEnhance(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToBatchResponse(res))
}

// PreviewBatchApprove handles POST /api/v1/feedback/:kind/batch/approve/preview
func (h *Handler) PreviewBatchApprove(c *gin.Context) {
	req, ok := h.batchRequest(c)
	if !ok {
		return
	}
	preview, err := h.svc.PreviewBatchApprove(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ApprovePreviewResponse{Count: preview.Count, Token: preview.Token, StartupIDs: preview.StartupIDs})
}

// BatchApprove handles POST /api/v1/feedback/:kind/batch/approve
func (h *Handler) BatchApprove(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	var body transport.BatchApproveRequest
	if !h.bindJSON(c, &body) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	req := service.BatchRequest{Kind: kind, RoundName: h.round(body.RoundName), StartupIDs: body.StartupIDs}
	res, err := h.svc.BatchApprove(c.Request.Context(), req, identity.UserID(), service.ApproveConfirmation{Count: body.Count, Token: body.Token})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToBatchResponse(res))
}

func (h *Handler) batchRequest(c *gin.Context) (service.BatchRequest, bool) {
	kind, ok := h.kind(c)
	if !ok {
		return service.BatchRequest{}, false
	}
	var body transport.BatchRequest
	if !h.bindJSON(c, &body) {
		return service.BatchRequest{}, false
	}
	return service.BatchRequest{Kind: kind, RoundName: h.round(body.RoundName), StartupIDs: body.StartupIDs}, true
}

func (h *Handler) kind(c *gin.Context) (domain.Kind, bool) {
	var uri transport.KindURI
	if err := c.ShouldBindUri(&uri); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return "", false
	}
	if err := h.val.Struct(uri); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return "", false
	}
	return domain.Kind(uri.Kind), true
}

func (h *Handler) recordKey(c *gin.Context, round string) (domain.Key, bool) {
	var uri transport.RecordURI
	if err := c.ShouldBindUri(&uri); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return domain.Key{}, false
	}
	if err := h.val.Struct(uri); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return domain.Key{}, false
	}
	return domain.Key{
		StartupID: uuid.MustParse(uri.StartupID),
		RoundName: h.round(round),
		Kind:      domain.Kind(uri.Kind),
	}, true
}

func (h *Handler) round(requested string) string {
	if requested == "" {
		return h.defaultRound
	}
	return requested
}

// bindJSON accepts an empty body; required fields are still enforced by the validator.
func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return false
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}
