package transport

import (
	"time"

	"jury_portal_backend/internal/feedback/domain"
	"jury_portal_backend/internal/feedback/service"

	"github.com/google/uuid"
)

// RecordURI addresses one record: /feedback/:kind/:startupId.
type RecordURI struct {
	Kind      string `uri:"kind" validate:"required,feedbackkind"`
	StartupID string `uri:"startupId" validate:"required,uuid"`
}

// KindURI addresses the batch routes: /feedback/:kind/batch/...
type KindURI struct {
	Kind string `uri:"kind" validate:"required,feedbackkind"`
}

// RoundQuery selects the round on GET requests.
type RoundQuery struct {
	RoundName string `form:"round" validate:"omitempty,round"`
}

// RoundRequest is the body of actions that only need the round.
type RoundRequest struct {
	RoundName string `json:"roundName,omitempty" validate:"omitempty,round"`
}

// VersionedRequest carries the optimistic concurrency version.
type VersionedRequest struct {
	RoundName string `json:"roundName,omitempty" validate:"omitempty,round"`
	Version   int    `json:"version,omitempty" validate:"min=0"`
}

// SaveDraftRequest is the body for PUT /feedback/:kind/:startupId/draft.
type SaveDraftRequest struct {
	RoundName string `json:"roundName,omitempty" validate:"omitempty,round"`
	Subject   string `json:"subject,omitempty" validate:"max=300"`
	Body      string `json:"body" validate:"required,max=12000"`
	Version   int    `json:"version,omitempty" validate:"min=0"`
}

// BatchRequest is the body of the batch routes.
type BatchRequest struct {
	RoundName  string      `json:"roundName,omitempty" validate:"omitempty,round"`
	StartupIDs []uuid.UUID `json:"startupIds" validate:"required,min=1,max=500"`
}

// BatchApproveRequest echoes the preview's count and token.
type BatchApproveRequest struct {
	RoundName  string      `json:"roundName,omitempty" validate:"omitempty,round"`
	StartupIDs []uuid.UUID `json:"startupIds" validate:"required,min=1,max=500"`
	Count      int         `json:"count" validate:"min=0"`
	Token      string      `json:"token" validate:"required,len=32"`
}

// ArchiveQuery is the query string of GET /feedback/archive.
type ArchiveQuery struct {
	Key string `form:"key" validate:"required,max=512"`
}

type ContentResponse struct {
	ID              *uuid.UUID `json:"id,omitempty"`
	StartupID       uuid.UUID  `json:"startupId"`
	RoundName       string     `json:"roundName"`
	Kind            string     `json:"kind"`
	State           string     `json:"state"`
	Subject         string     `json:"subject,omitempty"`
	Body            string     `json:"body"`
	IsApproved      bool       `json:"isApproved"`
	ApprovedBy      *uuid.UUID `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	EvaluationCount int        `json:"evaluationCount"`
	Version         int        `json:"version"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

type LoadResponse struct {
	ContentResponse
	Stale       bool   `json:"stale"`
	SentLocked  bool   `json:"sentLocked"`
	Regenerated bool   `json:"regenerated"`
	Warning     string `json:"warning,omitempty"`
}

type DeliveryResponse struct {
	ID         uuid.UUID `json:"id"`
	ToAddress  string    `json:"toAddress"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	MessageID  *string   `json:"messageId,omitempty"`
	ArchiveKey *string   `json:"archiveKey,omitempty"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SendResponse struct {
	Content   ContentResponse  `json:"content"`
	Delivery  DeliveryResponse `json:"delivery"`
	Duplicate bool             `json:"duplicate"`
}

type BatchItemResponse struct {
	StartupID uuid.UUID `json:"startupId"`
	Skipped   bool      `json:"skipped,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

type BatchResponse struct {
	SuccessCount int                 `json:"successCount"`
	Total        int                 `json:"total"`
	Items        []BatchItemResponse `json:"items"`
}

type ApprovePreviewResponse struct {
	Count      int         `json:"count"`
	Token      string      `json:"token"`
	StartupIDs []uuid.UUID `json:"startupIds"`
}

type ArchiveURLResponse struct {
	URL string `json:"url"`
}

// ToContentResponse renders a record; a missing record shows the placeholder.
func ToContentResponse(key domain.Key, c *domain.FeedbackContent) ContentResponse {
	resp := ContentResponse{
		StartupID: key.StartupID,
		RoundName: key.RoundName,
		Kind:      string(key.Kind),
		State:     string(c.State()),
		Body:      domain.PlaceholderBody,
	}
	if c == nil {
		return resp
	}
	id := c.ID
	updated := c.UpdatedAt
	resp.ID = &id
	resp.IsApproved = c.IsApproved
	resp.ApprovedBy = c.ApprovedBy
	resp.ApprovedAt = c.ApprovedAt
	resp.EvaluationCount = c.EvaluationCount
	resp.Version = c.Version
	resp.UpdatedAt = &updated
	if c.Content != nil {
		resp.Body = domain.BodyOf(c.Content)
		if email, ok := c.Content.(domain.EmailContent); ok {
			resp.Subject = email.Subject
		}
	}
	return resp
}

func ToLoadResponse(res service.LoadResult) LoadResponse {
	return LoadResponse{
		ContentResponse: ToContentResponse(res.Key, res.Content),
		Stale:           res.Stale,
		SentLocked:      res.SentLocked,
		Regenerated:     res.Regenerated,
		Warning:         res.Warning,
	}
}

func ToDeliveryResponse(e domain.DeliveryEvent) DeliveryResponse {
	return DeliveryResponse{
		ID:         e.ID,
		ToAddress:  e.ToAddress,
		Subject:    e.Subject,
		Status:     string(e.Status),
		MessageID:  e.MessageID,
		ArchiveKey: e.ArchiveKey,
		Error:      e.Error,
		CreatedAt:  e.CreatedAt,
	}
}

func ToSendResponse(key domain.Key, res service.SendResult) SendResponse {
	return SendResponse{
		Content:   ToContentResponse(key, res.Content),
		Delivery:  ToDeliveryResponse(res.Delivery),
		Duplicate: res.Duplicate,
	}
}

func ToBatchResponse(res service.BatchResult) BatchResponse {
	items := make([]BatchItemResponse, len(res.Items))
	for i, it := range res.Items {
		items[i] = BatchItemResponse{StartupID: it.StartupID, Skipped: it.Skipped, Success: it.Success, Error: it.Error}
	}
	return BatchResponse{SuccessCount: res.SuccessCount, Total: res.Total, Items: items}
}

// ToVariant builds the edit for kind from a draft request.
func ToVariant(kind domain.Kind, req SaveDraftRequest) domain.Variant {
	if kind == domain.KindCustomEmail {
		return domain.EmailContent{Subject: req.Subject, Body: req.Body}
	}
	return domain.PlainTextContent{Body: req.Body}
}
