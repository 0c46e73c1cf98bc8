package repository

import (
	"context"
	"errors"
	"fmt"

	"jury_portal_backend/internal/feedback/domain"
	"jury_portal_backend/platform/apperr"
	"jury_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const contentStaleMsg = "feedback was modified by someone else; reload and try again"

const contentColumns = `id, startup_id, round_name, kind, subject, body, is_approved, approved_by, approved_at,
	editing, evaluation_count, version, created_at, updated_at`

const sendColumns = `id, startup_id, round_name, to_address, subject, message_id, status, error, archive_key, created_at`

// Repository provides database operations for feedback contents and sends.
type Repository struct {
	db db.DBTX
}

func New(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// Get returns nil when no record exists for key.
func (r *Repository) Get(ctx context.Context, key domain.Key) (*domain.FeedbackContent, error) {
	row := r.db.QueryRow(ctx, `SELECT `+contentColumns+` FROM feedback_contents
		WHERE startup_id = $1 AND round_name = $2 AND kind = $3`, key.StartupID, key.RoundName, string(key.Kind))
	c, err := scanContent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get feedback content: %w", err)
	}
	return &c, nil
}

// GetMany returns the existing records of one kind and round keyed by startup.
func (r *Repository) GetMany(ctx context.Context, kind domain.Kind, roundName string, startupIDs []uuid.UUID) (map[uuid.UUID]*domain.FeedbackContent, error) {
	rows, err := r.db.Query(ctx, `SELECT `+contentColumns+` FROM feedback_contents
		WHERE kind = $1 AND round_name = $2 AND startup_id = ANY($3)`, string(kind), roundName, startupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback contents: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*domain.FeedbackContent, len(startupIDs))
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback content: %w", err)
		}
		out[c.Key.StartupID] = &c
	}
	return out, rows.Err()
}

// Save inserts or updates the record for c.Key. With a positive
// expectedVersion an update only applies to that version.
func (r *Repository) Save(ctx context.Context, c *domain.FeedbackContent, expectedVersion int) error {
	var subject, body string
	switch v := c.Content.(type) {
	case domain.EmailContent:
		subject, body = v.Subject, v.Body
	case domain.PlainTextContent:
		body = v.Body
	case nil:
		body = domain.PlaceholderBody
	}

	query := `
		INSERT INTO feedback_contents (startup_id, round_name, kind, subject, body, is_approved, approved_by,
			approved_at, editing, evaluation_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (startup_id, round_name, kind) DO UPDATE SET
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			is_approved = EXCLUDED.is_approved,
			approved_by = EXCLUDED.approved_by,
			approved_at = EXCLUDED.approved_at,
			editing = EXCLUDED.editing,
			evaluation_count = EXCLUDED.evaluation_count,
			version = feedback_contents.version + 1,
			updated_at = now()
		WHERE $11::int = 0 OR feedback_contents.version = $11
		RETURNING id, version, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		c.Key.StartupID, c.Key.RoundName, string(c.Key.Kind), subject, body, c.IsApproved, c.ApprovedBy,
		c.ApprovedAt, c.Editing, c.EvaluationCount, expectedVersion,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.Conflict(contentStaleMsg)
		}
		return fmt.Errorf("failed to save feedback content: %w", err)
	}
	return nil
}

// RecordSend appends a delivery event.
func (r *Repository) RecordSend(ctx context.Context, e *domain.DeliveryEvent) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO feedback_email_sends (startup_id, round_name, to_address, subject, message_id, status, error, archive_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		e.StartupID, e.RoundName, e.ToAddress, e.Subject, e.MessageID, string(e.Status), e.Error, e.ArchiveKey,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record feedback send: %w", err)
	}
	return nil
}

// HasSent reports whether any delivery event counts as sent.
func (r *Repository) HasSent(ctx context.Context, startupID uuid.UUID, roundName string) (bool, error) {
	statuses := make([]string, 0, len(domain.SentStatuses))
	for _, s := range domain.SentStatuses {
		statuses = append(statuses, string(s))
	}
	var sent bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM feedback_email_sends WHERE startup_id = $1 AND round_name = $2 AND status = ANY($3)
		)`, startupID, roundName, statuses).Scan(&sent)
	if err != nil {
		return false, fmt.Errorf("failed to check feedback sends: %w", err)
	}
	return sent, nil
}

// ListSends returns delivery events newest first.
func (r *Repository) ListSends(ctx context.Context, startupID uuid.UUID, roundName string) ([]domain.DeliveryEvent, error) {
	rows, err := r.db.Query(ctx, `SELECT `+sendColumns+` FROM feedback_email_sends
		WHERE startup_id = $1 AND round_name = $2 ORDER BY created_at DESC`, startupID, roundName)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback sends: %w", err)
	}
	defer rows.Close()

	items := make([]domain.DeliveryEvent, 0)
	for rows.Next() {
		var (
			e      domain.DeliveryEvent
			status string
		)
		if err := rows.Scan(&e.ID, &e.StartupID, &e.RoundName, &e.ToAddress, &e.Subject, &e.MessageID,
			&status, &e.Error, &e.ArchiveKey, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback send: %w", err)
		}
		e.Status = domain.DeliveryStatus(status)
		items = append(items, e)
	}
	return items, rows.Err()
}

func scanContent(row pgx.Row) (domain.FeedbackContent, error) {
	var (
		c             domain.FeedbackContent
		kind, subject string
		body          string
	)
	err := row.Scan(&c.ID, &c.Key.StartupID, &c.Key.RoundName, &kind, &subject, &body, &c.IsApproved,
		&c.ApprovedBy, &c.ApprovedAt, &c.Editing, &c.EvaluationCount, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.FeedbackContent{}, err
	}
	c.Key.Kind = domain.Kind(kind)
	if c.Key.Kind == domain.KindCustomEmail {
		c.Content = domain.EmailContent{Subject: subject, Body: body}
	} else {
		c.Content = domain.PlainTextContent{Body: body}
	}
	return c, nil
}
