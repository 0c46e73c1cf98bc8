package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jury_portal_backend/internal/invitations/domain"
	"jury_portal_backend/platform/apperr"
	"jury_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	invitationNotFoundMsg = "invitation not found"
	invitationStaleMsg    = "invitation was modified by someone else; reload and try again"
)

const selectColumns = `id, calendar_uid, startup_id, juror_id, assignment_id, round_name, summary,
	description, location, meeting_link, start_time, end_time, attendee_emails, status, matching_status,
	manual_assignment_needed, matching_errors, sequence_number, previous_event_date, lifecycle_history,
	version, created_at, updated_at`

// Repository provides database operations for calendar invitations.
type Repository struct {
	db db.DBTX
}

// New creates a new invitations repository.
func New(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// ListFilter narrows List results.
type ListFilter struct {
	RoundName string
	StartupID *uuid.UUID
	JurorID   *uuid.UUID
	From      *time.Time
	To        *time.Time
	Limit     int
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.CalendarInvitation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM calendar_invitations WHERE id = $1`, id)
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CalendarInvitation{}, apperr.NotFound(invitationNotFoundMsg)
		}
		return domain.CalendarInvitation{}, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// GetByIDForUpdate locks the row for the surrounding transaction.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.CalendarInvitation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM calendar_invitations WHERE id = $1 FOR UPDATE`, id)
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CalendarInvitation{}, apperr.NotFound(invitationNotFoundMsg)
		}
		return domain.CalendarInvitation{}, fmt.Errorf("failed to lock invitation: %w", err)
	}
	return inv, nil
}

// GetByCalendarUID returns nil when no invitation exists for uid.
func (r *Repository) GetByCalendarUID(ctx context.Context, uid string) (*domain.CalendarInvitation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM calendar_invitations WHERE calendar_uid = $1`, uid)
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invitation by uid: %w", err)
	}
	return &inv, nil
}

// Upsert inserts the invitation or, when the calendar UID already exists,
// overwrites it. ID, CreatedAt and UpdatedAt are filled from the stored row.
func (r *Repository) Upsert(ctx context.Context, inv *domain.CalendarInvitation) error {
	history, err := json.Marshal(nonNilHistory(inv.LifecycleHistory))
	if err != nil {
		return fmt.Errorf("failed to encode lifecycle history: %w", err)
	}

	query := `
		INSERT INTO calendar_invitations (
			calendar_uid, startup_id, juror_id, assignment_id, round_name, summary, description,
			location, meeting_link, start_time, end_time, attendee_emails, status, matching_status,
			manual_assignment_needed, matching_errors, sequence_number, previous_event_date, lifecycle_history
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (calendar_uid) DO UPDATE SET
			startup_id = EXCLUDED.startup_id,
			juror_id = EXCLUDED.juror_id,
			assignment_id = EXCLUDED.assignment_id,
			round_name = EXCLUDED.round_name,
			summary = EXCLUDED.summary,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			meeting_link = EXCLUDED.meeting_link,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			attendee_emails = EXCLUDED.attendee_emails,
			status = EXCLUDED.status,
			matching_status = EXCLUDED.matching_status,
			manual_assignment_needed = EXCLUDED.manual_assignment_needed,
			matching_errors = EXCLUDED.matching_errors,
			sequence_number = EXCLUDED.sequence_number,
			previous_event_date = EXCLUDED.previous_event_date,
			lifecycle_history = EXCLUDED.lifecycle_history,
			version = calendar_invitations.version + 1,
			updated_at = now()
		RETURNING id, version, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		inv.CalendarUID, inv.StartupID, inv.JurorID, inv.AssignmentID, inv.RoundName, inv.Summary,
		inv.Description, inv.Location, inv.MeetingLink, inv.StartTime, inv.EndTime,
		nonNilStrings(inv.AttendeeEmails), string(inv.Status), string(inv.MatchingStatus),
		inv.ManualAssignmentNeeded, nonNilStrings(inv.MatchingErrors), inv.SequenceNumber,
		inv.PreviousEventDate, history,
	).Scan(&inv.ID, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert invitation: %w", err)
	}
	return nil
}

// Update persists the mutable fields of an existing invitation. When
// expectedVersion is positive the write only succeeds against that version.
func (r *Repository) Update(ctx context.Context, inv *domain.CalendarInvitation, expectedVersion int) error {
	history, err := json.Marshal(nonNilHistory(inv.LifecycleHistory))
	if err != nil {
		return fmt.Errorf("failed to encode lifecycle history: %w", err)
	}

	query := `
		UPDATE calendar_invitations SET
			startup_id = $2,
			juror_id = $3,
			assignment_id = $4,
			status = $5,
			matching_status = $6,
			manual_assignment_needed = $7,
			matching_errors = $8,
			lifecycle_history = $9,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND ($10::int = 0 OR version = $10)
		RETURNING version, updated_at`

	err = r.db.QueryRow(ctx, query,
		inv.ID, inv.StartupID, inv.JurorID, inv.AssignmentID, string(inv.Status),
		string(inv.MatchingStatus), inv.ManualAssignmentNeeded, nonNilStrings(inv.MatchingErrors), history,
		expectedVersion,
	).Scan(&inv.Version, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if expectedVersion > 0 {
				return apperr.Conflict(invitationStaleMsg)
			}
			return apperr.NotFound(invitationNotFoundMsg)
		}
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return nil
}

// List returns invitations ordered by start time, then id.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]domain.CalendarInvitation, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	query := `SELECT ` + selectColumns + ` FROM calendar_invitations
		WHERE ($1::text = '' OR round_name = $1)
			AND ($2::uuid IS NULL OR startup_id = $2)
			AND ($3::uuid IS NULL OR juror_id = $3)
			AND ($4::timestamptz IS NULL OR start_time >= $4)
			AND ($5::timestamptz IS NULL OR start_time < $5)
		ORDER BY start_time NULLS LAST, id
		LIMIT $6`

	rows, err := r.db.Query(ctx, query, filter.RoundName, filter.StartupID, filter.JurorID, filter.From, filter.To, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CalendarInvitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}
	return items, nil
}

// CountByBucket counts invitations per lifecycle bucket. The CASE expression
// follows the same priority as domain.Classify.
func (r *Repository) CountByBucket(ctx context.Context, roundName string) (map[domain.Bucket]int, error) {
	query := `
		SELECT bucket, COUNT(*) FROM (
			SELECT CASE
				WHEN manual_assignment_needed THEN 'needs_assignment'
				WHEN matching_status = 'rescheduled' OR status = 'rescheduled' THEN 'rescheduled'
				WHEN matching_status = 'cancelled' OR status = 'cancelled' THEN 'cancelled'
				WHEN status = 'completed' THEN 'completed'
				WHEN start_time IS NOT NULL THEN 'scheduled'
				ELSE 'pending'
			END AS bucket
			FROM calendar_invitations
			WHERE ($1::text = '' OR round_name = $1)
		) classified
		GROUP BY bucket`

	rows, err := r.db.Query(ctx, query, roundName)
	if err != nil {
		return nil, fmt.Errorf("failed to count invitations: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Bucket]int, len(domain.AllBuckets))
	for _, b := range domain.AllBuckets {
		counts[b] = 0
	}
	for rows.Next() {
		var bucket string
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("failed to scan bucket count: %w", err)
		}
		counts[domain.Bucket(bucket)] = count
	}
	return counts, rows.Err()
}

func scanInvitation(row pgx.Row) (domain.CalendarInvitation, error) {
	var (
		inv            domain.CalendarInvitation
		status         string
		matchingStatus string
		history        []byte
	)
	err := row.Scan(
		&inv.ID, &inv.CalendarUID, &inv.StartupID, &inv.JurorID, &inv.AssignmentID, &inv.RoundName,
		&inv.Summary, &inv.Description, &inv.Location, &inv.MeetingLink, &inv.StartTime, &inv.EndTime,
		&inv.AttendeeEmails, &status, &matchingStatus, &inv.ManualAssignmentNeeded, &inv.MatchingErrors,
		&inv.SequenceNumber, &inv.PreviousEventDate, &history, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.CalendarInvitation{}, err
	}
	inv.Status = domain.Status(status)
	inv.MatchingStatus = domain.MatchingStatus(matchingStatus)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &inv.LifecycleHistory); err != nil {
			return domain.CalendarInvitation{}, fmt.Errorf("decode lifecycle history: %w", err)
		}
	}
	return inv, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilHistory(entries []domain.LifecycleEntry) []domain.LifecycleEntry {
	if entries == nil {
		return []domain.LifecycleEntry{}
	}
	return entries
}
