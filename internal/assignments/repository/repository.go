package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jury_portal_backend/internal/assignments/domain"
	"jury_portal_backend/internal/scheduler"
	"jury_portal_backend/platform/apperr"
	"jury_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	assignmentNotFoundMsg = "assignment not found"
	assignmentStaleMsg    = "assignment was modified by someone else; reload and try again"
	activePairExistsMsg   = "an active assignment already exists for this startup, juror and round"

	uniqueViolation = "23505"
)

const selectColumns = `id, startup_id, juror_id, round_name, status, meeting_scheduled_date,
	meeting_completed_date, meeting_notes, meeting_link, location, version, created_at, updated_at`

// Repository provides database operations for assignments.
type Repository struct {
	db db.DBTX
}

// New creates a new assignments repository.
func New(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// ListFilter narrows List results.
type ListFilter struct {
	RoundName        string
	StartupID        *uuid.UUID
	JurorID          *uuid.UUID
	IncludeCancelled bool
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Assignment, error) {
	a, err := scanAssignment(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Assignment{}, apperr.NotFound(assignmentNotFoundMsg)
		}
		return domain.Assignment{}, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// FindActive returns the non-cancelled assignment for the triple, or nil.
func (r *Repository) FindActive(ctx context.Context, startupID, jurorID uuid.UUID, roundName string) (*domain.Assignment, error) {
	query := `SELECT ` + selectColumns + ` FROM assignments
		WHERE startup_id = $1 AND juror_id = $2 AND round_name = $3 AND status <> 'cancelled'`
	a, err := scanAssignment(r.db.QueryRow(ctx, query, startupID, jurorID, roundName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active assignment: %w", err)
	}
	return &a, nil
}

// InsertIfAbsent inserts a unless an active assignment for the same triple
// exists. It reports false without error when another row won; callers then
// read the winner with FindActive.
func (r *Repository) InsertIfAbsent(ctx context.Context, a *domain.Assignment) (bool, error) {
	query := `
		INSERT INTO assignments (startup_id, juror_id, round_name, status, meeting_scheduled_date, meeting_notes, meeting_link, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (startup_id, juror_id, round_name) WHERE status <> 'cancelled' DO NOTHING
		RETURNING ` + selectColumns

	inserted, err := scanAssignment(r.db.QueryRow(ctx, query,
		a.StartupID, a.JurorID, a.RoundName, string(a.Status), a.MeetingScheduledDate, a.MeetingNotes, a.MeetingLink, a.Location,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert assignment: %w", err)
	}
	*a = inserted
	return true, nil
}

// Update writes the mutable fields. A positive expectedVersion turns a stale
// write into a conflict.
func (r *Repository) Update(ctx context.Context, a *domain.Assignment, expectedVersion int) error {
	query := `
		UPDATE assignments SET
			status = $2,
			meeting_scheduled_date = $3,
			meeting_completed_date = $4,
			meeting_notes = $5,
			meeting_link = $6,
			location = $7,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND ($8::int = 0 OR version = $8)
		RETURNING version, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, string(a.Status), a.MeetingScheduledDate, a.MeetingCompletedDate, a.MeetingNotes,
		a.MeetingLink, a.Location, expectedVersion,
	).Scan(&a.Version, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == uniqueViolation:
			return apperr.Conflict(activePairExistsMsg)
		case errors.Is(err, pgx.ErrNoRows) && expectedVersion > 0:
			return apperr.Conflict(assignmentStaleMsg)
		case errors.Is(err, pgx.ErrNoRows):
			return apperr.NotFound(assignmentNotFoundMsg)
		}
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}

// List returns assignments ordered by meeting date, then id.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]domain.Assignment, error) {
	query := `SELECT ` + selectColumns + ` FROM assignments
		WHERE ($1::text = '' OR round_name = $1)
			AND ($2::uuid IS NULL OR startup_id = $2)
			AND ($3::uuid IS NULL OR juror_id = $3)
			AND ($4 OR status <> 'cancelled')
		ORDER BY meeting_scheduled_date NULLS LAST, id`

	rows, err := r.db.Query(ctx, query, filter.RoundName, filter.StartupID, filter.JurorID, filter.IncludeCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return items, nil
}

// GetReminderTarget implements scheduler.ReminderSource.
func (r *Repository) GetReminderTarget(ctx context.Context, assignmentID uuid.UUID) (scheduler.ReminderTarget, error) {
	a, err := r.GetByID(ctx, assignmentID)
	if err != nil {
		return scheduler.ReminderTarget{}, err
	}
	return scheduler.ReminderTarget{
		AssignmentID: a.ID,
		StartupID:    a.StartupID,
		JurorID:      a.JurorID,
		Status:       string(a.Status),
		MeetingAt:    a.MeetingScheduledDate,
		MeetingLink:  deref(a.MeetingLink),
		Location:     deref(a.Location),
	}, nil
}

func scanAssignment(row pgx.Row) (domain.Assignment, error) {
	var (
		a      domain.Assignment
		status string
	)
	err := row.Scan(
		&a.ID, &a.StartupID, &a.JurorID, &a.RoundName, &status, &a.MeetingScheduledDate,
		&a.MeetingCompletedDate, &a.MeetingNotes, &a.MeetingLink, &a.Location, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Assignment{}, err
	}
	a.Status = domain.Status(status)
	a.MeetingScheduledDate = utc(a.MeetingScheduledDate)
	a.MeetingCompletedDate = utc(a.MeetingCompletedDate)
	return a, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ scheduler.ReminderSource = (*Repository)(nil)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
