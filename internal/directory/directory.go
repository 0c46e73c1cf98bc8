// Package directory reads the startup and juror directory. The directory is
// maintained elsewhere; this service only consumes it.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jury_portal_backend/platform/apperr"
	"jury_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Startup is a directory entry for an evaluated company.
type Startup struct {
	ID           uuid.UUID
	Name         string
	ContactEmail string
	Website      string
}

// Juror is a directory entry for an evaluator.
type Juror struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Company string
}

// Repository queries the directory tables.
type Repository struct {
	db db.DBTX
}

// New creates a directory repository.
func New(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// GetStartup returns one startup.
func (r *Repository) GetStartup(ctx context.Context, id uuid.UUID) (Startup, error) {
	var s Startup
	err := r.db.QueryRow(ctx,
		`SELECT id, name, COALESCE(contact_email, ''), COALESCE(website, '') FROM startups WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.ContactEmail, &s.Website)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, apperr.NotFound("startup not found")
	}
	if err != nil {
		return s, fmt.Errorf("failed to get startup: %w", err)
	}
	return s, nil
}

// GetJuror returns one juror.
func (r *Repository) GetJuror(ctx context.Context, id uuid.UUID) (Juror, error) {
	var j Juror
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, COALESCE(company, '') FROM jurors WHERE id = $1`, id,
	).Scan(&j.ID, &j.Name, &j.Email, &j.Company)
	if errors.Is(err, pgx.ErrNoRows) {
		return j, apperr.NotFound("juror not found")
	}
	if err != nil {
		return j, fmt.Errorf("failed to get juror: %w", err)
	}
	return j, nil
}

// ListStartups returns every startup ordered by name.
func (r *Repository) ListStartups(ctx context.Context) ([]Startup, error) {
	return r.queryStartups(ctx, `SELECT id, name, COALESCE(contact_email, ''), COALESCE(website, '')
		FROM startups ORDER BY name, id`)
}

// ListJurors returns every juror ordered by name.
func (r *Repository) ListJurors(ctx context.Context) ([]Juror, error) {
	return r.queryJurors(ctx, `SELECT id, name, email, COALESCE(company, '') FROM jurors ORDER BY name, id`)
}

// FindStartupsByEmails returns startups whose contact email is one of emails
// (case-insensitive).
func (r *Repository) FindStartupsByEmails(ctx context.Context, emails []string) ([]Startup, error) {
	return r.queryStartups(ctx, `SELECT id, name, COALESCE(contact_email, ''), COALESCE(website, '')
		FROM startups WHERE lower(contact_email) = ANY($1) ORDER BY id`, emails)
}

// FindJurorsByEmails returns jurors whose email is one of emails.
func (r *Repository) FindJurorsByEmails(ctx context.Context, emails []string) ([]Juror, error) {
	return r.queryJurors(ctx, `SELECT id, name, email, COALESCE(company, '')
		FROM jurors WHERE lower(email) = ANY($1) ORDER BY id`, emails)
}

// LatestEvaluationUpdate returns the newest evaluations.updated_at for a
// startup and round, or nil when no evaluation exists.
func (r *Repository) LatestEvaluationUpdate(ctx context.Context, startupID uuid.UUID, roundName string) (*time.Time, error) {
	var latest *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT MAX(updated_at) FROM evaluations WHERE startup_id = $1 AND round_name = $2`,
		startupID, roundName,
	).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to read evaluation timestamp: %w", err)
	}
	return latest, nil
}

// Evaluation is one juror's scored review of a startup.
type Evaluation struct {
	JurorName string
	Score     *float64
	Comments  string
	UpdatedAt time.Time
}

// ListEvaluations returns the evaluations of a startup in a round, oldest first.
func (r *Repository) ListEvaluations(ctx context.Context, startupID uuid.UUID, roundName string) ([]Evaluation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT j.name, e.score, COALESCE(e.comments, ''), e.updated_at
		FROM evaluations e
		JOIN jurors j ON j.id = e.juror_id
		WHERE e.startup_id = $1 AND e.round_name = $2
		ORDER BY e.updated_at, e.id`, startupID, roundName)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	items := make([]Evaluation, 0)
	for rows.Next() {
		var ev Evaluation
		if err := rows.Scan(&ev.JurorName, &ev.Score, &ev.Comments, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		items = append(items, ev)
	}
	return items, rows.Err()
}

func (r *Repository) queryStartups(ctx context.Context, query string, args ...any) ([]Startup, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query startups: %w", err)
	}
	defer rows.Close()

	items := make([]Startup, 0)
	for rows.Next() {
		var s Startup
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactEmail, &s.Website); err != nil {
			return nil, fmt.Errorf("failed to scan startup: %w", err)
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *Repository) queryJurors(ctx context.Context, query string, args ...any) ([]Juror, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jurors: %w", err)
	}
	defer rows.Close()

	items := make([]Juror, 0)
	for rows.Next() {
		var j Juror
		if err := rows.Scan(&j.ID, &j.Name, &j.Email, &j.Company); err != nil {
			return nil, fmt.Errorf("failed to scan juror: %w", err)
		}
		items = append(items, j)
	}
	return items, rows.Err()
}
