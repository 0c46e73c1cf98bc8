package repository

import (
	"context"

	"jury_portal_backend/internal/assignments/domain"
	invdomain "jury_portal_backend/internal/invitations/domain"
	invrepo "jury_portal_backend/internal/invitations/repository"
	"jury_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Assignments is the assignment persistence used by the reconciler.
type Assignments interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Assignment, error)
	FindActive(ctx context.Context, startupID, jurorID uuid.UUID, roundName string) (*domain.Assignment, error)
	InsertIfAbsent(ctx context.Context, a *domain.Assignment) (bool, error)
	Update(ctx context.Context, a *domain.Assignment, expectedVersion int) error
	List(ctx context.Context, filter ListFilter) ([]domain.Assignment, error)
}

// Invitations is the slice of the invitations repository the reconciler writes through.
type Invitations interface {
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (invdomain.CalendarInvitation, error)
	Update(ctx context.Context, inv *invdomain.CalendarInvitation, expectedVersion int) error
	List(ctx context.Context, filter invrepo.ListFilter) ([]invdomain.CalendarInvitation, error)
}

// Repos groups the repositories bound to one connection or transaction.
type Repos interface {
	Assignments() Assignments
	Invitations() Invitations
}

// Store opens transactions spanning both tables.
type Store interface {
	Repos
	InTx(ctx context.Context, fn func(Repos) error) error
}

type repos struct {
	assignments *Repository
	invitations *invrepo.Repository
}

func (r repos) Assignments() Assignments { return r.assignments }
func (r repos) Invitations() Invitations { return r.invitations }

// PgStore is the Postgres Store.
type PgStore struct {
	repos
	pool *pgxpool.Pool
}

// NewStore binds both repositories to pool.
func NewStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{
		repos: repos{assignments: New(pool), invitations: invrepo.New(pool)},
		pool:  pool,
	}
}

// AssignmentRepository exposes the pool-bound repository, e.g. as a reminder source.
func (s *PgStore) AssignmentRepository() *Repository {
	return s.assignments
}

func (s *PgStore) InTx(ctx context.Context, fn func(Repos) error) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(repos{assignments: New(tx), invitations: invrepo.New(tx)})
	})
}

var _ Store = (*PgStore)(nil)
