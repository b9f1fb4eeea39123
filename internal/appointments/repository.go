package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrBookingNotFound indicates no committed booking exists for the key.
var ErrBookingNotFound = errors.New("appointments: booking not found")

// Querier is the pgx surface the repository needs; *pgxpool.Pool satisfies
// it and pgxmock stands in for tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists committed bookings to PostgreSQL.
type Repository struct {
	db Querier
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithQuerier allows injecting mocks for tests.
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{db: q}
}

// RecordCommitted inserts a committed booking row. The session_id column has
// a unique constraint; a second insert for the same session is a no-op so a
// racing duplicate confirmation cannot produce two rows.
func (r *Repository) RecordCommitted(ctx context.Context, b Booking) (*Booking, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.ConfirmedAt.IsZero() {
		b.ConfirmedAt = time.Now().UTC()
	}

	tag, err := r.db.Exec(ctx, `
		INSERT INTO bookings (id, session_id, phone, name, treatment, scheduled_for, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO NOTHING
	`, b.ID, b.SessionID, b.Phone, b.Name, b.Treatment, b.ScheduledFor, b.ConfirmedAt)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Another writer got there first; return what was stored.
		return r.GetBySession(ctx, b.SessionID)
	}
	return &b, nil
}

// GetBySession loads the committed booking for a session, if any.
func (r *Repository) GetBySession(ctx context.Context, sessionID string) (*Booking, error) {
	var b Booking
	err := r.db.QueryRow(ctx, `
		SELECT id, session_id, phone, name, treatment, scheduled_for, confirmed_at
		FROM bookings
		WHERE session_id = $1
	`, sessionID).Scan(&b.ID, &b.SessionID, &b.Phone, &b.Name, &b.Treatment, &b.ScheduledFor, &b.ConfirmedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("appointments: load booking: %w", err)
	}
	return &b, nil
}
