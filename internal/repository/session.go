package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pos/internal/domain/session"
)

const (
	sessionColumns = `id, register_id, status, opening_cash, closing_cash, opened_at, closed_at`

	getActiveSessionSQL = `SELECT ` + sessionColumns + ` FROM pos_sessions
		WHERE register_id = $1 AND status = 'open'`

	getSessionSQL = `SELECT ` + sessionColumns + ` FROM pos_sessions WHERE id = $1`

	// Relies on the partial unique index pos_sessions_one_open.
	openSessionSQL = `INSERT INTO pos_sessions (register_id, status, opening_cash)
		VALUES ($1, 'open', $2)
		ON CONFLICT (register_id) WHERE status = 'open' DO NOTHING
		RETURNING ` + sessionColumns

	closeSessionSQL = `UPDATE pos_sessions
		SET status = 'closed', closing_cash = $2, closed_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING ` + sessionColumns
)

// SessionRepository stores register sessions.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Active returns the open session of a register or session.ErrNoActiveSession.
func (r *SessionRepository) Active(ctx context.Context, registerID string) (*session.Session, error) {
	rows, err := r.pool.Query(ctx, getActiveSessionSQL, registerID)
	if err != nil {
		return nil, fmt.Errorf("getting active session for %q: %w", registerID, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNoActiveSession
		}
		return nil, fmt.Errorf("getting active session for %q: %w", registerID, err)
	}
	return &s, nil
}

// Get returns a session by ID or session.ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, id int64) (*session.Session, error) {
	rows, err := r.pool.Query(ctx, getSessionSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting session %d: %w", id, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("getting session %d: %w", id, err)
	}
	return &s, nil
}

// Open creates a session for the register unless one is already open, in
// which case the open session is returned and created is false.
func (r *SessionRepository) Open(ctx context.Context, registerID string, openingCash decimal.Decimal) (s *session.Session, created bool, err error) {
	rows, err := r.pool.Query(ctx, openSessionSQL, registerID, openingCash)
	if err != nil {
		return nil, false, fmt.Errorf("opening session for %q: %w", registerID, err)
	}
	opened, err := pgx.CollectExactlyOneRow(rows, scanSession)
	switch {
	case err == nil:
		return &opened, true, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, false, fmt.Errorf("opening session for %q: %w", registerID, err)
	}

	existing, err := r.Active(ctx, registerID)
	if err != nil {
		// The open session was closed between the insert and the lookup.
		return nil, false, fmt.Errorf("opening session for %q: %w", registerID, err)
	}
	return existing, false, nil
}

// Close closes an open session. It returns session.ErrNotFound for an unknown
// ID and session.ErrAlreadyClosed when the session is not open.
func (r *SessionRepository) Close(ctx context.Context, id int64, closingCash decimal.Decimal) (*session.Session, error) {
	rows, err := r.pool.Query(ctx, closeSessionSQL, id, closingCash)
	if err != nil {
		return nil, fmt.Errorf("closing session %d: %w", id, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("closing session %d: %w", id, err)
	}

	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, session.ErrAlreadyClosed
}

func scanSession(row pgx.CollectableRow) (session.Session, error) {
	var (
		s      session.Session
		status string
	)
	err := row.Scan(&s.ID, &s.RegisterID, &status, &s.OpeningCash, &s.ClosingCash, &s.OpenedAt, &s.ClosedAt)
	s.Status = session.Status(status)
	return s, err
}
