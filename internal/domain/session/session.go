// Package session manages the lifecycle of register sessions.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a register session.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

var (
	// ErrNoActiveSession is returned when the register has no open session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrAlreadyClosed is returned when closing a session that is not open.
	ErrAlreadyClosed = errors.New("session already closed")
	// ErrNotFound is returned when a session id does not exist.
	ErrNotFound = errors.New("session not found")
)

// Session is the time-bounded record of a till being open for business.
type Session struct {
	ID          int64
	RegisterID  string
	Status      Status
	OpeningCash decimal.Decimal
	ClosingCash *decimal.Decimal
	OpenedAt    time.Time
	ClosedAt    *time.Time
}

// IsOpen reports whether the session accepts orders.
func (s *Session) IsOpen() bool {
	return s.Status == StatusOpen
}

// Repository is the order service's session resource as seen by a register.
type Repository interface {
	// Active returns the open session or ErrNoActiveSession.
	Active(ctx context.Context) (*Session, error)
	// Open creates a session with the given opening cash.
	Open(ctx context.Context, openingCash decimal.Decimal) (*Session, error)
	// Close transitions session id to closed.
	Close(ctx context.Context, id int64, closingCash decimal.Decimal) (*Session, error)
}

// ResolveError is returned by EnsureOpen when both the lookup of the active
// session and the creation of a new one failed.
type ResolveError struct {
	Lookup error
	Create error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve session: lookup: %v; create: %v", e.Lookup, e.Create)
}

// Unwrap exposes both underlying errors to errors.Is and errors.As.
func (e *ResolveError) Unwrap() []error {
	return []error{e.Lookup, e.Create}
}
