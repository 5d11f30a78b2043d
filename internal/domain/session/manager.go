package session

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Manager ensures an open session exists before orders are submitted.
//
// Two registers racing to open a session are not serialized here; the order
// service is expected to return the already-open session instead of creating
// a second one.
type Manager struct {
	repo   Repository
	tracer trace.Tracer
}

// NewManager creates a Manager over the given session repository.
func NewManager(repo Repository, tp trace.TracerProvider) *Manager {
	return &Manager{
		repo:   repo,
		tracer: tp.Tracer("kart-pos/session"),
	}
}

// EnsureOpen returns the active session, creating one with zero opening cash
// if the lookup fails for any reason. It fails only when both calls fail.
func (m *Manager) EnsureOpen(ctx context.Context) (*Session, error) {
	ctx, span := m.tracer.Start(ctx, "session.EnsureOpen")
	defer span.End()

	lg := zctx.From(ctx)

	s, lookupErr := m.repo.Active(ctx)
	if lookupErr == nil {
		span.SetAttributes(attribute.Int64("session.id", s.ID), attribute.Bool("session.created", false))
		return s, nil
	}
	if !errors.Is(lookupErr, ErrNoActiveSession) {
		lg.Warn("Active session lookup failed, opening a new one", zap.Error(lookupErr))
	}

	s, createErr := m.repo.Open(ctx, decimal.Zero)
	if createErr != nil {
		err := &ResolveError{Lookup: lookupErr, Create: createErr}
		span.RecordError(err)
		span.SetStatus(codes.Error, "session unresolved")
		return nil, err
	}

	lg.Info("Opened register session", zap.Int64("session_id", s.ID))
	span.SetAttributes(attribute.Int64("session.id", s.ID), attribute.Bool("session.created", true))
	return s, nil
}

// Current returns the active session or ErrNoActiveSession.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	return m.repo.Active(ctx)
}

// Close closes the active session with the counted closing cash.
func (m *Manager) Close(ctx context.Context, closingCash decimal.Decimal) (*Session, error) {
	ctx, span := m.tracer.Start(ctx, "session.Close")
	defer span.End()

	active, err := m.repo.Active(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "find active session")
	}

	closed, err := m.repo.Close(ctx, active.ID, closingCash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "close failed")
		return nil, errors.Wrapf(err, "close session %d", active.ID)
	}

	zctx.From(ctx).Info("Closed register session",
		zap.Int64("session_id", closed.ID),
		zap.String("closing_cash", closingCash.StringFixed(2)),
	)
	return closed, nil
}
