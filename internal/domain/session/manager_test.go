package session

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

// --- Mock implementations ---

type mockSessionRepo struct {
	active    *Session
	activeErr error
	openErr   error
	closeErr  error

	calls      []string
	openedCash decimal.Decimal
	closedID   int64
	closedCash decimal.Decimal
	nextID     int64
}

func (m *mockSessionRepo) Active(_ context.Context) (*Session, error) {
	m.calls = append(m.calls, "active")
	if m.activeErr != nil {
		return nil, m.activeErr
	}
	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	return m.active, nil
}

func (m *mockSessionRepo) Open(_ context.Context, openingCash decimal.Decimal) (*Session, error) {
	m.calls = append(m.calls, "open")
	m.openedCash = openingCash
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.nextID++
	s := &Session{ID: m.nextID, Status: StatusOpen, OpeningCash: openingCash, OpenedAt: time.Now()}
	m.active = s
	return s, nil
}

func (m *mockSessionRepo) Close(_ context.Context, id int64, closingCash decimal.Decimal) (*Session, error) {
	m.calls = append(m.calls, "close")
	m.closedID = id
	m.closedCash = closingCash
	if m.closeErr != nil {
		return nil, m.closeErr
	}
	now := time.Now()
	return &Session{ID: id, Status: StatusClosed, ClosingCash: &closingCash, ClosedAt: &now}, nil
}

func newTestManager(repo Repository) *Manager {
	return NewManager(repo, noop.NewTracerProvider())
}

// --- Tests ---

func TestEnsureOpen_ReusesActive(t *testing.T) {
	repo := &mockSessionRepo{active: &Session{ID: 5, Status: StatusOpen}}
	s, err := newTestManager(repo).EnsureOpen(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), s.ID)
	assert.Equal(t, []string{"active"}, repo.calls)
}

func TestEnsureOpen_CreatesWhenNone(t *testing.T) {
	repo := &mockSessionRepo{nextID: 10}
	s, err := newTestManager(repo).EnsureOpen(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(11), s.ID)
	assert.True(t, s.IsOpen())
	assert.True(t, decimal.Zero.Equal(repo.openedCash))
	assert.Equal(t, []string{"active", "open"}, repo.calls)
}

func TestEnsureOpen_CreatesWhenLookupFails(t *testing.T) {
	repo := &mockSessionRepo{activeErr: errors.New("connection reset")}
	s, err := newTestManager(repo).EnsureOpen(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), s.ID)
	assert.Equal(t, []string{"active", "open"}, repo.calls)
}

func TestEnsureOpen_BothFail(t *testing.T) {
	lookupErr := errors.New("lookup timeout")
	createErr := errors.New("create refused")
	repo := &mockSessionRepo{activeErr: lookupErr, openErr: createErr}

	_, err := newTestManager(repo).EnsureOpen(context.Background())

	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.ErrorIs(t, err, lookupErr)
	assert.ErrorIs(t, err, createErr)
	assert.Contains(t, err.Error(), "lookup timeout")
	assert.Contains(t, err.Error(), "create refused")
}

func TestEnsureOpen_NoneAndCreateFails(t *testing.T) {
	repo := &mockSessionRepo{openErr: errors.New("503")}

	_, err := newTestManager(repo).EnsureOpen(context.Background())

	require.ErrorIs(t, err, ErrNoActiveSession)
}

func TestClose(t *testing.T) {
	repo := &mockSessionRepo{active: &Session{ID: 3, Status: StatusOpen}}
	s, err := newTestManager(repo).Close(context.Background(), decimal.RequireFromString("150.25"))

	require.NoError(t, err)
	assert.Equal(t, StatusClosed, s.Status)
	assert.Equal(t, int64(3), repo.closedID)
	assert.True(t, decimal.RequireFromString("150.25").Equal(repo.closedCash))
	require.NotNil(t, s.ClosedAt)
}

func TestClose_NoActiveSession(t *testing.T) {
	repo := &mockSessionRepo{}
	_, err := newTestManager(repo).Close(context.Background(), decimal.Zero)

	require.ErrorIs(t, err, ErrNoActiveSession)
	assert.Equal(t, []string{"active"}, repo.calls)
}

func TestClose_AlreadyClosed(t *testing.T) {
	repo := &mockSessionRepo{active: &Session{ID: 3, Status: StatusOpen}, closeErr: ErrAlreadyClosed}
	_, err := newTestManager(repo).Close(context.Background(), decimal.Zero)

	require.ErrorIs(t, err, ErrAlreadyClosed)
}
