package usage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"vledger/internal/domain"
	"vledger/pkg/errors"
	"vledger/pkg/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Find(ctx context.Context, accountID uuid.UUID) (*domain.UsageWindow, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UsageWindow), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, window *domain.UsageWindow) error {
	args := m.Called(ctx, window)
	return args.Error(0)
}

func newTestTracker(repo *MockRepository, at time.Time) *Tracker {
	t := NewTracker(repo, logger.NewNop())
	t.now = func() time.Time { return at }
	return t
}

func TestCurrentUsage_UnknownAccountReadsZero(t *testing.T) {
	repo := new(MockRepository)
	tracker := newTestTracker(repo, time.Now())
	accountID := uuid.New()

	repo.On("Find", mock.Anything, accountID).Return(nil, errors.ErrAccountNotFound)

	used, err := tracker.CurrentUsage(context.Background(), accountID)

	assert.NoError(t, err)
	assert.True(t, used.IsZero())
}

func TestCurrentUsage_LiveWindow(t *testing.T) {
	repo := new(MockRepository)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker := newTestTracker(repo, now)
	accountID := uuid.New()

	repo.On("Find", mock.Anything, accountID).Return(&domain.UsageWindow{
		AccountID:   accountID,
		UsedToday:   decimal.NewFromInt(800),
		WindowStart: now.Add(-23 * time.Hour),
	}, nil)

	used, err := tracker.CurrentUsage(context.Background(), accountID)

	assert.NoError(t, err)
	assert.True(t, used.Equal(decimal.NewFromInt(800)))
}

func TestCurrentUsage_StaleWindowReadsZeroWithoutPersisting(t *testing.T) {
	repo := new(MockRepository)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker := newTestTracker(repo, now)
	accountID := uuid.New()

	repo.On("Find", mock.Anything, accountID).Return(&domain.UsageWindow{
		AccountID:   accountID,
		UsedToday:   decimal.NewFromInt(800),
		WindowStart: now.Add(-25 * time.Hour),
	}, nil)

	used, err := tracker.CurrentUsage(context.Background(), accountID)

	assert.NoError(t, err)
	assert.True(t, used.IsZero())
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCurrentUsage_ExactBoundaryStillLive(t *testing.T) {
	repo := new(MockRepository)
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker := newTestTracker(repo, start.Add(domain.WindowDuration))
	accountID := uuid.New()

	repo.On("Find", mock.Anything, accountID).Return(&domain.UsageWindow{
		AccountID:   accountID,
		UsedToday:   decimal.NewFromInt(100),
		WindowStart: start,
	}, nil)

	used, err := tracker.CurrentUsage(context.Background(), accountID)

	assert.NoError(t, err)
	assert.True(t, used.Equal(decimal.NewFromInt(100)))
}

func TestRecord_Accumulates(t *testing.T) {
	repo := new(MockRepository)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-2 * time.Hour)
	tracker := newTestTracker(repo, now)
	accountID := uuid.New()

	repo.On("Find", mock.Anything, accountID).Return(&domain.UsageWindow{
		AccountID:   accountID,
		UsedToday:   decimal.NewFromInt(400),
		WindowStart: start,
	}, nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(w *domain.UsageWindow) bool {
		return w.UsedToday.Equal(decimal.NewFromInt(700)) && w.WindowStart.Equal(start)
	})).Return(nil)

	err := tracker.Record(context.Background(), accountID, decimal.NewFromInt(300))

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRecord_StaleWindowResets(t *testing.T) {
	repo := new(MockRepository)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker := newTestTracker(repo, now)
	accountID := uuid.New()

	repo.On("Find", mock.Anything, accountID).Return(&domain.UsageWindow{
		AccountID:   accountID,
		UsedToday:   decimal.NewFromInt(900),
		WindowStart: now.Add(-30 * time.Hour),
	}, nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(w *domain.UsageWindow) bool {
		return w.UsedToday.Equal(decimal.NewFromInt(250)) && w.WindowStart.Equal(now)
	})).Return(nil)

	err := tracker.Record(context.Background(), accountID, decimal.NewFromInt(250))

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestRecord_MissingWindowCreatesFresh(t *testing.T) {
	repo := new(MockRepository)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker := newTestTracker(repo, now)
	accountID := uuid.New()

	repo.On("Find", mock.Anything, accountID).Return(nil, errors.ErrAccountNotFound)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(w *domain.UsageWindow) bool {
		return w.UsedToday.Equal(decimal.NewFromInt(50)) && w.WindowStart.Equal(now)
	})).Return(nil)

	err := tracker.Record(context.Background(), accountID, decimal.NewFromInt(50))

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
