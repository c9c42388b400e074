package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vledger/internal/authorize"
	"vledger/internal/domain"
	"vledger/internal/event"
	"vledger/pkg/errors"
	"vledger/pkg/logger"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Find(ctx context.Context, accountID uuid.UUID) (*domain.IdentityRecord, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdentityRecord), args.Error(1)
}

func (m *MockRepository) Upsert(ctx context.Context, record *domain.IdentityRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func newService(repo Repository) *Service {
	return NewService(repo, event.NewRecorder(nil, logger.NewNop()), logger.NewNop())
}

var (
	admin    = authorize.Caller{ID: uuid.New(), Admin: true}
	nonAdmin = authorize.Caller{ID: uuid.New(), Admin: false}
)

// --- Tests ---

func TestGetDefaultsForUnknownAccount(t *testing.T) {
	repo := new(MockRepository)
	service := newService(repo)
	ctx := context.Background()
	accountID := uuid.New()

	repo.On("Find", ctx, accountID).Return(nil, errors.ErrIdentityNotFound)

	record, err := service.Get(ctx, accountID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnverified, record.Status)
	assert.Equal(t, domain.TierNone, record.Tier)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestGetAppliesLazyExpiry(t *testing.T) {
	repo := new(MockRepository)
	service := newService(repo)
	ctx := context.Background()
	accountID := uuid.New()

	expired := time.Now().Add(-time.Hour)
	repo.On("Find", ctx, accountID).Return(&domain.IdentityRecord{
		AccountID: accountID,
		Status:    domain.StatusApproved,
		Tier:      domain.TierBasic,
		ExpiresAt: &expired,
	}, nil)

	record, err := service.Get(ctx, accountID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, record.Status)
	assert.Equal(t, domain.TierBasic, record.Tier)

	valid, err := service.IsValid(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, valid)

	// The projection is read-only: nothing was written back.
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestGetApprovedWithoutExpiry(t *testing.T) {
	repo := new(MockRepository)
	service := newService(repo)
	ctx := context.Background()
	accountID := uuid.New()

	repo.On("Find", ctx, accountID).Return(&domain.IdentityRecord{
		AccountID: accountID,
		Status:    domain.StatusApproved,
		Tier:      domain.TierPremium,
	}, nil)

	valid, err := service.IsValid(ctx, accountID)

	require.NoError(t, err)
	assert.True(t, valid)
}

func TestUpdateRequiresAdmin(t *testing.T) {
	repo := new(MockRepository)
	service := newService(repo)
	ctx := context.Background()

	_, err := service.Update(ctx, nonAdmin, &UpdateRequest{
		AccountID: uuid.New(),
		Status:    domain.StatusApproved,
		Tier:      domain.TierBasic,
	})

	assert.ErrorIs(t, err, errors.ErrUnauthorized)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestUpdateOverwritesRecord(t *testing.T) {
	repo := new(MockRepository)
	service := newService(repo)
	ctx := context.Background()
	accountID := uuid.New()

	repo.On("Find", ctx, accountID).Return(nil, errors.ErrIdentityNotFound)
	repo.On("Upsert", ctx, mock.MatchedBy(func(r *domain.IdentityRecord) bool {
		return r.AccountID == accountID &&
			r.Status == domain.StatusApproved &&
			r.Tier == domain.TierEnhanced &&
			r.Reference == "ref-abc123" &&
			r.VerifiedAt != nil
	})).Return(nil)

	record, err := service.Update(ctx, admin, &UpdateRequest{
		AccountID: accountID,
		Status:    domain.StatusApproved,
		Tier:      domain.TierEnhanced,
		Reference: "ref-abc123",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TierEnhanced, record.Tier)
	repo.AssertExpectations(t)
}

func TestSuspendForcesStatusAndKeepsTier(t *testing.T) {
	repo := new(MockRepository)
	service := newService(repo)
	ctx := context.Background()
	accountID := uuid.New()

	expires := time.Now().Add(time.Hour)
	repo.On("Find", ctx, accountID).Return(&domain.IdentityRecord{
		AccountID: accountID,
		Status:    domain.StatusApproved,
		Tier:      domain.TierPremium,
		ExpiresAt: &expires,
	}, nil)
	repo.On("Upsert", ctx, mock.MatchedBy(func(r *domain.IdentityRecord) bool {
		return r.Status == domain.StatusSuspended &&
			r.Tier == domain.TierPremium &&
			r.ExpiresAt != nil
	})).Return(nil)

	err := service.Suspend(ctx, admin, accountID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSuspendRequiresAdmin(t *testing.T) {
	repo := new(MockRepository)
	service := newService(repo)

	err := service.Suspend(context.Background(), nonAdmin, uuid.New())

	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestReinstateForcesApproved(t *testing.T) {
	repo := new(MockRepository)
	service := newService(repo)
	ctx := context.Background()
	accountID := uuid.New()

	repo.On("Find", ctx, accountID).Return(&domain.IdentityRecord{
		AccountID: accountID,
		Status:    domain.StatusSuspended,
		Tier:      domain.TierBasic,
	}, nil)
	repo.On("Upsert", ctx, mock.MatchedBy(func(r *domain.IdentityRecord) bool {
		return r.Status == domain.StatusApproved && r.Tier == domain.TierBasic
	})).Return(nil)

	err := service.Reinstate(ctx, admin, accountID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
