package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vledger/internal/domain"
	"vledger/internal/event"
	"vledger/internal/limits"
	"vledger/internal/policy"
	"vledger/pkg/config"
	"vledger/pkg/errors"
	"vledger/pkg/logger"
)

// fakeEnforcer approves or denies and, on approval, runs the mutation the
// way the real enforcer does.
type fakeEnforcer struct {
	denyWith error
	calls    int
}

func (f *fakeEnforcer) AuthorizeTransfer(ctx context.Context, senderID, recipientID uuid.UUID, amount decimal.Decimal, apply func(context.Context) error) error {
	f.calls++
	if f.denyWith != nil {
		return f.denyWith
	}
	return apply(ctx)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Balance(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedger) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	args := m.Called(ctx, senderID, recipientID, currency, amount)
	return args.Error(0)
}

func newTestService(enforcer Enforcer, ledger *MockLedger) *Service {
	return NewService(enforcer, ledger, event.NewRecorder(nil, logger.NewNop()), logger.NewNop())
}

func TestTransfer_HappyPath(t *testing.T) {
	enforcer := &fakeEnforcer{}
	ledger := new(MockLedger)
	svc := newTestService(enforcer, ledger)
	sender := uuid.New()
	recipient := uuid.New()
	amount := decimal.NewFromInt(100)

	ledger.On("Balance", mock.Anything, sender, domain.Currency("USD")).Return(decimal.NewFromInt(500), nil)
	ledger.On("Transfer", mock.Anything, sender, recipient, domain.Currency("USD"), amount).Return(nil)

	err := svc.Transfer(context.Background(), sender, recipient, "USD", amount)

	require.NoError(t, err)
	assert.Equal(t, 1, enforcer.calls)
	ledger.AssertExpectations(t)
}

func TestTransfer_InsufficientBalanceSkipsComplianceHook(t *testing.T) {
	enforcer := &fakeEnforcer{}
	ledger := new(MockLedger)
	svc := newTestService(enforcer, ledger)
	sender := uuid.New()

	ledger.On("Balance", mock.Anything, sender, domain.Currency("USD")).Return(decimal.NewFromInt(50), nil)

	err := svc.Transfer(context.Background(), sender, uuid.New(), "USD", decimal.NewFromInt(100))

	assert.ErrorIs(t, err, errors.ErrInsufficientBalance)
	assert.Equal(t, 0, enforcer.calls)
	ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransfer_DenialLeavesBalancesUntouched(t *testing.T) {
	enforcer := &fakeEnforcer{denyWith: errors.ErrSingleLimitExceeded}
	ledger := new(MockLedger)
	svc := newTestService(enforcer, ledger)
	sender := uuid.New()

	ledger.On("Balance", mock.Anything, sender, domain.Currency("USD")).Return(decimal.NewFromInt(1000), nil)

	err := svc.Transfer(context.Background(), sender, uuid.New(), "USD", decimal.NewFromInt(600))

	assert.ErrorIs(t, err, errors.ErrSingleLimitExceeded)
	ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransfer_UnsupportedCurrencySurfacesFromLedger(t *testing.T) {
	enforcer := &fakeEnforcer{}
	ledger := new(MockLedger)
	svc := newTestService(enforcer, ledger)
	sender := uuid.New()

	ledger.On("Balance", mock.Anything, sender, domain.Currency("XXX")).
		Return(decimal.Zero, errors.ErrUnsupportedCurrency)

	err := svc.Transfer(context.Background(), sender, uuid.New(), "XXX", decimal.NewFromInt(10))

	assert.ErrorIs(t, err, errors.ErrUnsupportedCurrency)
}

func TestTransfer_RejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(&fakeEnforcer{}, new(MockLedger))

	err := svc.Transfer(context.Background(), uuid.New(), uuid.New(), "USD", decimal.NewFromInt(-5))

	assert.ErrorIs(t, err, errors.ErrInvalidAmount)
}

// fakeUsage backs the real enforcer in the end-to-end failed-debit test.
type fakeUsage struct {
	used   map[uuid.UUID]decimal.Decimal
	starts map[uuid.UUID]time.Time
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{
		used:   make(map[uuid.UUID]decimal.Decimal),
		starts: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeUsage) CurrentUsage(_ context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return f.used[accountID], nil
}

func (f *fakeUsage) Record(_ context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	if _, ok := f.starts[accountID]; !ok {
		f.starts[accountID] = time.Now()
		f.used[accountID] = amount
		return nil
	}
	f.used[accountID] = f.used[accountID].Add(amount)
	return nil
}

type approvingIdentity struct{}

func (approvingIdentity) Get(_ context.Context, accountID uuid.UUID) (*domain.IdentityRecord, error) {
	return &domain.IdentityRecord{
		AccountID: accountID,
		Status:    domain.StatusApproved,
		Tier:      domain.TierBasic,
	}, nil
}

func (approvingIdentity) IsValid(context.Context, uuid.UUID) (bool, error) {
	return true, nil
}

// The sender's balance passes the precheck but the row-guarded debit fails,
// as it does when a concurrent transfer drains the balance in between. The
// failed transfer must not consume either account's daily headroom.
func TestTransfer_FailedLedgerLegLeavesUsageUnchanged(t *testing.T) {
	table, err := policy.NewTable(config.PolicyConfig{
		None:     config.TierLimits{SingleLimit: "0", DailyLimit: "0"},
		Basic:    config.TierLimits{SingleLimit: "500", DailyLimit: "1000"},
		Enhanced: config.TierLimits{SingleLimit: "50000", DailyLimit: "100000"},
		Premium:  config.TierLimits{SingleLimit: "500000", DailyLimit: "1000000"},
	})
	require.NoError(t, err)

	usage := newFakeUsage()
	events := event.NewRecorder(nil, logger.NewNop())
	enforcer := limits.NewEnforcer(table, approvingIdentity{}, usage, events, logger.NewNop(), true)

	ledger := new(MockLedger)
	svc := NewService(enforcer, ledger, events, logger.NewNop())
	sender := uuid.New()
	recipient := uuid.New()
	amount := decimal.NewFromInt(300)

	ledger.On("Balance", mock.Anything, sender, domain.Currency("USD")).Return(decimal.NewFromInt(500), nil)
	ledger.On("Transfer", mock.Anything, sender, recipient, domain.Currency("USD"), amount).
		Return(errors.ErrInsufficientBalance)

	err = svc.Transfer(context.Background(), sender, recipient, "USD", amount)

	assert.ErrorIs(t, err, errors.ErrInsufficientBalance)
	senderUsed, _ := usage.CurrentUsage(context.Background(), sender)
	recipientUsed, _ := usage.CurrentUsage(context.Background(), recipient)
	assert.True(t, senderUsed.IsZero(), "failed transfer charged the sender's window")
	assert.True(t, recipientUsed.IsZero(), "failed transfer charged the recipient's window")
}
