// Package ledger maintains per-(account, currency) balances and the currency
// registry. Balances never go negative: every debit is guarded at the store.
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vledger/internal/authorize"
	"vledger/internal/domain"
	"vledger/internal/event"
	"vledger/pkg/errors"
	"vledger/pkg/logger"
)

type Repository interface {
	RegisterCurrency(ctx context.Context, currency domain.Currency) (created bool, err error)
	IsRegistered(ctx context.Context, currency domain.Currency) (bool, error)
	ListCurrencies(ctx context.Context) ([]domain.Currency, error)
	GetBalance(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (decimal.Decimal, error)
	ListBalances(ctx context.Context, accountID uuid.UUID) ([]*domain.CurrencyBalance, error)
	Credit(ctx context.Context, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error
	Debit(ctx context.Context, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error
	Transfer(ctx context.Context, senderID, recipientID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error
	ConvertBalances(ctx context.Context, accountID uuid.UUID, from, to domain.Currency, debit, credit decimal.Decimal) error
}

type Service struct {
	repo   Repository
	events *event.Recorder
	logger logger.Logger
}

func NewService(repo Repository, events *event.Recorder, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		logger: log,
	}
}

// Register adds a currency to the registry. Admin only; registering an
// already-registered currency is a no-op success.
func (s *Service) Register(ctx context.Context, caller authorize.Caller, currency domain.Currency) error {
	if err := authorize.RequireAdmin(caller); err != nil {
		return err
	}
	if currency == "" {
		return errors.Wrap(errors.ErrUnsupportedCurrency, "empty currency code")
	}

	created, err := s.repo.RegisterCurrency(ctx, currency)
	if err != nil {
		return errors.Wrap(err, "failed to register currency")
	}
	if created {
		s.events.Emit(ctx, domain.EventCurrencyRegistered, nil, &caller.ID, domain.Metadata{
			"currency": currency,
		})
	}
	return nil
}

func (s *Service) IsRegistered(ctx context.Context, currency domain.Currency) (bool, error) {
	return s.repo.IsRegistered(ctx, currency)
}

func (s *Service) Currencies(ctx context.Context) ([]domain.Currency, error) {
	return s.repo.ListCurrencies(ctx)
}

// Balance returns the account's balance in one currency. Accounts that never
// held the currency read as zero.
func (s *Service) Balance(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (decimal.Decimal, error) {
	if err := s.requireRegistered(ctx, currency); err != nil {
		return decimal.Zero, err
	}
	return s.repo.GetBalance(ctx, accountID, currency)
}

// Balances lists every balance the account holds.
func (s *Service) Balances(ctx context.Context, accountID uuid.UUID) ([]*domain.CurrencyBalance, error) {
	return s.repo.ListBalances(ctx, accountID)
}

// Credit adds to a balance. Never fails for a registered currency and a
// positive amount.
func (s *Service) Credit(ctx context.Context, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if err := s.requireRegistered(ctx, currency); err != nil {
		return err
	}
	return s.repo.Credit(ctx, accountID, currency, amount)
}

// Debit subtracts from a balance, failing with ErrInsufficientBalance rather
// than going negative.
func (s *Service) Debit(ctx context.Context, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if err := s.requireRegistered(ctx, currency); err != nil {
		return err
	}
	return s.repo.Debit(ctx, accountID, currency, amount)
}

// Transfer moves amount between two accounts in one currency as a single
// atomic operation: the debit and credit commit together or not at all.
func (s *Service) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if err := s.requireRegistered(ctx, currency); err != nil {
		return err
	}
	return s.repo.Transfer(ctx, senderID, recipientID, currency, amount)
}

// ConvertBalances applies both legs of a conversion for one account
// atomically. Registration and rate validation belong to the conversion
// engine; this only moves the already-computed amounts.
func (s *Service) ConvertBalances(ctx context.Context, accountID uuid.UUID, from, to domain.Currency, debit, credit decimal.Decimal) error {
	return s.repo.ConvertBalances(ctx, accountID, from, to, debit, credit)
}

// Issue mints new units into an account. Admin only.
func (s *Service) Issue(ctx context.Context, caller authorize.Caller, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	if err := authorize.RequireAdmin(caller); err != nil {
		return err
	}
	if err := s.Credit(ctx, accountID, currency, amount); err != nil {
		return err
	}
	s.events.Emit(ctx, domain.EventCurrencyIssued, &accountID, &caller.ID, domain.Metadata{
		"currency": currency,
		"amount":   amount.String(),
	})
	return nil
}

// Redeem burns units from an account. Admin only; fails with
// ErrInsufficientBalance when the account holds less than amount.
func (s *Service) Redeem(ctx context.Context, caller authorize.Caller, accountID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	if err := authorize.RequireAdmin(caller); err != nil {
		return err
	}
	if err := s.Debit(ctx, accountID, currency, amount); err != nil {
		return err
	}
	s.events.Emit(ctx, domain.EventCurrencyRedeemed, &accountID, &caller.ID, domain.Metadata{
		"currency": currency,
		"amount":   amount.String(),
	})
	return nil
}

func (s *Service) requireRegistered(ctx context.Context, currency domain.Currency) error {
	registered, err := s.repo.IsRegistered(ctx, currency)
	if err != nil {
		return errors.Wrap(err, "failed to check currency registration")
	}
	if !registered {
		return errors.Wrap(errors.ErrUnsupportedCurrency, string(currency))
	}
	return nil
}
