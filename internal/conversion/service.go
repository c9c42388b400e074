// Package conversion exchanges one account's balance between currencies at
// oracle-quoted rates.
package conversion

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vledger/internal/domain"
	"vledger/internal/event"
	"vledger/pkg/errors"
	"vledger/pkg/fixedpoint"
	"vledger/pkg/logger"
)

// Ledger is the slice of the currency ledger the engine reads and writes.
type Ledger interface {
	IsRegistered(ctx context.Context, currency domain.Currency) (bool, error)
	Balance(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (decimal.Decimal, error)
	ConvertBalances(ctx context.Context, accountID uuid.UUID, from, to domain.Currency, debit, credit decimal.Decimal) error
}

// RateOracle quotes conversion rates. An unresponsive oracle surfaces as an
// error here rather than blocking the ledger.
type RateOracle interface {
	GetRate(ctx context.Context, from, to domain.Currency) (*domain.ExchangeRate, error)
}

type Service struct {
	ledger Ledger
	oracle RateOracle
	events *event.Recorder
	logger logger.Logger
}

func NewService(ledger Ledger, oracle RateOracle, events *event.Recorder, log logger.Logger) *Service {
	return &Service{
		ledger: ledger,
		oracle: oracle,
		events: events,
		logger: log,
	}
}

// Result describes one completed conversion.
type Result struct {
	AccountID uuid.UUID       `json:"account_id"`
	From      domain.Currency `json:"from_currency"`
	To        domain.Currency `json:"to_currency"`
	Amount    decimal.Decimal `json:"amount"`
	Converted decimal.Decimal `json:"converted_amount"`
	Rate      decimal.Decimal `json:"rate"`
}

// Convert exchanges amount of the account's from-currency balance into the
// to-currency at the oracle rate. The converted amount is
// floor(amount * rate) at 18 fixed-point digits: the multiplication runs at
// full width before the flooring division, and the sub-unit remainder is
// dropped. Both balance legs commit atomically; any failed precondition or a
// failed oracle call leaves all balances untouched.
//
// Conversions are not subject to identity or limit checks: they reshape one
// account's holdings without moving value between accounts.
func (s *Service) Convert(ctx context.Context, accountID uuid.UUID, from, to domain.Currency, amount decimal.Decimal) (*Result, error) {
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	if err := s.requireRegistered(ctx, from, errors.ErrUnsupportedSourceCurrency); err != nil {
		return nil, err
	}
	if err := s.requireRegistered(ctx, to, errors.ErrUnsupportedTargetCurrency); err != nil {
		return nil, err
	}

	balance, err := s.ledger.Balance(ctx, accountID, from)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, errors.ErrInsufficientBalance
	}

	rate, err := s.oracle.GetRate(ctx, from, to)
	if err != nil {
		return nil, err
	}

	converted := fixedpoint.Apply(amount, rate.Rate)

	if err := s.ledger.ConvertBalances(ctx, accountID, from, to, amount, converted); err != nil {
		return nil, err
	}

	s.events.Emit(ctx, domain.EventConversionCompleted, &accountID, nil, domain.Metadata{
		"from_currency":    from,
		"to_currency":      to,
		"amount":           amount.String(),
		"converted_amount": converted.String(),
		"rate":             rate.Rate.String(),
		"rate_source":      rate.Source,
	})

	return &Result{
		AccountID: accountID,
		From:      from,
		To:        to,
		Amount:    amount,
		Converted: converted,
		Rate:      rate.Rate,
	}, nil
}

func (s *Service) requireRegistered(ctx context.Context, currency domain.Currency, sideErr error) error {
	registered, err := s.ledger.IsRegistered(ctx, currency)
	if err != nil {
		return errors.Wrap(err, "failed to check currency registration")
	}
	if !registered {
		return errors.Wrap(sideErr, string(currency))
	}
	return nil
}
