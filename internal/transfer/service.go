// Package transfer is the compliance-gated path for moving value between
// accounts.
package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vledger/internal/domain"
	"vledger/internal/event"
	"vledger/pkg/errors"
	"vledger/pkg/logger"
)

// Enforcer authorizes both participants, runs the ledger mutation inside its
// per-account critical section, and records usage only once the mutation has
// committed.
type Enforcer interface {
	AuthorizeTransfer(ctx context.Context, senderID, recipientID uuid.UUID, amount decimal.Decimal, apply func(context.Context) error) error
}

// Ledger is the slice of the currency ledger the transfer path uses.
type Ledger interface {
	Balance(ctx context.Context, accountID uuid.UUID, currency domain.Currency) (decimal.Decimal, error)
	Transfer(ctx context.Context, senderID, recipientID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error
}

type Service struct {
	enforcer Enforcer
	ledger   Ledger
	events   *event.Recorder
	logger   logger.Logger
}

func NewService(enforcer Enforcer, ledger Ledger, events *event.Recorder, log logger.Logger) *Service {
	return &Service{
		enforcer: enforcer,
		ledger:   ledger,
		events:   events,
		logger:   log,
	}
}

// Transfer moves amount of currency from sender to recipient. The sender's
// balance is checked before the compliance hook so a transfer that obviously
// cannot be funded never reaches the enforcer; the ledger mutation itself runs
// inside the enforcer's critical section, and usage is booked only after it
// commits, so any failure leaves balances and usage windows alike untouched.
func (s *Service) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, currency domain.Currency, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}

	balance, err := s.ledger.Balance(ctx, senderID, currency)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return errors.ErrInsufficientBalance
	}

	err = s.enforcer.AuthorizeTransfer(ctx, senderID, recipientID, amount, func(ctx context.Context) error {
		return s.ledger.Transfer(ctx, senderID, recipientID, currency, amount)
	})
	if err != nil {
		return err
	}

	s.events.Emit(ctx, domain.EventTransferCompleted, &senderID, nil, domain.Metadata{
		"recipient_id": recipientID,
		"currency":     currency,
		"amount":       amount.String(),
	})
	return nil
}
