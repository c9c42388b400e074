// Package usage tracks per-account transfer volume over a rolling 24-hour
// window for daily limit enforcement.
package usage

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vledger/internal/domain"
	"vledger/pkg/errors"
	"vledger/pkg/logger"
)

// Repository persists usage windows keyed by account.
type Repository interface {
	Find(ctx context.Context, accountID uuid.UUID) (*domain.UsageWindow, error)
	Save(ctx context.Context, window *domain.UsageWindow) error
}

type Tracker struct {
	repo   Repository
	logger logger.Logger
	now    func() time.Time
}

func NewTracker(repo Repository, log logger.Logger) *Tracker {
	return &Tracker{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
}

// CurrentUsage returns the volume accumulated in the account's live window.
// A stale window (past window_start + 24h) reads as zero; the reset itself is
// not persisted here but deferred to the next Record call.
func (t *Tracker) CurrentUsage(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	window, err := t.repo.Find(ctx, accountID)
	if err != nil {
		if stderrors.Is(err, errors.ErrAccountNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.Wrap(err, "failed to load usage window")
	}
	if t.stale(window) {
		return decimal.Zero, nil
	}
	return window.UsedToday, nil
}

// Record adds an accepted movement to the account's window. A stale or
// missing window is replaced by a fresh one starting now; this is the single
// point where the reset is persisted. Callers must invoke Record exactly once
// per authorized movement, after the limit checks have passed.
func (t *Tracker) Record(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	now := t.now()

	window, err := t.repo.Find(ctx, accountID)
	switch {
	case err != nil && stderrors.Is(err, errors.ErrAccountNotFound):
		window = nil
	case err != nil:
		return errors.Wrap(err, "failed to load usage window")
	}

	if window == nil || t.stale(window) {
		window = &domain.UsageWindow{
			AccountID:   accountID,
			UsedToday:   amount,
			WindowStart: now,
			UpdatedAt:   now,
		}
	} else {
		window.UsedToday = window.UsedToday.Add(amount)
		window.UpdatedAt = now
	}

	if err := t.repo.Save(ctx, window); err != nil {
		return errors.Wrap(err, "failed to save usage window")
	}

	t.logger.Debug("Usage recorded", map[string]interface{}{
		"account_id":   accountID,
		"amount":       amount.String(),
		"used_today":   window.UsedToday.String(),
		"window_start": window.WindowStart,
	})
	return nil
}

func (t *Tracker) stale(window *domain.UsageWindow) bool {
	return t.now().After(window.WindowStart.Add(domain.WindowDuration))
}
