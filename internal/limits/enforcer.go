// Package limits gates value movements on identity validity and tier limits.
package limits

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vledger/internal/authorize"
	"vledger/internal/domain"
	"vledger/internal/event"
	"vledger/internal/policy"
	"vledger/pkg/errors"
	"vledger/pkg/logger"
)

// IdentityChecker is the slice of the identity service the enforcer consults.
type IdentityChecker interface {
	Get(ctx context.Context, accountID uuid.UUID) (*domain.IdentityRecord, error)
	IsValid(ctx context.Context, accountID uuid.UUID) (bool, error)
}

// UsageTracker is the rolling-window usage store the enforcer reads and,
// on success, records into.
type UsageTracker interface {
	CurrentUsage(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	Record(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error
}

// lockStripes bounds the memory spent on per-account serialization: accounts
// hash onto a fixed array of mutexes instead of one mutex per account ever
// seen.
const lockStripes = 256

type Enforcer struct {
	table    *policy.Table
	identity IdentityChecker
	usage    UsageTracker
	events   *event.Recorder
	logger   logger.Logger

	stateMu sync.RWMutex
	enabled bool

	locks [lockStripes]sync.Mutex
}

func NewEnforcer(table *policy.Table, identity IdentityChecker, usage UsageTracker, events *event.Recorder, log logger.Logger, enabled bool) *Enforcer {
	return &Enforcer{
		table:    table,
		identity: identity,
		usage:    usage,
		events:   events,
		logger:   log,
		enabled:  enabled,
	}
}

// Enabled reports whether compliance enforcement currently applies to transfers.
func (e *Enforcer) Enabled() bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.enabled
}

// SetEnabled toggles global enforcement. Admin only.
func (e *Enforcer) SetEnabled(ctx context.Context, caller authorize.Caller, enabled bool) error {
	if err := authorize.RequireAdmin(caller); err != nil {
		return err
	}

	e.stateMu.Lock()
	changed := e.enabled != enabled
	e.enabled = enabled
	e.stateMu.Unlock()

	if changed {
		e.events.Emit(ctx, domain.EventEnforcementToggled, nil, &caller.ID, domain.Metadata{
			"enabled": enabled,
		})
	}
	return nil
}

// AuthorizeAndRecord runs the compliance checks for a single account's side of
// a movement and, when all pass, records the amount against the account's
// usage window. The check-then-record sequence is serialized per account so
// two concurrent movements cannot both pass on the same remaining headroom.
func (e *Enforcer) AuthorizeAndRecord(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	lock := &e.locks[stripeIndex(accountID)]
	lock.Lock()
	defer lock.Unlock()

	if err := e.check(ctx, accountID, amount); err != nil {
		return err
	}
	return e.usage.Record(ctx, accountID, amount)
}

// AuthorizeTransfer authorizes both participants of a transfer and, with both
// accounts' locks still held, runs apply (the ledger mutation). Usage is
// recorded for either side only after apply has committed, so a denial or a
// failed mutation leaves every usage window untouched. When enforcement is
// off, apply runs without any check or recording.
func (e *Enforcer) AuthorizeTransfer(ctx context.Context, senderID, recipientID uuid.UUID, amount decimal.Decimal, apply func(context.Context) error) error {
	if !e.Enabled() {
		return apply(ctx)
	}

	// A self-transfer is a single movement for a single account.
	if senderID == recipientID {
		lock := &e.locks[stripeIndex(senderID)]
		lock.Lock()
		defer lock.Unlock()

		if err := e.check(ctx, senderID, amount); err != nil {
			return err
		}
		if err := apply(ctx); err != nil {
			return err
		}
		e.record(ctx, senderID, amount)
		return nil
	}

	// Stripe indices fix the lock acquisition order so concurrent transfers
	// between the same pair cannot deadlock. Both accounts may share a stripe.
	first, second := stripeIndex(senderID), stripeIndex(recipientID)
	if first > second {
		first, second = second, first
	}
	e.locks[first].Lock()
	defer e.locks[first].Unlock()
	if second != first {
		e.locks[second].Lock()
		defer e.locks[second].Unlock()
	}

	if err := e.check(ctx, senderID, amount); err != nil {
		return err
	}
	if err := e.check(ctx, recipientID, amount); err != nil {
		return err
	}

	if err := apply(ctx); err != nil {
		return err
	}

	e.record(ctx, senderID, amount)
	e.record(ctx, recipientID, amount)
	return nil
}

func (e *Enforcer) check(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	valid, err := e.identity.IsValid(ctx, accountID)
	if err != nil {
		return err
	}
	if !valid {
		return errors.ErrNonCompliant
	}

	record, err := e.identity.Get(ctx, accountID)
	if err != nil {
		return err
	}
	entry, err := e.table.Lookup(record.Tier)
	if err != nil {
		return err
	}

	if amount.GreaterThan(entry.SingleLimit) {
		return errors.ErrSingleLimitExceeded
	}

	used, err := e.usage.CurrentUsage(ctx, accountID)
	if err != nil {
		return err
	}
	if used.Add(amount).GreaterThan(entry.DailyLimit) {
		return errors.ErrDailyLimitExceeded
	}
	return nil
}

// record books authorized usage after the ledger mutation has committed. The
// value has already moved at this point, so a failed usage write is logged
// rather than surfaced as an operation failure.
func (e *Enforcer) record(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) {
	if err := e.usage.Record(ctx, accountID, amount); err != nil {
		e.logger.Error("Failed to record usage for committed transfer", map[string]interface{}{
			"account_id": accountID,
			"amount":     amount.String(),
			"error":      err.Error(),
		})
	}
}

func stripeIndex(accountID uuid.UUID) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(accountID[:])
	return h.Sum32() % lockStripes
}
