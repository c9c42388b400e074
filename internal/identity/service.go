// Package identity manages per-account verification records: who is
// verified, at what tier, and until when.
package identity

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"vledger/internal/authorize"
	"vledger/internal/domain"
	"vledger/internal/event"
	"vledger/pkg/errors"
	"vledger/pkg/logger"
)

// Repository persists identity records keyed by account.
type Repository interface {
	Find(ctx context.Context, accountID uuid.UUID) (*domain.IdentityRecord, error)
	Upsert(ctx context.Context, record *domain.IdentityRecord) error
}

type Service struct {
	repo   Repository
	events *event.Recorder
	logger logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, events *event.Recorder, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// Get returns the account's record with the lazy-expiry projection applied:
// an approved record whose expiry has passed reads as expired without any
// write. Accounts never referenced before read as (unverified, none).
func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (*domain.IdentityRecord, error) {
	record, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	projected := *record
	projected.Status = projectStatus(record, s.now())
	return &projected, nil
}

// IsValid reports whether the account may move value: approved and not
// expired or suspended.
func (s *Service) IsValid(ctx context.Context, accountID uuid.UUID) (bool, error) {
	record, err := s.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	return record.Status == domain.StatusApproved, nil
}

// UpdateRequest carries an administrative identity overwrite.
type UpdateRequest struct {
	AccountID uuid.UUID
	Status    domain.VerificationStatus
	Tier      domain.Tier
	Reference string
	ExpiresAt *time.Time
}

// Update overwrites the record's status, tier, reference, and expiry, stamps
// the verification time, and reports the transition. Administrative only.
func (s *Service) Update(ctx context.Context, caller authorize.Caller, req *UpdateRequest) (*domain.IdentityRecord, error) {
	if err := authorize.RequireAdmin(caller); err != nil {
		return nil, err
	}

	old, err := s.load(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &domain.IdentityRecord{
		AccountID:  req.AccountID,
		Status:     req.Status,
		Tier:       req.Tier,
		Reference:  req.Reference,
		VerifiedAt: &now,
		ExpiresAt:  req.ExpiresAt,
		UpdatedAt:  now,
	}

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to update identity record")
	}

	s.events.Emit(ctx, domain.EventIdentityUpdated, &req.AccountID, &caller.ID, domain.Metadata{
		"old_status": old.Status,
		"old_tier":   old.Tier,
		"new_status": record.Status,
		"new_tier":   record.Tier,
	})

	return record, nil
}

// Suspend forces the record to suspended, leaving tier and expiry untouched.
func (s *Service) Suspend(ctx context.Context, caller authorize.Caller, accountID uuid.UUID) error {
	return s.setStatus(ctx, caller, accountID, domain.StatusSuspended, domain.EventIdentitySuspended)
}

// Reinstate forces the record back to approved, leaving tier and expiry
// untouched. A record whose expiry has already passed still reads as expired
// until the expiry itself is updated.
func (s *Service) Reinstate(ctx context.Context, caller authorize.Caller, accountID uuid.UUID) error {
	return s.setStatus(ctx, caller, accountID, domain.StatusApproved, domain.EventIdentityReinstated)
}

func (s *Service) setStatus(ctx context.Context, caller authorize.Caller, accountID uuid.UUID, status domain.VerificationStatus, kind domain.EventKind) error {
	if err := authorize.RequireAdmin(caller); err != nil {
		return err
	}

	// Direct write: the stored status is replaced as-is, no projection.
	record, err := s.load(ctx, accountID)
	if err != nil {
		return err
	}
	oldStatus := record.Status
	record.Status = status
	record.UpdatedAt = s.now()

	if err := s.repo.Upsert(ctx, record); err != nil {
		return errors.Wrap(err, "failed to write identity status")
	}

	s.events.Emit(ctx, kind, &accountID, &caller.ID, domain.Metadata{
		"old_status": oldStatus,
		"new_status": status,
	})
	return nil
}

// load returns the stored record, or the implicit default for accounts that
// were never referenced. The default is not persisted.
func (s *Service) load(ctx context.Context, accountID uuid.UUID) (*domain.IdentityRecord, error) {
	record, err := s.repo.Find(ctx, accountID)
	if err != nil {
		if stderrors.Is(err, errors.ErrIdentityNotFound) {
			return domain.NewIdentityRecord(accountID), nil
		}
		return nil, errors.Wrap(err, "failed to load identity record")
	}
	return record, nil
}

// projectStatus applies the lazy-expiry rule: approved records with a set
// expiry in the past read as expired.
func projectStatus(record *domain.IdentityRecord, now time.Time) domain.VerificationStatus {
	if record.Status == domain.StatusApproved &&
		record.ExpiresAt != nil && !record.ExpiresAt.IsZero() &&
		now.After(*record.ExpiresAt) {
		return domain.StatusExpired
	}
	return record.Status
}
