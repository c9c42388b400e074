package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vledger/internal/domain"
	"vledger/pkg/errors"
)

type IdentityRepository struct {
	db *sqlx.DB
}

func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) Find(ctx context.Context, accountID uuid.UUID) (*domain.IdentityRecord, error) {
	record := &domain.IdentityRecord{}
	query := `SELECT * FROM identity_records WHERE account_id = $1`
	err := r.db.GetContext(ctx, record, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, "failed to find identity record")
	}
	return record, nil
}

func (r *IdentityRepository) Upsert(ctx context.Context, record *domain.IdentityRecord) error {
	record.UpdatedAt = time.Now()
	query := `
		INSERT INTO identity_records (
			account_id, status, tier, reference, verified_at, expires_at, updated_at
		) VALUES (
			:account_id, :status, :tier, :reference, :verified_at, :expires_at, :updated_at
		)
		ON CONFLICT (account_id) DO UPDATE SET
			status = EXCLUDED.status,
			tier = EXCLUDED.tier,
			reference = EXCLUDED.reference,
			verified_at = EXCLUDED.verified_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.NamedExecContext(ctx, query, record)
	return errors.Wrap(err, "failed to upsert identity record")
}
