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

type UsageRepository struct {
	db *sqlx.DB
}

func NewUsageRepository(db *sqlx.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Find(ctx context.Context, accountID uuid.UUID) (*domain.UsageWindow, error) {
	window := &domain.UsageWindow{}
	query := `SELECT * FROM usage_windows WHERE account_id = $1`
	err := r.db.GetContext(ctx, window, query, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "failed to find usage window")
	}
	return window, nil
}

func (r *UsageRepository) Save(ctx context.Context, window *domain.UsageWindow) error {
	window.UpdatedAt = time.Now()
	query := `
		INSERT INTO usage_windows (
			account_id, used_today, window_start, updated_at
		) VALUES (
			:account_id, :used_today, :window_start, :updated_at
		)
		ON CONFLICT (account_id) DO UPDATE SET
			used_today = EXCLUDED.used_today,
			window_start = EXCLUDED.window_start,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.NamedExecContext(ctx, query, window)
	return errors.Wrap(err, "failed to save usage window")
}
