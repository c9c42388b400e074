package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"vledger/internal/domain"
	"vledger/pkg/errors"
)

type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, ev *domain.TransitionEvent) error {
	query := `
		INSERT INTO transition_events (
			id, kind, account_id, actor_id, detail, created_at
		) VALUES (
			:id, :kind, :account_id, :actor_id, :detail, :created_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, ev)
	return errors.Wrap(err, "failed to create transition event")
}

func (r *EventRepository) FindRecent(ctx context.Context, limit, offset int) ([]*domain.TransitionEvent, error) {
	var events []*domain.TransitionEvent
	query := `SELECT * FROM transition_events ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	err := r.db.SelectContext(ctx, &events, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find recent events")
	}
	return events, nil
}
