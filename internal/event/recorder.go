// Package event records observable state transitions for the event log.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vledger/internal/domain"
	"vledger/pkg/logger"
)

// Repository persists transition events.
type Repository interface {
	Create(ctx context.Context, ev *domain.TransitionEvent) error
	FindRecent(ctx context.Context, limit, offset int) ([]*domain.TransitionEvent, error)
}

// Recorder writes transition events to the repository and mirrors them to the
// structured log. Event persistence is observability, not bookkeeping: a
// failed write is logged and does not abort the operation that emitted it.
type Recorder struct {
	repo   Repository
	logger logger.Logger
}

func NewRecorder(repo Repository, log logger.Logger) *Recorder {
	return &Recorder{repo: repo, logger: log}
}

// Emit stores one transition event.
func (r *Recorder) Emit(ctx context.Context, kind domain.EventKind, account, actor *uuid.UUID, detail domain.Metadata) {
	ev := &domain.TransitionEvent{
		ID:        uuid.New(),
		Kind:      kind,
		AccountID: account,
		ActorID:   actor,
		Detail:    detail,
		CreatedAt: time.Now(),
	}

	fields := map[string]interface{}{"kind": kind, "event_id": ev.ID}
	if account != nil {
		fields["account_id"] = *account
	}
	for k, v := range detail {
		fields[k] = v
	}
	r.logger.Info("State transition", fields)

	if r.repo == nil {
		return
	}
	if err := r.repo.Create(ctx, ev); err != nil {
		r.logger.Error("Failed to persist transition event", map[string]interface{}{
			"kind":  kind,
			"error": err.Error(),
		})
	}
}

// Recent lists the most recent transition events.
func (r *Recorder) Recent(ctx context.Context, limit, offset int) ([]*domain.TransitionEvent, error) {
	if r.repo == nil {
		return nil, nil
	}
	return r.repo.FindRecent(ctx, limit, offset)
}
