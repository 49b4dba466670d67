package recurrence

import (
	"context"
	"time"
)

// Repository defines persistence operations for recurrence rules.
type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, id int64) (*Rule, error)
	Update(ctx context.Context, rule *Rule) error
	// Deactivate soft-deletes a rule. Rules are never hard-deleted while
	// historical appointments reference them.
	Deactivate(ctx context.Context, id int64) error
	ListActive(ctx context.Context) ([]*Rule, error)
	ListActiveForClient(ctx context.Context, clientID int64) ([]*Rule, error)
	// AdvanceSchedule updates the cached firing dates after a successful
	// materialization.
	AdvanceSchedule(ctx context.Context, id int64, firedDate, nextDate time.Time) error
}
