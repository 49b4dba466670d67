package appointment

import (
	"context"
	"time"
)

// Repository defines persistence operations for appointments. The
// reminder-related queries back both schedulers; MarkRemindedBulk exists so
// a full batch firing produces a single write, not one write per row.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	// ListByClientAndDate returns the client's non-cancelled appointments on
	// the given date. The materializer's dedupe check.
	ListByClientAndDate(ctx context.Context, clientID int64, date time.Time) ([]*Appointment, error)
	ListForDate(ctx context.Context, date time.Time) ([]*Appointment, error)
	// CountPendingReminders is the lightweight fast-path query used by the
	// daily batch to short-circuit no-op days.
	CountPendingReminders(ctx context.Context, date time.Time) (int, error)
	// ListPendingInWindow returns scheduled, not-yet-reminded appointments
	// whose start instant falls within [from, to], excluding rows whose
	// reminder attempts have reached maxAttempts.
	ListPendingInWindow(ctx context.Context, from, to time.Time, maxAttempts int) ([]*Appointment, error)
	MarkReminderSent(ctx context.Context, id int64) error
	MarkRemindedBulk(ctx context.Context, ids []int64) error
	IncrementReminderAttempts(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
}
