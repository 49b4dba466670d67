package appointment

import (
	"database/sql"
	"time"
)

// Status tracks the lifecycle of a booking.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Appointment is a concrete booking, created either directly by a user or
// materialized from a recurrence rule (SourceRuleID set). Date carries the
// calendar day; StartTime/EndTime are wall-clock "HH:MM" strings.
type Appointment struct {
	ID               int64
	ClientID         int64
	StylistID        int64
	ServiceID        int64
	Date             time.Time
	StartTime        string
	EndTime          string
	Status           Status
	ReminderSent     bool
	ReminderAttempts int
	SourceRuleID     sql.NullInt64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StartAt combines Date and StartTime into a point in time, in the date's
// location. The zero time is returned when StartTime does not parse.
func (a *Appointment) StartAt() time.Time {
	parsed, err := time.Parse("15:04", a.StartTime)
	if err != nil {
		return time.Time{}
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, a.Date.Location())
}
