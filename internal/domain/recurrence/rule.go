package recurrence

import (
	"database/sql"
	"fmt"
	"time"
)

// Frequency determines how often a rule produces occurrences.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Rule is a declarative statement that a client should be booked (and
// reminded) on a repeating schedule. Weekly and biweekly rules anchor on
// DayOfWeek; monthly rules anchor on DayOfMonth. Rules are soft-deleted via
// IsActive so historical appointments can keep referencing them.
type Rule struct {
	ID                 int64
	ClientID           int64
	ServiceID          int64
	StylistID          int64
	Frequency          Frequency
	DayOfWeek          sql.NullInt16 // 0 = Sunday .. 6 = Saturday; set iff weekly/biweekly
	DayOfMonth         sql.NullInt16 // 1..31; set iff monthly
	PreferredTime      sql.NullString // "HH:MM"
	IsActive           bool
	LastFiredDate      sql.NullTime
	NextOccurrenceDate sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validation errors surfaced synchronously at rule creation/update time.
var (
	ErrInvalidFrequency  = fmt.Errorf("recurrence: unknown frequency")
	ErrMissingDayOfWeek  = fmt.Errorf("recurrence: weekly/biweekly rule requires day_of_week")
	ErrMissingDayOfMonth = fmt.Errorf("recurrence: monthly rule requires day_of_month")
	ErrDayOfWeekRange    = fmt.Errorf("recurrence: day_of_week must be between 0 and 6")
	ErrDayOfMonthRange   = fmt.Errorf("recurrence: day_of_month must be between 1 and 31")
	ErrAnchorMismatch    = fmt.Errorf("recurrence: anchor field does not match frequency")
	ErrInvalidTime       = fmt.Errorf("recurrence: preferred_time must be in HH:MM format")
)

// Validate enforces the anchor invariant: DayOfWeek is set iff the frequency
// is weekly or biweekly, DayOfMonth is set iff the frequency is monthly.
func (r *Rule) Validate() error {
	switch r.Frequency {
	case FrequencyWeekly, FrequencyBiweekly:
		if !r.DayOfWeek.Valid {
			return ErrMissingDayOfWeek
		}
		if r.DayOfMonth.Valid {
			return ErrAnchorMismatch
		}
		if r.DayOfWeek.Int16 < 0 || r.DayOfWeek.Int16 > 6 {
			return ErrDayOfWeekRange
		}
	case FrequencyMonthly:
		if !r.DayOfMonth.Valid {
			return ErrMissingDayOfMonth
		}
		if r.DayOfWeek.Valid {
			return ErrAnchorMismatch
		}
		if r.DayOfMonth.Int16 < 1 || r.DayOfMonth.Int16 > 31 {
			return ErrDayOfMonthRange
		}
	default:
		return ErrInvalidFrequency
	}

	if r.PreferredTime.Valid {
		if _, err := time.Parse("15:04", r.PreferredTime.String); err != nil {
			return ErrInvalidTime
		}
	}
	return nil
}
