package app

import (
	"context"
	"fmt"
	"time"

	"salon_reminder_service/internal/domain/appointment"
	"salon_reminder_service/internal/domain/catalog"
	"salon_reminder_service/internal/domain/recurrence"

	"github.com/sirupsen/logrus"
)

// MaterializerService turns recurrence rules into concrete appointment rows.
// EnsureOccurrence is idempotent: re-running it for the same rule and date is
// a no-op, which is what keeps the two independent schedulers (and repeated
// range queries) from double-booking a client.
type MaterializerService struct {
	ruleRepo         recurrence.Repository
	apptRepo         appointment.Repository
	catalog          catalog.Catalog
	logger           *logrus.Entry
	defaultStartTime string // "HH:MM", used when the rule has no preferred time
	now              Clock
}

func NewMaterializerService(
	rr recurrence.Repository,
	ar appointment.Repository,
	cat catalog.Catalog,
	logger *logrus.Entry,
	defaultStartTime string,
	now Clock,
) *MaterializerService {
	if now == nil {
		now = time.Now
	}
	return &MaterializerService{
		ruleRepo:         rr,
		apptRepo:         ar,
		catalog:          cat,
		logger:           logger,
		defaultStartTime: defaultStartTime,
		now:              now,
	}
}

// EnsureOccurrence guarantees that exactly one non-cancelled appointment
// exists for the rule's client on the given date. An existing appointment is
// returned unchanged regardless of which rule produced it; only a creation
// advances the rule's cached schedule.
func (s *MaterializerService) EnsureOccurrence(ctx context.Context, rule *recurrence.Rule, date time.Time) (*appointment.Appointment, error) {
	date = recurrence.DateOnly(date)

	existing, err := s.apptRepo.ListByClientAndDate(ctx, rule.ClientID, date)
	if err != nil {
		return nil, fmt.Errorf("checking existing appointments for client %d on %s: %w",
			rule.ClientID, date.Format("2006-01-02"), err)
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	svc, err := s.catalog.GetServiceByID(ctx, rule.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("resolving service %d for rule %d: %w", rule.ServiceID, rule.ID, err)
	}

	startTime := s.defaultStartTime
	if rule.PreferredTime.Valid {
		startTime = rule.PreferredTime.String
	}
	endTime, err := addMinutes(startTime, svc.DurationMinutes)
	if err != nil {
		return nil, fmt.Errorf("computing end time for rule %d: %w", rule.ID, err)
	}

	appt := &appointment.Appointment{
		ClientID:     rule.ClientID,
		StylistID:    rule.StylistID,
		ServiceID:    rule.ServiceID,
		Date:         date,
		StartTime:    startTime,
		EndTime:      endTime,
		Status:       appointment.StatusScheduled,
		ReminderSent: false,
	}
	appt.SourceRuleID.Int64 = rule.ID
	appt.SourceRuleID.Valid = true

	if err := s.apptRepo.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("creating appointment for rule %d on %s: %w",
			rule.ID, date.Format("2006-01-02"), err)
	}

	next, err := recurrence.NextOccurrence(*rule, date)
	if err != nil {
		s.logger.WithError(err).WithField("rule_id", rule.ID).Warn("could not compute next occurrence")
	} else if err := s.ruleRepo.AdvanceSchedule(ctx, rule.ID, date, next); err != nil {
		s.logger.WithError(err).WithField("rule_id", rule.ID).Error("failed to advance rule schedule")
	}

	s.logger.WithFields(logrus.Fields{
		"rule_id":        rule.ID,
		"client_id":      rule.ClientID,
		"appointment_id": appt.ID,
		"date":           date.Format("2006-01-02"),
		"start_time":     startTime,
	}).Info("appointment materialized")
	return appt, nil
}

// EnsureOccurrencesInRange expands the rule over [start, end] and ensures
// each resulting date, skipping dates that already have a matching
// appointment.
func (s *MaterializerService) EnsureOccurrencesInRange(ctx context.Context, rule *recurrence.Rule, start, end time.Time) ([]*appointment.Appointment, error) {
	dates, err := recurrence.OccurrencesInRange(*rule, start, end)
	if err != nil {
		return nil, fmt.Errorf("expanding rule %d: %w", rule.ID, err)
	}

	appts := make([]*appointment.Appointment, 0, len(dates))
	for _, date := range dates {
		appt, err := s.EnsureOccurrence(ctx, rule, date)
		if err != nil {
			// One bad date must not abort the rest of the range.
			s.logger.WithError(err).WithFields(logrus.Fields{
				"rule_id": rule.ID,
				"date":    date.Format("2006-01-02"),
			}).Error("failed to ensure occurrence")
			continue
		}
		appts = append(appts, appt)
	}
	return appts, nil
}

// MaterializeAllUpcoming runs the daily materialization pass: every active
// rule is expanded over the configured horizon so recurring clients appear on
// the calendar without manual re-entry.
func (s *MaterializerService) MaterializeAllUpcoming(ctx context.Context, horizonDays int) error {
	rules, err := s.ruleRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("listing active rules: %w", err)
	}

	start := recurrence.DateOnly(s.now())
	end := start.AddDate(0, 0, horizonDays)
	for _, rule := range rules {
		if _, err := s.EnsureOccurrencesInRange(ctx, rule, start, end); err != nil {
			s.logger.WithError(err).WithField("rule_id", rule.ID).Error("materialization pass failed for rule")
		}
	}
	s.logger.WithFields(logrus.Fields{
		"rules":   len(rules),
		"horizon": horizonDays,
	}).Info("materialization pass complete")
	return nil
}

func addMinutes(hhmm string, minutes int) (string, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return "", fmt.Errorf("invalid start time %q: %w", hhmm, err)
	}
	return parsed.Add(time.Duration(minutes) * time.Minute).Format("15:04"), nil
}
