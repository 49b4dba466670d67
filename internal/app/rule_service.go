package app

import (
	"context"
	"fmt"
	"time"

	"salon_reminder_service/internal/domain/catalog"
	"salon_reminder_service/internal/domain/recurrence"

	"github.com/sirupsen/logrus"
)

// RuleInput is the engine-facing contract for creating or updating a
// recurrence rule.
type RuleInput struct {
	ClientID      int64  `json:"clientId"`
	ServiceID     int64  `json:"serviceId"`
	StylistID     int64  `json:"stylistId"`
	Frequency     string `json:"frequency"`
	DayOfWeek     *int16 `json:"dayOfWeek,omitempty"`
	DayOfMonth    *int16 `json:"dayOfMonth,omitempty"`
	PreferredTime string `json:"preferredTime,omitempty"`
	IsActive      *bool  `json:"isActive,omitempty"`
}

var ErrMissingReference = fmt.Errorf("rule: clientId, serviceId and stylistId are required")

// RuleService owns recurrence rule lifecycle: synchronous validation at
// creation time (malformed rules never enter the schedulers), soft deletion,
// and the cached next-occurrence bookkeeping.
type RuleService struct {
	ruleRepo recurrence.Repository
	catalog  catalog.Catalog
	logger   *logrus.Entry
	now      Clock
}

func NewRuleService(rr recurrence.Repository, cat catalog.Catalog, logger *logrus.Entry, now Clock) *RuleService {
	if now == nil {
		now = time.Now
	}
	return &RuleService{ruleRepo: rr, catalog: cat, logger: logger, now: now}
}

func (s *RuleService) CreateRule(ctx context.Context, input RuleInput) (*recurrence.Rule, error) {
	rule, err := s.buildRule(ctx, input)
	if err != nil {
		return nil, err
	}

	next, err := recurrence.NextOccurrence(*rule, recurrence.DateOnly(s.now()).AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("computing first occurrence: %w", err)
	}
	rule.NextOccurrenceDate.Time = next
	rule.NextOccurrenceDate.Valid = true

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("creating recurrence rule: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"rule_id":   rule.ID,
		"client_id": rule.ClientID,
		"frequency": rule.Frequency,
		"next":      next.Format("2006-01-02"),
	}).Info("recurrence rule created")
	return rule, nil
}

func (s *RuleService) UpdateRule(ctx context.Context, id int64, input RuleInput) (*recurrence.Rule, error) {
	existing, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading rule %d: %w", id, err)
	}

	updated, err := s.buildRule(ctx, input)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.LastFiredDate = existing.LastFiredDate
	updated.CreatedAt = existing.CreatedAt

	next, err := recurrence.NextOccurrence(*updated, recurrence.DateOnly(s.now()).AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("recomputing next occurrence: %w", err)
	}
	updated.NextOccurrenceDate.Time = next
	updated.NextOccurrenceDate.Valid = true

	if err := s.ruleRepo.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("updating rule %d: %w", id, err)
	}
	s.logger.WithField("rule_id", id).Info("recurrence rule updated")
	return updated, nil
}

// DeactivateRule soft-deletes a rule. Already-materialized future
// appointments are left untouched.
func (s *RuleService) DeactivateRule(ctx context.Context, id int64) error {
	if err := s.ruleRepo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivating rule %d: %w", id, err)
	}
	s.logger.WithField("rule_id", id).Info("recurrence rule deactivated")
	return nil
}

func (s *RuleService) GetRule(ctx context.Context, id int64) (*recurrence.Rule, error) {
	return s.ruleRepo.GetByID(ctx, id)
}

func (s *RuleService) buildRule(ctx context.Context, input RuleInput) (*recurrence.Rule, error) {
	if input.ClientID == 0 || input.ServiceID == 0 || input.StylistID == 0 {
		return nil, ErrMissingReference
	}
	// Reject rules pointing at unknown services up front; the materializer
	// depends on the service duration.
	if _, err := s.catalog.GetServiceByID(ctx, input.ServiceID); err != nil {
		return nil, fmt.Errorf("resolving service %d: %w", input.ServiceID, err)
	}

	rule := &recurrence.Rule{
		ClientID:  input.ClientID,
		ServiceID: input.ServiceID,
		StylistID: input.StylistID,
		Frequency: recurrence.Frequency(input.Frequency),
		IsActive:  true,
	}
	if input.DayOfWeek != nil {
		rule.DayOfWeek.Int16 = *input.DayOfWeek
		rule.DayOfWeek.Valid = true
	}
	if input.DayOfMonth != nil {
		rule.DayOfMonth.Int16 = *input.DayOfMonth
		rule.DayOfMonth.Valid = true
	}
	if input.PreferredTime != "" {
		rule.PreferredTime.String = input.PreferredTime
		rule.PreferredTime.Valid = true
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}
