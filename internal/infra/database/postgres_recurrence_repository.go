package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salon_reminder_service/internal/domain/recurrence"
)

type PostgresRecurrenceRepository struct {
	db *sql.DB
}

func NewPostgresRecurrenceRepository(db *sql.DB) *PostgresRecurrenceRepository {
	return &PostgresRecurrenceRepository{db: db}
}

const ruleColumns = `id, client_id, service_id, stylist_id, frequency, day_of_week, day_of_month,
	preferred_time, is_active, last_fired_date, next_occurrence_date, created_at, updated_at`

func (r *PostgresRecurrenceRepository) Create(ctx context.Context, rule *recurrence.Rule) error {
	query := `INSERT INTO recurrence_rules
			(client_id, service_id, stylist_id, frequency, day_of_week, day_of_month,
			 preferred_time, is_active, next_occurrence_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rule.ClientID, rule.ServiceID, rule.StylistID, rule.Frequency,
		rule.DayOfWeek, rule.DayOfMonth, rule.PreferredTime, rule.IsActive,
		rule.NextOccurrenceDate,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating recurrence rule: %w", err)
	}
	return nil
}

func (r *PostgresRecurrenceRepository) GetByID(ctx context.Context, id int64) (*recurrence.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurrence_rules WHERE id = $1`
	rule := &recurrence.Rule{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rule.ID, &rule.ClientID, &rule.ServiceID, &rule.StylistID, &rule.Frequency,
		&rule.DayOfWeek, &rule.DayOfMonth, &rule.PreferredTime, &rule.IsActive,
		&rule.LastFiredDate, &rule.NextOccurrenceDate, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("error getting recurrence rule by ID: %w", err)
	}
	return rule, nil
}

func (r *PostgresRecurrenceRepository) Update(ctx context.Context, rule *recurrence.Rule) error {
	query := `UPDATE recurrence_rules
		SET service_id = $1, stylist_id = $2, frequency = $3, day_of_week = $4,
			day_of_month = $5, preferred_time = $6, is_active = $7,
			next_occurrence_date = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rule.ServiceID, rule.StylistID, rule.Frequency, rule.DayOfWeek,
		rule.DayOfMonth, rule.PreferredTime, rule.IsActive,
		rule.NextOccurrenceDate, rule.ID,
	).Scan(&rule.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrRuleNotFound
		}
		return fmt.Errorf("error updating recurrence rule: %w", err)
	}
	return nil
}

func (r *PostgresRecurrenceRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE recurrence_rules SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error deactivating recurrence rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deactivation result: %w", err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *PostgresRecurrenceRepository) ListActive(ctx context.Context) ([]*recurrence.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurrence_rules WHERE is_active = TRUE ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing active recurrence rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *PostgresRecurrenceRepository) ListActiveForClient(ctx context.Context, clientID int64) ([]*recurrence.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM recurrence_rules
		WHERE is_active = TRUE AND client_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("error listing recurrence rules for client: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *PostgresRecurrenceRepository) AdvanceSchedule(ctx context.Context, id int64, firedDate, nextDate time.Time) error {
	query := `UPDATE recurrence_rules
		SET last_fired_date = $1, next_occurrence_date = $2, updated_at = NOW()
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, firedDate, nextDate, id)
	if err != nil {
		return fmt.Errorf("error advancing rule schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking schedule advance result: %w", err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func scanRules(rows *sql.Rows) ([]*recurrence.Rule, error) {
	rules := make([]*recurrence.Rule, 0)
	for rows.Next() {
		rule := &recurrence.Rule{}
		if err := rows.Scan(
			&rule.ID, &rule.ClientID, &rule.ServiceID, &rule.StylistID, &rule.Frequency,
			&rule.DayOfWeek, &rule.DayOfMonth, &rule.PreferredTime, &rule.IsActive,
			&rule.LastFiredDate, &rule.NextOccurrenceDate, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning recurrence rule row: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurrence rule rows: %w", err)
	}
	return rules, nil
}
