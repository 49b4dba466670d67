package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salon_reminder_service/internal/domain/appointment"

	"github.com/lib/pq" // For pq.Array and driver registration
)

type PostgresAppointmentRepository struct {
	db *sql.DB
}

func NewPostgresAppointmentRepository(db *sql.DB) *PostgresAppointmentRepository {
	return &PostgresAppointmentRepository{db: db}
}

const appointmentColumns = `id, client_id, stylist_id, service_id, date, start_time, end_time,
	status, reminder_sent, reminder_attempts, source_rule_id, created_at, updated_at`

func (r *PostgresAppointmentRepository) Create(ctx context.Context, appt *appointment.Appointment) error {
	query := `INSERT INTO appointments
			(client_id, stylist_id, service_id, date, start_time, end_time, status,
			 reminder_sent, source_rule_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		appt.ClientID, appt.StylistID, appt.ServiceID, appt.Date,
		appt.StartTime, appt.EndTime, appt.Status, appt.ReminderSent, appt.SourceRuleID,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating appointment: %w", err)
	}
	return nil
}

func (r *PostgresAppointmentRepository) GetByID(ctx context.Context, id int64) (*appointment.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt := &appointment.Appointment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&appt.ID, &appt.ClientID, &appt.StylistID, &appt.ServiceID, &appt.Date,
		&appt.StartTime, &appt.EndTime, &appt.Status, &appt.ReminderSent,
		&appt.ReminderAttempts, &appt.SourceRuleID, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("error getting appointment by ID: %w", err)
	}
	return appt, nil
}

func (r *PostgresAppointmentRepository) ListByClientAndDate(ctx context.Context, clientID int64, date time.Time) ([]*appointment.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE client_id = $1 AND date = $2 AND status != $3
		ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, query, clientID, dateOnly(date), appointment.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("error listing appointments by client and date: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *PostgresAppointmentRepository) ListForDate(ctx context.Context, date time.Time) ([]*appointment.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE date = $1 ORDER BY client_id, start_time`
	rows, err := r.db.QueryContext(ctx, query, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("error listing appointments for date: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// CountPendingReminders backs the daily batch fast path: no joins, one
// aggregate.
func (r *PostgresAppointmentRepository) CountPendingReminders(ctx context.Context, date time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM appointments
		WHERE date = $1 AND status = $2 AND reminder_sent = FALSE`
	var count int
	err := r.db.QueryRowContext(ctx, query, dateOnly(date), appointment.StatusScheduled).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting pending reminders: %w", err)
	}
	return count, nil
}

// ListPendingInWindow matches appointments whose start instant
// (date + start_time) falls within [from, to].
func (r *PostgresAppointmentRepository) ListPendingInWindow(ctx context.Context, from, to time.Time, maxAttempts int) ([]*appointment.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE status = $1
		  AND reminder_sent = FALSE
		  AND reminder_attempts < $2
		  AND (date + start_time::time) BETWEEN $3 AND $4
		ORDER BY date, start_time`
	rows, err := r.db.QueryContext(ctx, query, appointment.StatusScheduled, maxAttempts, from, to)
	if err != nil {
		return nil, fmt.Errorf("error listing appointments in reminder window: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *PostgresAppointmentRepository) MarkReminderSent(ctx context.Context, id int64) error {
	query := `UPDATE appointments SET reminder_sent = TRUE, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error marking reminder sent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking reminder mark result: %w", err)
	}
	if affected == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// MarkRemindedBulk flips reminder_sent for all ids in a single statement; a
// full batch firing produces one write regardless of how many rows it sent.
func (r *PostgresAppointmentRepository) MarkRemindedBulk(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE appointments SET reminder_sent = TRUE, updated_at = NOW()
		WHERE id = ANY($1::bigint[])`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("error bulk-marking reminders sent: %w", err)
	}
	return nil
}

func (r *PostgresAppointmentRepository) IncrementReminderAttempts(ctx context.Context, id int64) error {
	query := `UPDATE appointments
		SET reminder_attempts = reminder_attempts + 1, updated_at = NOW()
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("error incrementing reminder attempts: %w", err)
	}
	return nil
}

func (r *PostgresAppointmentRepository) UpdateStatus(ctx context.Context, id int64, status appointment.Status) error {
	query := `UPDATE appointments SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("error updating appointment status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking status update result: %w", err)
	}
	if affected == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func scanAppointments(rows *sql.Rows) ([]*appointment.Appointment, error) {
	appts := make([]*appointment.Appointment, 0)
	for rows.Next() {
		appt := &appointment.Appointment{}
		if err := rows.Scan(
			&appt.ID, &appt.ClientID, &appt.StylistID, &appt.ServiceID, &appt.Date,
			&appt.StartTime, &appt.EndTime, &appt.Status, &appt.ReminderSent,
			&appt.ReminderAttempts, &appt.SourceRuleID, &appt.CreatedAt, &appt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning appointment row: %w", err)
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointment rows: %w", err)
	}
	return appts, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
