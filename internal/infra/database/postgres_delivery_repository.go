package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salon_reminder_service/internal/domain/delivery"

	"github.com/lib/pq"
)

type PostgresDeliveryRepository struct {
	db *sql.DB
}

func NewPostgresDeliveryRepository(db *sql.DB) *PostgresDeliveryRepository {
	return &PostgresDeliveryRepository{db: db}
}

// statusRankSQL mirrors delivery.Status.Rank for tie-breaking events that
// share a provider timestamp.
const statusRankSQL = `CASE status
	WHEN 'failed' THEN 4
	WHEN 'read' THEN 3
	WHEN 'delivered' THEN 2
	WHEN 'sent' THEN 1
	ELSE 0 END`

func (r *PostgresDeliveryRepository) RecordSent(ctx context.Context, msg *delivery.SentMessage) error {
	query := `INSERT INTO sent_messages
			(provider_message_id, recipient_phone, template_name, appointment_ids, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		msg.ProviderMessageID, msg.RecipientPhone, msg.TemplateName,
		pq.Array(msg.AppointmentIDs), msg.SentAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("error recording sent message: %w", err)
	}
	return nil
}

func (r *PostgresDeliveryRepository) GetSentMessage(ctx context.Context, providerMessageID string) (*delivery.SentMessage, error) {
	query := `SELECT id, provider_message_id, recipient_phone, template_name, appointment_ids, sent_at
		FROM sent_messages WHERE provider_message_id = $1`
	msg := &delivery.SentMessage{}
	var apptIDs pq.Int64Array
	err := r.db.QueryRowContext(ctx, query, providerMessageID).Scan(
		&msg.ID, &msg.ProviderMessageID, &msg.RecipientPhone,
		&msg.TemplateName, &apptIDs, &msg.SentAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("error getting sent message: %w", err)
	}
	msg.AppointmentIDs = apptIDs
	return msg, nil
}

// UpsertStatusEvent inserts or overwrites the event for a
// (provider_message_id, status) pair. Repeated identical deliveries from the
// provider land on the same row.
func (r *PostgresDeliveryRepository) UpsertStatusEvent(ctx context.Context, event *delivery.StatusEvent) error {
	query := `INSERT INTO delivery_status_events
			(provider_message_id, status, event_timestamp, error_code, error_title, error_detail, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider_message_id, status) DO UPDATE
		SET event_timestamp = EXCLUDED.event_timestamp,
			error_code = EXCLUDED.error_code,
			error_title = EXCLUDED.error_title,
			error_detail = EXCLUDED.error_detail,
			received_at = EXCLUDED.received_at
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		event.ProviderMessageID, event.Status, event.EventTimestamp,
		event.ErrorCode, event.ErrorTitle, event.ErrorDetail, event.ReceivedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("error upserting delivery status event: %w", err)
	}
	return nil
}

// CurrentStatus resolves the message's state from the event with the latest
// provider timestamp; rank breaks ties so an out-of-order "sent" never
// shadows a "delivered" carrying the same timestamp.
func (r *PostgresDeliveryRepository) CurrentStatus(ctx context.Context, providerMessageID string) (delivery.Status, error) {
	query := `SELECT status FROM delivery_status_events
		WHERE provider_message_id = $1
		ORDER BY event_timestamp DESC, ` + statusRankSQL + ` DESC
		LIMIT 1`
	var status delivery.Status
	err := r.db.QueryRowContext(ctx, query, providerMessageID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			// No events yet: verify the message exists, then report pending.
			if _, lookupErr := r.GetSentMessage(ctx, providerMessageID); lookupErr != nil {
				return "", lookupErr
			}
			return delivery.StatusPending, nil
		}
		return "", fmt.Errorf("error resolving current delivery status: %w", err)
	}
	return status, nil
}

func (r *PostgresDeliveryRepository) ListMessageStatuses(ctx context.Context, recipient string, from, to time.Time) ([]*delivery.MessageStatus, error) {
	query := `SELECT m.provider_message_id, m.recipient_phone, m.template_name, m.sent_at,
			COALESCE(e.status, 'pending'), e.event_timestamp, e.error_code, e.error_detail
		FROM sent_messages m
		LEFT JOIN LATERAL (
			SELECT status, event_timestamp, error_code, error_detail
			FROM delivery_status_events
			WHERE provider_message_id = m.provider_message_id
			ORDER BY event_timestamp DESC, ` + statusRankSQL + ` DESC
			LIMIT 1
		) e ON TRUE
		WHERE m.sent_at >= $1 AND m.sent_at < $2
		  AND ($3 = '' OR m.recipient_phone = $3)
		ORDER BY m.sent_at DESC`
	rows, err := r.db.QueryContext(ctx, query, from, to, recipient)
	if err != nil {
		return nil, fmt.Errorf("error listing message statuses: %w", err)
	}
	defer rows.Close()

	statuses := make([]*delivery.MessageStatus, 0)
	for rows.Next() {
		ms := &delivery.MessageStatus{}
		if err := rows.Scan(
			&ms.ProviderMessageID, &ms.RecipientPhone, &ms.TemplateName, &ms.SentAt,
			&ms.CurrentStatus, &ms.StatusAt, &ms.ErrorCode, &ms.ErrorDetail,
		); err != nil {
			return nil, fmt.Errorf("error scanning message status row: %w", err)
		}
		statuses = append(statuses, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message status rows: %w", err)
	}
	return statuses, nil
}

func (r *PostgresDeliveryRepository) CountByStatus(ctx context.Context, from, to time.Time) (*delivery.StatusCounts, error) {
	query := `SELECT COALESCE(e.status, 'pending') AS current_status, COUNT(*)
		FROM sent_messages m
		LEFT JOIN LATERAL (
			SELECT status
			FROM delivery_status_events
			WHERE provider_message_id = m.provider_message_id
			ORDER BY event_timestamp DESC, ` + statusRankSQL + ` DESC
			LIMIT 1
		) e ON TRUE
		WHERE m.sent_at >= $1 AND m.sent_at < $2
		GROUP BY current_status`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("error aggregating delivery statuses: %w", err)
	}
	defer rows.Close()

	counts := &delivery.StatusCounts{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("error scanning status count row: %w", err)
		}
		switch delivery.Status(status) {
		case delivery.StatusSent:
			counts.Sent = count
		case delivery.StatusDelivered:
			counts.Delivered = count
		case delivery.StatusRead:
			counts.Read = count
		case delivery.StatusFailed:
			counts.Failed = count
		case delivery.StatusPending:
			counts.Pending = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status count rows: %w", err)
	}
	return counts, nil
}

func (r *PostgresDeliveryRepository) FailureBreakdown(ctx context.Context, from, to time.Time) ([]*delivery.FailureGroup, error) {
	query := `SELECT COALESCE(e.error_code, 0), COALESCE(MAX(e.error_title), ''), COUNT(*),
			ARRAY_AGG(DISTINCT m.recipient_phone)
		FROM delivery_status_events e
		JOIN sent_messages m ON m.provider_message_id = e.provider_message_id
		WHERE e.status = 'failed'
		  AND m.sent_at >= $1 AND m.sent_at < $2
		GROUP BY e.error_code
		ORDER BY COUNT(*) DESC`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("error building failure breakdown: %w", err)
	}
	defer rows.Close()

	groups := make([]*delivery.FailureGroup, 0)
	for rows.Next() {
		group := &delivery.FailureGroup{}
		var recipients pq.StringArray
		if err := rows.Scan(&group.ErrorCode, &group.ErrorTitle, &group.Count, &recipients); err != nil {
			return nil, fmt.Errorf("error scanning failure group row: %w", err)
		}
		group.Recipients = recipients
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating failure group rows: %w", err)
	}
	return groups, nil
}
