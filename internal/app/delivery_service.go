package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"salon_reminder_service/internal/domain/delivery"

	"github.com/sirupsen/logrus"
)

// DeliveryService ingests asynchronous provider status callbacks and
// reconciles them against the send log. It is purely diagnostic: no outbound
// action is ever taken on a failed status.
type DeliveryService struct {
	deliveryRepo delivery.Repository
	logger       *logrus.Entry
	now          Clock
}

func NewDeliveryService(dr delivery.Repository, logger *logrus.Entry, now Clock) *DeliveryService {
	if now == nil {
		now = time.Now
	}
	return &DeliveryService{deliveryRepo: dr, logger: logger, now: now}
}

// IngestWebhook processes one provider callback envelope. Envelopes for
// other objects, unknown statuses and unparsable timestamps are dropped
// without error: the HTTP layer always acknowledges 200 so the provider
// never enters a retry storm.
func (s *DeliveryService) IngestWebhook(ctx context.Context, env *delivery.WebhookEnvelope) error {
	if env.Object != delivery.WebhookObject {
		s.logger.WithField("object", env.Object).Debug("ignoring webhook for foreign object")
		return nil
	}

	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for i := range change.Value.Statuses {
				s.ingestStatus(ctx, &change.Value.Statuses[i])
			}
			for i := range change.Value.Messages {
				msg := &change.Value.Messages[i]
				body := ""
				if msg.Text != nil {
					body = msg.Text.Body
				}
				s.logger.WithFields(logrus.Fields{
					"from": msg.From,
					"type": msg.Type,
					"body": body,
				}).Info("inbound message received")
			}
		}
	}
	return nil
}

func (s *DeliveryService) ingestStatus(ctx context.Context, ws *delivery.WebhookStatus) {
	status := delivery.Status(ws.Status)
	if !status.Known() {
		s.logger.WithFields(logrus.Fields{
			"provider_message_id": ws.ID,
			"status":              ws.Status,
		}).Warn("dropping unknown delivery status")
		return
	}

	unix, err := strconv.ParseInt(ws.Timestamp, 10, 64)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"provider_message_id": ws.ID,
			"timestamp":           ws.Timestamp,
		}).Warn("dropping status event with unparsable timestamp")
		return
	}

	event := &delivery.StatusEvent{
		ProviderMessageID: ws.ID,
		Status:            status,
		EventTimestamp:    time.Unix(unix, 0).UTC(),
		ReceivedAt:        s.now(),
	}
	if len(ws.Errors) > 0 {
		event.ErrorCode.Int32 = ws.Errors[0].Code
		event.ErrorCode.Valid = true
		event.ErrorTitle.String = ws.Errors[0].Title
		event.ErrorTitle.Valid = true
		event.ErrorDetail.String = ws.Errors[0].Message
		event.ErrorDetail.Valid = true
	}

	if err := s.deliveryRepo.UpsertStatusEvent(ctx, event); err != nil {
		s.logger.WithError(err).WithField("provider_message_id", ws.ID).Error("failed to upsert status event")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"provider_message_id": ws.ID,
		"status":              status,
	}).Debug("delivery status recorded")
}

// MessageStatus returns the current status for one provider message id.
func (s *DeliveryService) MessageStatus(ctx context.Context, providerMessageID string) (delivery.Status, error) {
	status, err := s.deliveryRepo.CurrentStatus(ctx, providerMessageID)
	if err != nil {
		return "", fmt.Errorf("resolving status for message %s: %w", providerMessageID, err)
	}
	return status, nil
}

// ListStatuses returns per-message current statuses, optionally filtered by
// recipient, over a date range.
func (s *DeliveryService) ListStatuses(ctx context.Context, recipient string, from, to time.Time) ([]*delivery.MessageStatus, error) {
	statuses, err := s.deliveryRepo.ListMessageStatuses(ctx, recipient, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing message statuses: %w", err)
	}
	return statuses, nil
}

// Stats aggregates current statuses over a date range.
func (s *DeliveryService) Stats(ctx context.Context, from, to time.Time) (*delivery.StatusCounts, error) {
	counts, err := s.deliveryRepo.CountByStatus(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregating delivery stats: %w", err)
	}
	return counts, nil
}

// Failures returns the failure breakdown grouped by error code with the
// affected recipients.
func (s *DeliveryService) Failures(ctx context.Context, from, to time.Time) ([]*delivery.FailureGroup, error) {
	groups, err := s.deliveryRepo.FailureBreakdown(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("building failure breakdown: %w", err)
	}
	return groups, nil
}
