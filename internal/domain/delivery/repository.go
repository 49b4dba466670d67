package delivery

import (
	"context"
	"time"
)

// Repository defines persistence for the send log and delivery status
// events. UpsertStatusEvent must be idempotent per (provider_message_id,
// status) pair.
type Repository interface {
	RecordSent(ctx context.Context, msg *SentMessage) error
	GetSentMessage(ctx context.Context, providerMessageID string) (*SentMessage, error)
	UpsertStatusEvent(ctx context.Context, event *StatusEvent) error
	// CurrentStatus resolves the message's state from the event with the
	// latest provider timestamp, rank-breaking ties.
	CurrentStatus(ctx context.Context, providerMessageID string) (Status, error)
	ListMessageStatuses(ctx context.Context, recipient string, from, to time.Time) ([]*MessageStatus, error)
	CountByStatus(ctx context.Context, from, to time.Time) (*StatusCounts, error)
	FailureBreakdown(ctx context.Context, from, to time.Time) ([]*FailureGroup, error)
}
