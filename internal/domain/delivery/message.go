package delivery

import (
	"database/sql"
	"time"
)

// SentMessage records one successful gateway call. Exactly one row exists
// per provider message id.
type SentMessage struct {
	ID                int64
	ProviderMessageID string
	RecipientPhone    string
	TemplateName      string
	AppointmentIDs    []int64
	SentAt            time.Time
}

// StatusEvent is one provider callback for a sent message. Multiple events
// arrive per message id as the status progresses; rows are keyed by
// (provider_message_id, status) so a repeated identical delivery overwrites
// rather than duplicates.
type StatusEvent struct {
	ID                int64
	ProviderMessageID string
	Status            Status
	EventTimestamp    time.Time
	ErrorCode         sql.NullInt32
	ErrorTitle        sql.NullString
	ErrorDetail       sql.NullString
	ReceivedAt        time.Time
}

// MessageStatus pairs a sent message with its current delivery state. The
// current state is the event with the latest provider timestamp, not the
// latest arrival.
type MessageStatus struct {
	ProviderMessageID string
	RecipientPhone    string
	TemplateName      string
	SentAt            time.Time
	CurrentStatus     Status
	StatusAt          sql.NullTime
	ErrorCode         sql.NullInt32
	ErrorDetail       sql.NullString
}

// StatusCounts aggregates current statuses over a date range. Pending counts
// sent messages that have produced no events yet.
type StatusCounts struct {
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Read      int `json:"read"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

// FailureGroup is one error code's slice of the failure breakdown.
type FailureGroup struct {
	ErrorCode  int32    `json:"error_code"`
	ErrorTitle string   `json:"error_title"`
	Count      int      `json:"count"`
	Recipients []string `json:"recipients"`
}
