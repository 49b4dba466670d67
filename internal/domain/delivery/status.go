package delivery

// Status is a provider-reported delivery state for a sent message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
	// StatusPending is a derived state for messages with no events yet; it is
	// never stored.
	StatusPending Status = "pending"
)

// Rank orders statuses for tie-breaking when two events carry the same
// provider timestamp: sent < delivered < read, with failed terminal. Unknown
// statuses rank lowest.
func (s Status) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	case StatusFailed:
		return 4
	default:
		return 0
	}
}

// Known reports whether the status is one the provider is expected to send.
func (s Status) Known() bool {
	return s.Rank() > 0
}
