package notification

import "time"

// Channel is the delivery channel a notification targets.
type Channel string

const (
	ChannelInApp Channel = "IN_APP"
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

// Status tracks a notification from creation to being read.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusRead    Status = "READ"
)

const (
	// KindCreditApproved is sent when a credit is approved manually or automatically.
	KindCreditApproved = "credit_approved"
	// KindCreditRejected is sent when an administrator rejects a credit.
	KindCreditRejected = "credit_rejected"
	// KindCreditDisbursed is sent when credit funds reach the savings account.
	KindCreditDisbursed = "credit_disbursed"
	// KindCreditCompleted is sent when the final repayment clears a credit.
	KindCreditCompleted = "credit_completed"
)

// Message describes a notification payload handed to a Notifier.
type Message struct {
	Kind     string
	UserID   string
	Channel  Channel
	Title    string
	Body     string
	Metadata map[string]string
}

// Notification is a stored inbox item.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      Channel           `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Status    Status            `json:"status"`
	SentAt    *time.Time        `json:"sent_at,omitempty"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ListFilter narrows inbox listings. A zero Limit falls back to DefaultLimit.
type ListFilter struct {
	Type       Channel
	UnreadOnly bool
	Limit      int
}

// DefaultLimit caps inbox listings when no limit is requested.
const DefaultLimit = 50
