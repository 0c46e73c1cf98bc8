package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the provider-side state of a sent email.
type DeliveryStatus string

const (
	DeliveryQueued    DeliveryStatus = "queued"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryOpened    DeliveryStatus = "opened"
	DeliveryClicked   DeliveryStatus = "clicked"
	DeliveryFailed    DeliveryStatus = "failed"
)

// SentStatuses count as "already sent".
var SentStatuses = []DeliveryStatus{DeliverySent, DeliveryDelivered, DeliveryOpened, DeliveryClicked}

// IsSent reports whether s counts as already sent.
func (s DeliveryStatus) IsSent() bool {
	for _, v := range SentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// DeliveryEvent is one send attempt for a startup's feedback email.
type DeliveryEvent struct {
	ID         uuid.UUID
	StartupID  uuid.UUID
	RoundName  string
	ToAddress  string
	Subject    string
	MessageID  *string
	Status     DeliveryStatus
	Error      *string
	ArchiveKey *string
	CreatedAt  time.Time
}
