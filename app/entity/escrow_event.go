package entity

import "time"

// EscrowEvent is one journal row describing the outcome of an escrow operation
// or a processor notification.
type EscrowEvent struct {
	ID uint64

	OrderID            string
	PaymentReferenceID string

	EventType string

	Status      *string
	FailureKind *string
	Amount      int64

	ProviderEventID *string
	Message         *string

	CreatedAt time.Time
}
