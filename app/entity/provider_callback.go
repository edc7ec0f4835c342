package entity

import "time"

const (
	ProviderCallbackStatusProcessed int32 = 10
	ProviderCallbackStatusRejected  int32 = 20
)

type ProviderCallback struct {
	ID uint64

	Provider        string
	ProviderEventID *string
	EventType       string
	Signature       string
	PayloadJSON     string
	Status          int32
	Error           *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
