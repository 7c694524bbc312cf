package bookings

import (
	"time"

	"github.com/google/uuid"
)

// BookingCreated is emitted exactly once per committed booking. The price
// fields give the settlement reconciler everything it needs without a
// read back into the store.
type BookingCreated struct {
	Header EventHeader `json:"header"`

	BookingID   uuid.UUID `json:"booking_id"`
	ResourceID  uuid.UUID `json:"resource_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	Status      string    `json:"status"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
}

// BookingStatusUpdated moves a booking out of its provisional state. It
// is re-appliable: consumers must treat repeated deliveries as no-ops.
type BookingStatusUpdated struct {
	Header EventHeader `json:"header"`

	BookingID uuid.UUID `json:"booking_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
}

// BookingConfirmed is the follow-on event for the terminal-success path,
// consumed by collaborators outside this core (receipts, notifications).
type BookingConfirmed struct {
	Header EventHeader `json:"header"`

	BookingID   uuid.UUID `json:"booking_id"`
	ResourceID  uuid.UUID `json:"resource_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// BookingCancelled is the follow-on event for the terminal-failure path,
// consumed by the refund flow.
type BookingCancelled struct {
	Header EventHeader `json:"header"`

	BookingID   uuid.UUID `json:"booking_id"`
	ResourceID  uuid.UUID `json:"resource_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// CalendarBlockReceived is produced by the external calendar importer for
// every blocked interval found in a property's .ics feed.
type CalendarBlockReceived struct {
	Header EventHeader `json:"header"`

	ResourceID    uuid.UUID `json:"resource_id"`
	StartUTC      time.Time `json:"start_utc"`
	EndUTC        time.Time `json:"end_utc"`
	SourceUID     string    `json:"source_uid"`
	SourceSummary string    `json:"source_summary"`
}
