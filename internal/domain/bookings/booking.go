package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SystemRequesterID marks bookings created by the system itself, e.g.
// synthetic blocks imported from external calendar feeds.
var SystemRequesterID = uuid.Nil

type Booking struct {
	ID          uuid.UUID `json:"id"`
	ResourceID  uuid.UUID `json:"resource_id"`
	RequesterID uuid.UUID `json:"requester_id"`

	// CheckIn and CheckOut are calendar dates; the time component is
	// always midnight UTC. A stay occupies [CheckIn, CheckOut).
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`

	Guests     int             `json:"guests"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`

	Status        Status  `json:"status"`
	SettlementRef *string `json:"settlement_ref,omitempty"`

	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	CancellationReason *string   `json:"cancellation_reason,omitempty"`
}

// Occupies reports whether the booking still blocks its date range for
// other requesters. Cancelled and refunded bookings release their dates.
func (b Booking) Occupies() bool {
	return b.Status != StatusCancelled && b.Status != StatusRefunded
}

// Overlaps reports whether the booking's stay intersects [checkIn, checkOut).
// Both ranges are half-open, so a stay ending the day another begins does
// not overlap.
func (b Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn)
}

// Nights returns the length of the stay in nights.
func (b Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// ToDate truncates t to its calendar date in UTC.
func ToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
