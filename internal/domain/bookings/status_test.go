package bookings_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "bookings/internal/domain/bookings"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    domain.Status
		to      domain.Status
		allowed bool
	}{
		{domain.StatusPendingPayment, domain.StatusConfirmed, true},
		{domain.StatusPendingPayment, domain.StatusCancelled, true},
		{domain.StatusPendingPayment, domain.StatusCompleted, false},
		{domain.StatusPendingPayment, domain.StatusRefunded, false},
		{domain.StatusConfirmed, domain.StatusCompleted, true},
		{domain.StatusConfirmed, domain.StatusCancelled, true},
		{domain.StatusConfirmed, domain.StatusRefunded, true},
		{domain.StatusConfirmed, domain.StatusPendingPayment, false},
		{domain.StatusCompleted, domain.StatusCancelled, false},
		{domain.StatusCancelled, domain.StatusConfirmed, false},
		{domain.StatusRefunded, domain.StatusConfirmed, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, domain.StatusPendingPayment.IsTerminal())
	assert.False(t, domain.StatusConfirmed.IsTerminal())
	assert.True(t, domain.StatusCompleted.IsTerminal())
	assert.True(t, domain.StatusCancelled.IsTerminal())
	assert.True(t, domain.StatusRefunded.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	status, err := domain.ParseStatus("CONFIRMED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, status)

	_, err = domain.ParseStatus("SHIPPED")
	assert.Error(t, err)
}

func TestBooking_Overlaps(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, time.September, d, 0, 0, 0, 0, time.UTC)
	}

	b := domain.Booking{CheckIn: day(10), CheckOut: day(15)}

	assert.True(t, b.Overlaps(day(12), day(13)), "contained stay")
	assert.True(t, b.Overlaps(day(8), day(11)), "overlapping start")
	assert.True(t, b.Overlaps(day(14), day(20)), "overlapping end")
	assert.True(t, b.Overlaps(day(8), day(20)), "covering stay")

	assert.False(t, b.Overlaps(day(15), day(18)), "check-in on the day of check-out")
	assert.False(t, b.Overlaps(day(5), day(10)), "check-out on the day of check-in")
}

func TestBooking_Nights(t *testing.T) {
	b := domain.Booking{
		CheckIn:  time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, time.September, 13, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 3, b.Nights())
}

func TestToDate(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 23:30 Berlin time on the 10th is already the 10th in UTC too.
	d := domain.ToDate(time.Date(2026, time.September, 10, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC), d)

	// 00:30 Berlin time on the 11th is still the 10th in UTC.
	d = domain.ToDate(time.Date(2026, time.September, 11, 0, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC), d)
}
