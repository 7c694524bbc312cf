package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "bookings/internal/domain/bookings"
)

// InMemoryBookingsRepo keeps bookings in a map and enforces the same
// write-time overlap constraint as the Postgres exclusion constraint,
// serialized by a store-wide mutex. It backs the unit and pipeline tests
// where a database is not available.
type InMemoryBookingsRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]domain.Booking
}

func NewInMemoryBookingsRepo() *InMemoryBookingsRepo {
	return &InMemoryBookingsRepo{
		bookings: make(map[uuid.UUID]domain.Booking),
	}
}

func (r *InMemoryBookingsRepo) CreateBooking(_ context.Context, b domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.Occupies() {
		for _, existing := range r.bookings {
			if existing.ResourceID == b.ResourceID && existing.Occupies() && existing.Overlaps(b.CheckIn, b.CheckOut) {
				return domain.ErrBookingConflict
			}
		}
	}

	r.bookings[b.ID] = b
	return nil
}

func (r *InMemoryBookingsRepo) IsOccupied(_ context.Context, resourceID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.bookings {
		if b.ResourceID == resourceID && b.Occupies() && b.Overlaps(checkIn, checkOut) {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryBookingsRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (r *InMemoryBookingsRepo) ListByResource(_ context.Context, resourceID uuid.UUID) ([]domain.Booking, error) {
	return r.listBy(func(b domain.Booking) bool { return b.ResourceID == resourceID }), nil
}

func (r *InMemoryBookingsRepo) ListByRequester(_ context.Context, requesterID uuid.UUID) ([]domain.Booking, error) {
	return r.listBy(func(b domain.Booking) bool { return b.RequesterID == requesterID }), nil
}

func (r *InMemoryBookingsRepo) UpdateStatus(
	_ context.Context,
	id uuid.UUID,
	from, to domain.Status,
	reason *string,
	settlementRef *string,
) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}

	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	if reason != nil {
		b.CancellationReason = reason
	}
	if settlementRef != nil {
		b.SettlementRef = settlementRef
	}
	r.bookings[id] = b
	return true, nil
}

func (r *InMemoryBookingsRepo) listBy(match func(domain.Booking) bool) []domain.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Booking
	for _, b := range r.bookings {
		if match(b) {
			result = append(result, b)
		}
	}
	return result
}
