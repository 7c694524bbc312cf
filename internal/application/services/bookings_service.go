package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "bookings/internal/domain/bookings"
	"bookings/internal/observability/logs"
)

// MetaSettlementRef is the event metadata key that carries the external
// settlement reference alongside a status update.
const MetaSettlementRef = "settlement_ref"

//go:generate mockgen -destination=mocks/bookings_repo_mock.go -package=mocks . BookingsRepo
type BookingsRepo interface {
	CreateBooking(ctx context.Context, b domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListByResource(ctx context.Context, resourceID uuid.UUID) ([]domain.Booking, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Booking, error)
	IsOccupied(ctx context.Context, resourceID uuid.UUID, checkIn, checkOut time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, reason *string, settlementRef *string) (bool, error)
}

// TxManager runs fn atomically. The production implementation is a
// serializable Postgres transaction.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// EventPublisherFactory returns a publisher bound to the transaction in
// ctx, so events commit or roll back together with the booking row.
type EventPublisherFactory func(ctx context.Context) (EventPublisher, error)

// BookingsService owns the booking lifecycle: it is the only component
// that creates bookings and moves them through the state machine.
type BookingsService struct {
	repo             BookingsRepo
	tx               TxManager
	publisherFactory EventPublisherFactory
	nightlyRate      decimal.Decimal
	currency         string
	locks            keyedMutex
}

func NewBookingsService(
	repo BookingsRepo,
	tx TxManager,
	publisherFactory EventPublisherFactory,
	nightlyRate decimal.Decimal,
	currency string,
) *BookingsService {
	return &BookingsService{
		repo:             repo,
		tx:               tx,
		publisherFactory: publisherFactory,
		nightlyRate:      nightlyRate,
		currency:         currency,
	}
}

type CreateBookingRequest struct {
	ResourceID  uuid.UUID
	RequesterID uuid.UUID
	CheckIn     time.Time
	CheckOut    time.Time
	Guests      int
}

// CreateBooking validates the request, checks availability, persists the
// booking in PENDING_PAYMENT and publishes BookingCreated, all in one
// transaction. The availability check is an early exit; the store's
// exclusion constraint is what actually prevents a double booking.
func (s *BookingsService) CreateBooking(ctx context.Context, req CreateBookingRequest) (domain.Booking, error) {
	checkIn := domain.ToDate(req.CheckIn)
	checkOut := domain.ToDate(req.CheckOut)

	if !checkOut.After(checkIn) {
		return domain.Booking{}, fmt.Errorf("%w: check-out date must be after check-in date", domain.ErrValidation)
	}
	if req.Guests < 1 {
		return domain.Booking{}, fmt.Errorf("%w: guest count must be at least 1", domain.ErrValidation)
	}

	now := time.Now().UTC()
	b := domain.Booking{
		ID:          uuid.New(),
		ResourceID:  req.ResourceID,
		RequesterID: req.RequesterID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Guests:      req.Guests,
		TotalPrice:  s.totalPrice(checkIn, checkOut),
		Currency:    s.currency,
		Status:      domain.StatusPendingPayment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.tx.Do(ctx, func(ctx context.Context) error {
		occupied, err := s.repo.IsOccupied(ctx, b.ResourceID, checkIn, checkOut)
		if err != nil {
			return fmt.Errorf("failed to check availability: %w", err)
		}
		if occupied {
			return domain.ErrBookingConflict
		}

		if err := s.repo.CreateBooking(ctx, b); err != nil {
			return err
		}

		publisher, err := s.publisherFactory(ctx)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}

		return publisher.Publish(ctx, domain.BookingCreated{
			Header:      domain.NewEventHeader(),
			BookingID:   b.ID,
			ResourceID:  b.ResourceID,
			RequesterID: b.RequesterID,
			Status:      b.Status.String(),
			Amount:      b.TotalPrice.StringFixed(2),
			Currency:    b.Currency,
		})
	})
	if err != nil {
		return domain.Booking{}, err
	}

	return b, nil
}

type StatusUpdate struct {
	BookingID     uuid.UUID
	Target        domain.Status
	Reason        string
	SettlementRef string
}

// ApplyStatusUpdate is idempotent: unknown bookings, repeated deliveries
// and undefined transitions are logged and discarded, because at-least-once
// delivery makes all three expected. Mutations for the same booking are
// serialized by a per-booking lock.
func (s *BookingsService) ApplyStatusUpdate(ctx context.Context, update StatusUpdate) error {
	unlock := s.locks.lock(update.BookingID)
	defer unlock()

	return s.tx.Do(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetByID(ctx, update.BookingID)
		if errors.Is(err, domain.ErrBookingNotFound) {
			logs.FromContext(ctx).
				WithField("booking_id", update.BookingID).
				WithField("target_status", update.Target).
				Warn("Status update for unknown booking, skipping")
			return nil
		}
		if err != nil {
			return err
		}

		if b.Status == update.Target {
			logs.FromContext(ctx).
				WithField("booking_id", b.ID).
				WithField("status", b.Status).
				Info("Booking already in target status, skipping")
			return nil
		}

		if !b.Status.CanTransitionTo(update.Target) {
			logs.FromContext(ctx).
				WithField("booking_id", b.ID).
				WithField("status", b.Status).
				WithField("target_status", update.Target).
				Warn("Discarding status update, transition not defined")
			return nil
		}

		var reason *string
		if update.Reason != "" && (update.Target == domain.StatusCancelled || update.Target == domain.StatusRefunded) {
			reason = &update.Reason
		}
		var ref *string
		if update.SettlementRef != "" {
			ref = &update.SettlementRef
		}

		updated, err := s.repo.UpdateStatus(ctx, b.ID, b.Status, update.Target, reason, ref)
		if err != nil {
			return err
		}
		if !updated {
			// Another writer moved the booking between the read and the
			// compare-and-set; redelivery re-applies against fresh state.
			return fmt.Errorf("booking %s mutated concurrently, status update not applied", b.ID)
		}

		return s.publishFollowOn(ctx, b, update)
	})
}

// CancelBooking is the direct client action; unlike the event path it
// surfaces an error when the booking cannot be cancelled anymore.
func (s *BookingsService) CancelBooking(ctx context.Context, id uuid.UUID, reason string) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !b.Status.CanTransitionTo(domain.StatusCancelled) {
		return fmt.Errorf("%w: cannot cancel a %s booking", domain.ErrInvalidTransition, b.Status)
	}

	return s.ApplyStatusUpdate(ctx, StatusUpdate{
		BookingID: id,
		Target:    domain.StatusCancelled,
		Reason:    reason,
	})
}

// ApplyCalendarBlock turns an external calendar interval into a synthetic
// zero-price booking owned by the system requester. Blocks never override
// a real reservation: any overlap means the block is skipped.
func (s *BookingsService) ApplyCalendarBlock(ctx context.Context, block domain.CalendarBlockReceived) error {
	checkIn := domain.ToDate(block.StartUTC)
	checkOut := domain.ToDate(block.EndUTC)

	// A block that does not span at least one night truncates to an
	// empty date range; persisting it would violate check_out > check_in.
	if !checkOut.After(checkIn) {
		logs.FromContext(ctx).
			WithField("resource_id", block.ResourceID).
			WithField("source_uid", block.SourceUID).
			Warn("Skipping external calendar block shorter than a night")
		return nil
	}

	return s.tx.Do(ctx, func(ctx context.Context) error {
		occupied, err := s.repo.IsOccupied(ctx, block.ResourceID, checkIn, checkOut)
		if err != nil {
			return fmt.Errorf("failed to check availability: %w", err)
		}
		if occupied {
			logs.FromContext(ctx).
				WithField("resource_id", block.ResourceID).
				WithField("source_uid", block.SourceUID).
				Info("Skipping external calendar block, dates already booked")
			return nil
		}

		now := time.Now().UTC()
		annotation := "external calendar block: " + block.SourceSummary
		sourceUID := block.SourceUID

		err = s.repo.CreateBooking(ctx, domain.Booking{
			ID:                 uuid.New(),
			ResourceID:         block.ResourceID,
			RequesterID:        domain.SystemRequesterID,
			CheckIn:            checkIn,
			CheckOut:           checkOut,
			Guests:             1,
			TotalPrice:         decimal.Zero,
			Currency:           s.currency,
			Status:             domain.StatusConfirmed,
			SettlementRef:      &sourceUID,
			CancellationReason: &annotation,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
		if errors.Is(err, domain.ErrBookingConflict) {
			logs.FromContext(ctx).
				WithField("resource_id", block.ResourceID).
				WithField("source_uid", block.SourceUID).
				Info("Skipping external calendar block, lost the race to a booking")
			return nil
		}
		return err
	})
}

func (s *BookingsService) GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *BookingsService) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]domain.Booking, error) {
	return s.repo.ListByResource(ctx, resourceID)
}

func (s *BookingsService) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]domain.Booking, error) {
	return s.repo.ListByRequester(ctx, requesterID)
}

func (s *BookingsService) publishFollowOn(ctx context.Context, b domain.Booking, update StatusUpdate) error {
	publisher, err := s.publisherFactory(ctx)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}

	now := time.Now().UTC()
	switch update.Target {
	case domain.StatusConfirmed:
		return publisher.Publish(ctx, domain.BookingConfirmed{
			Header:      domain.NewEventHeader(),
			BookingID:   b.ID,
			ResourceID:  b.ResourceID,
			RequesterID: b.RequesterID,
			ConfirmedAt: now,
		})
	case domain.StatusCancelled, domain.StatusRefunded:
		return publisher.Publish(ctx, domain.BookingCancelled{
			Header:      domain.NewEventHeader(),
			BookingID:   b.ID,
			ResourceID:  b.ResourceID,
			RequesterID: b.RequesterID,
			Reason:      update.Reason,
			CancelledAt: now,
		})
	}
	return nil
}

// totalPrice is a stub tariff: nightly rate times nights. A real pricing
// engine replaces this; correctness of the amount is out of scope.
func (s *BookingsService) totalPrice(checkIn, checkOut time.Time) decimal.Decimal {
	nights := decimal.NewFromInt(int64(checkOut.Sub(checkIn).Hours() / 24))
	return s.nightlyRate.Mul(nights)
}
