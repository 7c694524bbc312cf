package events

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"

	"bookings/internal/application/services"
	domain "bookings/internal/domain/bookings"
)

//go:generate mockgen -destination=mocks/lifecycle_service_mock.go -package=mocks . LifecycleService
type LifecycleService interface {
	ApplyStatusUpdate(ctx context.Context, update services.StatusUpdate) error
	ApplyCalendarBlock(ctx context.Context, block domain.CalendarBlockReceived) error
}

//go:generate mockgen -destination=mocks/settlement_reconciler_mock.go -package=mocks . SettlementReconciler
type SettlementReconciler interface {
	ProcessBooking(ctx context.Context, ev domain.BookingCreated) (domain.BookingStatusUpdated, error)
}

// Handler bundles the event consumers with their dependencies.
type Handler struct {
	lifecycle  LifecycleService
	reconciler SettlementReconciler
	eventBus   *cqrs.EventBus
}

func NewHandler(
	lifecycle LifecycleService,
	reconciler SettlementReconciler,
	eventBus *cqrs.EventBus,
) *Handler {
	return &Handler{
		lifecycle:  lifecycle,
		reconciler: reconciler,
		eventBus:   eventBus,
	}
}

// Handlers returns every consumer of the booking event topics, in the
// order they join the processor.
func (h *Handler) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		h.SettlementReconcilerHandler(),
		h.ApplyStatusUpdateHandler(),
		h.CalendarBlockHandler(),
	}
}

func requireBookingID(id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("event without booking id")
	}
	return nil
}
