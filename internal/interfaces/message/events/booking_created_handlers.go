package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	domain "bookings/internal/domain/bookings"
	"bookings/internal/observability/logs"
)

func (h *Handler) SettlementReconcilerHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"settlement_reconciler",
		func(ctx context.Context, payload *domain.BookingCreated) error {
			if err := requireBookingID(payload.BookingID); err != nil {
				return Poison(err)
			}

			logs.FromContext(ctx).
				WithField("booking_id", payload.BookingID).
				Info("Reconciling booking with settlement provider")

			update, err := h.reconciler.ProcessBooking(ctx, *payload)
			if err != nil {
				return fmt.Errorf("failed to reconcile booking %s: %w", payload.BookingID, err)
			}

			return h.eventBus.Publish(ctx, update)
		},
	)
}
