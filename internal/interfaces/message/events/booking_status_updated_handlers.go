package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"bookings/internal/application/services"
	domain "bookings/internal/domain/bookings"
	"bookings/internal/observability/logs"
)

func (h *Handler) ApplyStatusUpdateHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"apply_status_update",
		func(ctx context.Context, payload *domain.BookingStatusUpdated) error {
			if err := requireBookingID(payload.BookingID); err != nil {
				return Poison(err)
			}

			target, err := domain.ParseStatus(payload.Status)
			if err != nil {
				return Poison(fmt.Errorf("unknown target status %q: %w", payload.Status, err))
			}

			logs.FromContext(ctx).
				WithField("booking_id", payload.BookingID).
				WithField("status", target).
				Info("Applying booking status update")

			return h.lifecycle.ApplyStatusUpdate(ctx, services.StatusUpdate{
				BookingID:     payload.BookingID,
				Target:        target,
				Reason:        payload.Reason,
				SettlementRef: payload.Header.Meta.Get(services.MetaSettlementRef),
			})
		},
	)
}
