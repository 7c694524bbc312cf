package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"

	domain "bookings/internal/domain/bookings"
	"bookings/internal/observability/logs"
)

func (h *Handler) CalendarBlockHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"apply_calendar_block",
		func(ctx context.Context, payload *domain.CalendarBlockReceived) error {
			if payload.ResourceID == uuid.Nil {
				return Poison(fmt.Errorf("calendar block without resource id"))
			}

			// Bookings are whole calendar nights, so the interval must
			// still be non-empty after truncation to dates. A sub-day
			// block would otherwise insert a zero-length stay.
			start := domain.ToDate(payload.StartUTC)
			end := domain.ToDate(payload.EndUTC)
			if !end.After(start) {
				return Poison(fmt.Errorf(
					"calendar block shorter than a night: %s..%s",
					payload.StartUTC, payload.EndUTC,
				))
			}

			logs.FromContext(ctx).
				WithField("resource_id", payload.ResourceID).
				WithField("source_uid", payload.SourceUID).
				Info("Applying external calendar block")

			return h.lifecycle.ApplyCalendarBlock(ctx, *payload)
		},
	)
}
