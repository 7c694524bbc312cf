package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookings/internal/application/services"
	domain "bookings/internal/domain/bookings"
	"bookings/internal/interfaces/message/events"
)

type fakeLifecycle struct {
	statusUpdates  []services.StatusUpdate
	calendarBlocks []domain.CalendarBlockReceived
}

func (f *fakeLifecycle) ApplyStatusUpdate(_ context.Context, update services.StatusUpdate) error {
	f.statusUpdates = append(f.statusUpdates, update)
	return nil
}

func (f *fakeLifecycle) ApplyCalendarBlock(_ context.Context, block domain.CalendarBlockReceived) error {
	f.calendarBlocks = append(f.calendarBlocks, block)
	return nil
}

func TestCalendarBlockHandler(t *testing.T) {
	ctx := context.Background()

	newBlock := func() *domain.CalendarBlockReceived {
		return &domain.CalendarBlockReceived{
			Header:        domain.NewEventHeader(),
			ResourceID:    uuid.New(),
			StartUTC:      time.Date(2026, time.October, 10, 0, 0, 0, 0, time.UTC),
			EndUTC:        time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC),
			SourceUID:     "ical-uid-1",
			SourceSummary: "Blocked",
		}
	}

	t.Run("valid block reaches the lifecycle service", func(t *testing.T) {
		lifecycle := &fakeLifecycle{}
		handler := events.NewHandler(lifecycle, nil, nil).CalendarBlockHandler()

		require.NoError(t, handler.Handle(ctx, newBlock()))
		require.Len(t, lifecycle.calendarBlocks, 1)
	})

	t.Run("missing resource id is poisoned", func(t *testing.T) {
		lifecycle := &fakeLifecycle{}
		handler := events.NewHandler(lifecycle, nil, nil).CalendarBlockHandler()

		block := newBlock()
		block.ResourceID = uuid.Nil

		err := handler.Handle(ctx, block)
		assert.True(t, events.IsPoison(err))
		assert.Empty(t, lifecycle.calendarBlocks)
	})

	t.Run("inverted interval is poisoned", func(t *testing.T) {
		lifecycle := &fakeLifecycle{}
		handler := events.NewHandler(lifecycle, nil, nil).CalendarBlockHandler()

		block := newBlock()
		block.StartUTC, block.EndUTC = block.EndUTC, block.StartUTC

		err := handler.Handle(ctx, block)
		assert.True(t, events.IsPoison(err))
		assert.Empty(t, lifecycle.calendarBlocks)
	})

	t.Run("sub-day block is poisoned, not retried", func(t *testing.T) {
		lifecycle := &fakeLifecycle{}
		handler := events.NewHandler(lifecycle, nil, nil).CalendarBlockHandler()

		// 10:00 to 12:00 the same day is a positive interval, but both
		// ends truncate to the same date: no night to block.
		block := newBlock()
		block.StartUTC = time.Date(2026, time.October, 10, 10, 0, 0, 0, time.UTC)
		block.EndUTC = time.Date(2026, time.October, 10, 12, 0, 0, 0, time.UTC)

		err := handler.Handle(ctx, block)
		require.Error(t, err)
		assert.True(t, events.IsPoison(err), "a block with no full night must be dead-lettered, not redelivered")
		assert.Empty(t, lifecycle.calendarBlocks)
	})
}
