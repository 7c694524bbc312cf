package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookings/internal/application/services"
	domain "bookings/internal/domain/bookings"
	"bookings/internal/infrastructure/clients"
)

type scriptedGateway struct {
	mu      sync.Mutex
	calls   int32
	respond func(call int) (clients.SettlementResult, error)
}

func (g *scriptedGateway) ProcessBooking(_ context.Context, _ clients.SettlementRequest) (clients.SettlementResult, error) {
	call := int(atomic.AddInt32(&g.calls, 1))

	g.mu.Lock()
	respond := g.respond
	g.mu.Unlock()

	return respond(call)
}

func (g *scriptedGateway) Calls() int {
	return int(atomic.LoadInt32(&g.calls))
}

func testSettlementConfig() services.SettlementConfig {
	return services.SettlementConfig{
		MaxAttempts:     3,
		Backoff:         time.Millisecond,
		CallTimeout:     time.Second,
		BreakerCooldown: time.Minute,
	}
}

func createdEvent() domain.BookingCreated {
	return domain.BookingCreated{
		Header:      domain.NewEventHeader(),
		BookingID:   uuid.New(),
		ResourceID:  uuid.New(),
		RequesterID: uuid.New(),
		Status:      domain.StatusPendingPayment.String(),
		Amount:      "300.00",
		Currency:    "EUR",
	}
}

func TestSettlementService_ProcessBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("approved verdict confirms the booking", func(t *testing.T) {
		gateway := &scriptedGateway{respond: func(int) (clients.SettlementResult, error) {
			return clients.SettlementResult{Approved: true, Reference: "stl-7"}, nil
		}}
		svc := services.NewSettlementService(gateway, testSettlementConfig())

		ev := createdEvent()
		update, err := svc.ProcessBooking(ctx, ev)
		require.NoError(t, err)

		assert.Equal(t, ev.BookingID, update.BookingID)
		assert.Equal(t, domain.StatusConfirmed.String(), update.Status)
		assert.Equal(t, "stl-7", update.Header.Meta.Get(services.MetaSettlementRef))
		assert.Equal(t, 1, gateway.Calls())
	})

	t.Run("declined verdict cancels with the provider reason", func(t *testing.T) {
		gateway := &scriptedGateway{respond: func(int) (clients.SettlementResult, error) {
			return clients.SettlementResult{Approved: false, Reason: "insufficient funds"}, nil
		}}
		svc := services.NewSettlementService(gateway, testSettlementConfig())

		update, err := svc.ProcessBooking(ctx, createdEvent())
		require.NoError(t, err)

		assert.Equal(t, domain.StatusCancelled.String(), update.Status)
		assert.Equal(t, "insufficient funds", update.Reason)
	})

	t.Run("transient failure recovers on retry", func(t *testing.T) {
		gateway := &scriptedGateway{respond: func(call int) (clients.SettlementResult, error) {
			if call == 1 {
				return clients.SettlementResult{}, clients.ErrSettlementUnavailable
			}
			return clients.SettlementResult{Approved: true}, nil
		}}
		svc := services.NewSettlementService(gateway, testSettlementConfig())

		update, err := svc.ProcessBooking(ctx, createdEvent())
		require.NoError(t, err)

		assert.Equal(t, domain.StatusConfirmed.String(), update.Status)
		assert.Equal(t, 2, gateway.Calls())
	})

	t.Run("exhausted retries fall back to cancellation", func(t *testing.T) {
		gateway := &scriptedGateway{respond: func(int) (clients.SettlementResult, error) {
			return clients.SettlementResult{}, clients.ErrSettlementUnavailable
		}}
		svc := services.NewSettlementService(gateway, testSettlementConfig())

		update, err := svc.ProcessBooking(ctx, createdEvent())
		require.NoError(t, err)

		assert.Equal(t, domain.StatusCancelled.String(), update.Status)
		assert.True(t, strings.HasPrefix(update.Reason, services.FallbackReasonPrefix), "reason: %s", update.Reason)
		assert.Equal(t, 3, gateway.Calls())
	})

	t.Run("permanent failure skips retries", func(t *testing.T) {
		gateway := &scriptedGateway{respond: func(int) (clients.SettlementResult, error) {
			return clients.SettlementResult{}, errors.New("malformed response")
		}}
		svc := services.NewSettlementService(gateway, testSettlementConfig())

		update, err := svc.ProcessBooking(ctx, createdEvent())
		require.NoError(t, err)

		assert.Equal(t, domain.StatusCancelled.String(), update.Status)
		assert.Equal(t, 1, gateway.Calls())
	})

	t.Run("open breaker short-circuits without calling the gateway", func(t *testing.T) {
		gateway := &scriptedGateway{respond: func(int) (clients.SettlementResult, error) {
			return clients.SettlementResult{}, clients.ErrSettlementUnavailable
		}}
		svc := services.NewSettlementService(gateway, testSettlementConfig())

		// two failing bookings trip the breaker (5 consecutive failures)
		_, err := svc.ProcessBooking(ctx, createdEvent())
		require.NoError(t, err)
		_, err = svc.ProcessBooking(ctx, createdEvent())
		require.NoError(t, err)

		callsWhenTripped := gateway.Calls()

		update, err := svc.ProcessBooking(ctx, createdEvent())
		require.NoError(t, err)

		assert.Equal(t, domain.StatusCancelled.String(), update.Status)
		assert.True(t, strings.HasPrefix(update.Reason, services.FallbackReasonPrefix))
		assert.Equal(t, callsWhenTripped, gateway.Calls(), "gateway must not be called while the breaker is open")
	})

	t.Run("concurrent redeliveries share one external call", func(t *testing.T) {
		release := make(chan struct{})
		gateway := &scriptedGateway{respond: func(int) (clients.SettlementResult, error) {
			<-release
			return clients.SettlementResult{Approved: true}, nil
		}}
		svc := services.NewSettlementService(gateway, testSettlementConfig())

		ev := createdEvent()

		const deliveries = 4
		var wg sync.WaitGroup
		updates := make([]domain.BookingStatusUpdated, deliveries)

		for i := 0; i < deliveries; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				var err error
				updates[i], err = svc.ProcessBooking(ctx, ev)
				assert.NoError(t, err)
			}(i)
		}

		// let all goroutines pile onto the same key before releasing
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, 1, gateway.Calls())
		for _, update := range updates {
			assert.Equal(t, domain.StatusConfirmed.String(), update.Status)
		}
	})

	t.Run("cancelled context surfaces as an error for redelivery", func(t *testing.T) {
		gateway := &scriptedGateway{respond: func(int) (clients.SettlementResult, error) {
			return clients.SettlementResult{}, clients.ErrSettlementUnavailable
		}}
		cfg := testSettlementConfig()
		cfg.Backoff = time.Minute

		svc := services.NewSettlementService(gateway, cfg)

		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := svc.ProcessBooking(cancelCtx, createdEvent())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
