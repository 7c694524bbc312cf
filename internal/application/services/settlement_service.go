package services

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	domain "bookings/internal/domain/bookings"
	"bookings/internal/infrastructure/clients"
	"bookings/internal/observability/logs"
)

// FallbackReasonPrefix marks status updates produced by the fallback path
// instead of an actual settlement verdict.
const FallbackReasonPrefix = "settlement integration failure"

//go:generate mockgen -destination=mocks/settlement_gateway_mock.go -package=mocks . SettlementGateway
type SettlementGateway interface {
	ProcessBooking(ctx context.Context, request clients.SettlementRequest) (clients.SettlementResult, error)
}

type SettlementConfig struct {
	MaxAttempts     int
	Backoff         time.Duration
	CallTimeout     time.Duration
	BreakerCooldown time.Duration
}

// SettlementService reconciles a provisional booking against the external
// settlement process. The external call is slow and failure-prone, so it
// is guarded by a per-attempt timeout, bounded retries with backoff and a
// circuit breaker; when all of that fails the booking is deterministically
// cancelled rather than left pending.
type SettlementService struct {
	gateway SettlementGateway
	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group
	cfg     SettlementConfig
}

func NewSettlementService(gateway SettlementGateway, cfg SettlementConfig) *SettlementService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &SettlementService{
		gateway: gateway,
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "settlement",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && ratio >= 0.6
			},
		}),
	}
}

// ProcessBooking turns one BookingCreated event into exactly one
// BookingStatusUpdated event. Concurrent redeliveries for the same
// booking share a single in-flight external call. The only error it
// returns is context cancellation, which signals redelivery instead of a
// premature fallback.
func (s *SettlementService) ProcessBooking(ctx context.Context, ev domain.BookingCreated) (domain.BookingStatusUpdated, error) {
	update, err, _ := s.group.Do(ev.BookingID.String(), func() (any, error) {
		return s.process(ctx, ev)
	})
	if err != nil {
		return domain.BookingStatusUpdated{}, err
	}
	return update.(domain.BookingStatusUpdated), nil
}

func (s *SettlementService) process(ctx context.Context, ev domain.BookingCreated) (domain.BookingStatusUpdated, error) {
	request := clients.SettlementRequest{
		BookingID:   ev.BookingID,
		ResourceID:  ev.ResourceID,
		RequesterID: ev.RequesterID,
		Amount:      ev.Amount,
		Currency:    ev.Currency,
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		result, err := s.callOnce(ctx, request)
		if err == nil {
			return s.verdict(ev, result), nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logs.FromContext(ctx).
				WithField("booking_id", ev.BookingID).
				Warn("Settlement circuit breaker open, short-circuiting to fallback")
			break
		}

		if !isTransient(err) {
			logs.FromContext(ctx).
				WithField("booking_id", ev.BookingID).
				WithError(err).
				Error("Settlement call failed permanently")
			break
		}

		logs.FromContext(ctx).
			WithField("booking_id", ev.BookingID).
			WithField("attempt", attempt).
			WithError(err).
			Warn("Settlement call failed, will retry")

		if attempt < s.cfg.MaxAttempts {
			if err := s.sleep(ctx, attempt); err != nil {
				return domain.BookingStatusUpdated{}, err
			}
		}
	}

	if ctx.Err() != nil {
		return domain.BookingStatusUpdated{}, ctx.Err()
	}

	return s.fallback(ev, lastErr), nil
}

func (s *SettlementService) callOnce(ctx context.Context, request clients.SettlementRequest) (clients.SettlementResult, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()

		return s.gateway.ProcessBooking(callCtx, request)
	})
	if err != nil {
		return clients.SettlementResult{}, err
	}
	return result.(clients.SettlementResult), nil
}

func (s *SettlementService) verdict(ev domain.BookingCreated, result clients.SettlementResult) domain.BookingStatusUpdated {
	status := domain.StatusCancelled
	if result.Approved {
		status = domain.StatusConfirmed
	}

	header := domain.NewEventHeader()
	if result.Reference != "" {
		header.Meta.Set(MetaSettlementRef, result.Reference)
	}

	return domain.BookingStatusUpdated{
		Header:    header,
		BookingID: ev.BookingID,
		Status:    status.String(),
		Reason:    result.Reason,
	}
}

// fallback resolves the booking to CANCELLED so it never stays pending
// because of an external fault.
func (s *SettlementService) fallback(ev domain.BookingCreated, cause error) domain.BookingStatusUpdated {
	reason := FallbackReasonPrefix
	if cause != nil {
		reason += ": " + cause.Error()
	}

	return domain.BookingStatusUpdated{
		Header:    domain.NewEventHeader(),
		BookingID: ev.BookingID,
		Status:    domain.StatusCancelled.String(),
		Reason:    reason,
	}
}

func (s *SettlementService) sleep(ctx context.Context, attempt int) error {
	backoff := s.cfg.Backoff << (attempt - 1)

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isTransient classifies failures for retry and breaker accounting: the
// endpoint being unreachable or slow counts, a malformed exchange or an
// explicit non-5xx rejection does not.
func isTransient(err error) bool {
	return errors.Is(err, clients.ErrSettlementUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
