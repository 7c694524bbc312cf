package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"bookings/internal/application/services"
	"bookings/internal/deadletter"
	"bookings/internal/observability/logs"
)

type Server struct {
	e    *echo.Echo
	addr string

	bookingsService *services.BookingsService
	dlqInspector    *deadletter.Inspector
}

func NewServer(
	e *echo.Echo,
	addr string,
	bookingsService *services.BookingsService,
	dlqInspector *deadletter.Inspector,
	routerIsRunning func() bool,
) *Server {
	srv := &Server{
		e:               e,
		addr:            addr,
		bookingsService: bookingsService,
		dlqInspector:    dlqInspector,
	}

	e.POST("/api/bookings", srv.CreateBookingHandler)
	e.GET("/api/bookings", srv.ListBookingsHandler)
	e.GET("/api/bookings/:booking_id", srv.GetBookingHandler)
	e.DELETE("/api/bookings/:booking_id", srv.CancelBookingHandler)

	e.GET("/api/admin/dlq/:topic", srv.DrainDeadLettersHandler)

	e.GET("/health", func(c echo.Context) error {
		if !routerIsRunning() {
			return c.String(http.StatusServiceUnavailable, "router is not running")
		}
		return c.String(http.StatusOK, "ok")
	})

	// logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			logs.FromContext(c.Request().Context()).
				WithField("path", c.Request().URL.Path).
				Info("Handling a request")

			err := next(c)

			if err != nil {
				logs.FromContext(c.Request().Context()).
					WithField("error", err).
					Error("Request handling error")
			}

			return err
		}
	})
	return srv
}

func (s *Server) Start() error {
	err := s.e.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
