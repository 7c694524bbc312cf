package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	domain "bookings/internal/domain/bookings"
)

func (s *Server) GetBookingHandler(c echo.Context) error {
	id, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, "booking_id is not a valid UUID")
	}

	booking, err := s.bookingsService.GetByID(c.Request().Context(), id)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return c.JSON(http.StatusNotFound, "booking not found")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, booking)
}

func (s *Server) ListBookingsHandler(c echo.Context) error {
	ctx := c.Request().Context()

	if raw := c.QueryParam("resource_id"); raw != "" {
		resourceID, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, "resource_id is not a valid UUID")
		}

		bookings, err := s.bookingsService.ListByResource(ctx, resourceID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, bookings)
	}

	if raw := c.QueryParam("requester_id"); raw != "" {
		requesterID, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, "requester_id is not a valid UUID")
		}

		bookings, err := s.bookingsService.ListByRequester(ctx, requesterID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, bookings)
	}

	return c.JSON(http.StatusBadRequest, "resource_id or requester_id is required")
}
