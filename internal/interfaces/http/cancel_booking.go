package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	domain "bookings/internal/domain/bookings"
)

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CancelBookingHandler(c echo.Context) error {
	id, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, "booking_id is not a valid UUID")
	}

	var request CancelBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.Reason == "" {
		request.Reason = "cancelled by requester"
	}

	err = s.bookingsService.CancelBooking(c.Request().Context(), id, request.Reason)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return c.JSON(http.StatusNotFound, "booking not found")
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		return c.JSON(http.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
