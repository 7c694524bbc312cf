package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"bookings/internal/application/services"
	domain "bookings/internal/domain/bookings"
)

type CreateBookingRequest struct {
	ResourceID  uuid.UUID `json:"resource_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	CheckIn     string    `json:"check_in"`
	CheckOut    string    `json:"check_out"`
	Guests      int       `json:"guests"`
}

func (s *Server) CreateBookingHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var request CreateBookingRequest
	err := c.Bind(&request)
	if err != nil {
		return err
	}

	checkIn, err := time.Parse("2006-01-02", request.CheckIn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, "check_in is not a valid date")
	}
	checkOut, err := time.Parse("2006-01-02", request.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, "check_out is not a valid date")
	}

	booking, err := s.bookingsService.CreateBooking(ctx, services.CreateBookingRequest{
		ResourceID:  request.ResourceID,
		RequesterID: request.RequesterID,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Guests:      request.Guests,
	})
	if errors.Is(err, domain.ErrValidation) {
		return c.JSON(http.StatusBadRequest, err.Error())
	}
	if errors.Is(err, domain.ErrBookingConflict) {
		return c.JSON(http.StatusConflict, "requested dates are not available")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, booking)
}
