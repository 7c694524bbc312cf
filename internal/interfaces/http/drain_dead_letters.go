package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"bookings/internal/deadletter"
	"bookings/internal/interfaces/message/events"
)

type DrainDeadLettersResponse struct {
	Topic   string             `json:"topic"`
	Entries []deadletter.Entry `json:"entries"`
}

func (s *Server) DrainDeadLettersHandler(c echo.Context) error {
	topic := c.Param("topic")
	if topic == "" {
		return c.JSON(http.StatusBadRequest, "topic is required")
	}

	limit := int64(10)
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, "limit is not a positive integer")
		}
		limit = parsed
	}

	dlqTopic := events.DeadLetterTopic(topic)
	entries, err := s.dlqInspector.Drain(c.Request().Context(), dlqTopic, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, DrainDeadLettersResponse{
		Topic:   dlqTopic,
		Entries: entries,
	})
}
