package message

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"bookings/internal/interfaces/message/events"
)

func NewRouter(
	watermillLogger watermill.LoggerAdapter,
	deadLetterPublisher message.Publisher,

	eventHandler *events.Handler,
	eventProcessorConfig cqrs.EventProcessorConfig,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, err
	}

	initMiddlewares(watermillLogger, deadLetterPublisher, router)

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		return nil, err
	}

	err = eventProcessor.AddHandlers(eventHandler.Handlers()...)
	if err != nil {
		return nil, err
	}

	return router, nil
}

func initMiddlewares(
	watermillLogger watermill.LoggerAdapter,
	deadLetterPublisher message.Publisher,
	router *message.Router,
) {
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(events.CorrelationIDMiddleware)
	router.AddMiddleware(events.LoggingMiddleware)

	router.AddMiddleware(middleware.Retry{
		MaxRetries:      10,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          watermillLogger,
	}.Middleware)

	// capture poisoned messages before retrying
	router.AddMiddleware(events.DeadLetterMiddleware(deadLetterPublisher))
}
