package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bookings/internal/observability/logs"
)

const correlationIDMetadataKey = "correlation_id"

// CorrelationIDMiddleware propagates the correlation id from message
// metadata into the context logger, minting one for messages that arrive
// without it.
func CorrelationIDMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		correlationID := msg.Metadata.Get(correlationIDMetadataKey)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		ctx := logs.ContextWithCorrelationID(msg.Context(), correlationID)
		ctx = logs.ToContext(ctx, logrus.WithFields(logrus.Fields{
			"correlation_id": correlationID,
			"message_uuid":   msg.UUID,
		}))
		msg.SetContext(ctx)

		return next(msg)
	}
}

func LoggingMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		logs.FromContext(msg.Context()).
			WithField("metadata", msg.Metadata).
			Debug("Handling a message")

		messages, err := next(msg)
		if err != nil {
			logs.FromContext(msg.Context()).
				WithField("payload", string(msg.Payload)).
				WithError(err).
				Error("Message handling error")
		}

		return messages, err
	}
}
