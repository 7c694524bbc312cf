package events

import (
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"bookings/internal/observability/logs"
)

// Poison marks err as unrecoverable: retrying the message cannot make the
// handler progress, so it belongs in the dead letter topic.
func Poison(err error) error {
	return poisonError{cause: err}
}

func IsPoison(err error) bool {
	var p poisonError
	return errors.As(err, &p)
}

type poisonError struct {
	cause error
}

func (p poisonError) Error() string {
	return "poison message: " + p.cause.Error()
}

func (p poisonError) Unwrap() error {
	return p.cause
}

// DeadLetterMiddleware captures poison failures. It must be added after
// the retry middleware so it runs closest to the handler: a poison error
// is published verbatim to the topic's dead letter sink and acked before
// any retry happens, while transient errors pass through to the retry and
// redelivery machinery. If publishing to the sink fails the original
// error is returned, keeping the message in flight rather than losing it.
func DeadLetterMiddleware(pub message.Publisher) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			msgs, err := h(msg)
			if err == nil || !IsPoison(err) {
				return msgs, err
			}

			topic := message.SubscribeTopicFromCtx(msg.Context())
			handlerName := message.HandlerNameFromCtx(msg.Context())

			dead := msg.Copy()
			dead.SetContext(msg.Context())
			dead.Metadata.Set(middleware.ReasonForPoisonedKey, err.Error())
			dead.Metadata.Set(middleware.PoisonedTopicKey, topic)
			dead.Metadata.Set(middleware.PoisonedHandlerKey, handlerName)
			dead.Metadata.Set("poisoned_at", time.Now().UTC().Format(time.RFC3339))

			if publishErr := pub.Publish(DeadLetterTopic(topic), dead); publishErr != nil {
				logs.FromContext(msg.Context()).
					WithError(publishErr).
					Error("Failed to publish to dead letter topic")
				return nil, err
			}

			logs.FromContext(msg.Context()).
				WithField("topic", topic).
				WithField("handler", handlerName).
				WithError(err).
				Warn("Message dead-lettered")

			return nil, nil
		}
	}
}
