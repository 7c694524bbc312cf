package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Marshaler is shared by the bus and every processor so event names stay
// consistent on the wire.
var Marshaler = cqrs.JSONMarshaler{
	GenerateName: cqrs.StructName,
}

// topics binds event types to their broker topics. It is explicit
// configuration: adding an event without a topic is a publish-time error,
// not a silently invented topic name.
var topics = map[string]string{
	"BookingCreated":        "booking.created",
	"BookingStatusUpdated":  "booking.status-updated",
	"BookingConfirmed":      "booking.confirmed",
	"BookingCancelled":      "booking.cancelled",
	"CalendarBlockReceived": "calendar.block",
}

// TopicFor resolves the broker topic for an event name.
func TopicFor(eventName string) (string, error) {
	topic, ok := topics[eventName]
	if !ok {
		return "", fmt.Errorf("no topic configured for event %q", eventName)
	}
	return topic, nil
}

// DeadLetterTopic names the dead letter sink of a topic.
func DeadLetterTopic(topic string) string {
	return topic + ".dlq"
}

func NewEventBus(
	pub message.Publisher,
	logger watermill.LoggerAdapter,
) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(
		pub,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				return TopicFor(params.EventName)
			},
			Marshaler: Marshaler,
			Logger:    logger,
		},
	)
}
