package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// NewEventProcessorConfig subscribes every handler through its own
// consumer group, so a slow handler (the settlement call) never blocks
// the others and each group gets its own at-least-once delivery.
func NewEventProcessorConfig(
	redisClient *redis.Client,
	logger watermill.LoggerAdapter,
) cqrs.EventProcessorConfig {
	return NewEventProcessorConfigWithSubscriber(
		func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        redisClient,
				ConsumerGroup: "svc-bookings." + params.HandlerName,
			}, logger)
		},
		logger,
	)
}

// NewEventProcessorConfigWithSubscriber is the transport-agnostic variant;
// tests run it on an in-process Pub/Sub.
func NewEventProcessorConfigWithSubscriber(
	constructor cqrs.EventProcessorSubscriberConstructorFn,
	logger watermill.LoggerAdapter,
) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return TopicFor(params.EventName)
		},
		SubscriberConstructor: constructor,
		Marshaler:             Marshaler,
		Logger:                logger,
	}
}
