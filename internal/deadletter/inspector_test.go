package deadletter_test

import (
	"context"
	"os"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookings/internal/deadletter"
	"bookings/internal/interfaces/message/events"
)

func TestInspector_Drain_Integration(t *testing.T) {
	if os.Getenv("REDIS_ADDR") == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDR")})
	t.Cleanup(func() { rdb.Close() })

	topic := events.DeadLetterTopic("booking.created.test." + watermill.NewShortUUID())
	t.Cleanup(func() { rdb.Del(ctx, topic) })

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: rdb,
	}, watermill.NopLogger{})
	require.NoError(t, err)

	publish := func(payload, reason string) string {
		msg := message.NewMessage(watermill.NewUUID(), []byte(payload))
		msg.Metadata.Set(middleware.ReasonForPoisonedKey, reason)
		msg.Metadata.Set(middleware.PoisonedTopicKey, "booking.created")
		msg.Metadata.Set(middleware.PoisonedHandlerKey, "settlement_reconciler")
		require.NoError(t, publisher.Publish(topic, msg))
		return msg.UUID
	}

	firstUUID := publish(`{"booking_id":null}`, "event without booking id")
	secondUUID := publish(`{"status":"SHIPPED"}`, "unknown status")

	inspector := deadletter.NewInspector(rdb)

	t.Run("drain returns the captured entries verbatim", func(t *testing.T) {
		entries, err := inspector.Drain(ctx, topic, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, firstUUID, entries[0].UUID)
		assert.Equal(t, `{"booking_id":null}`, entries[0].Payload)
		assert.Equal(t, "event without booking id", entries[0].Reason)
		assert.Equal(t, "booking.created", entries[0].Topic)
		assert.Equal(t, "settlement_reconciler", entries[0].Handler)

		assert.Equal(t, secondUUID, entries[1].UUID)
	})

	t.Run("drained entries are removed from the stream", func(t *testing.T) {
		entries, err := inspector.Drain(ctx, topic, 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("concurrent drains never return the same entry twice", func(t *testing.T) {
		const published = 20
		for n := 0; n < published; n++ {
			publish(`{"booking_id":null}`, "event without booking id")
		}

		results := make(chan []deadletter.Entry, 2)
		for w := 0; w < 2; w++ {
			go func() {
				entries, err := inspector.Drain(ctx, topic, published)
				assert.NoError(t, err)
				results <- entries
			}()
		}

		seen := map[string]struct{}{}
		total := 0
		for w := 0; w < 2; w++ {
			for _, e := range <-results {
				_, duplicate := seen[e.StreamID]
				assert.False(t, duplicate, "entry %s drained twice", e.StreamID)
				seen[e.StreamID] = struct{}{}
				total++
			}
		}
		assert.Equal(t, published, total)
	})
}
