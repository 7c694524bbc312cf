package deadletter

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/redis/go-redis/v9"

	"bookings/internal/observability/logs"
)

// Entry is a single captured message read back from a dead-letter stream.
type Entry struct {
	StreamID string            `json:"stream_id"`
	UUID     string            `json:"uuid"`
	Reason   string            `json:"reason"`
	Topic    string            `json:"topic"`
	Handler  string            `json:"handler"`
	Payload  string            `json:"payload"`
	Metadata map[string]string `json:"metadata"`
}

// Inspector reads and removes entries from dead-letter streams so an
// operator can review captured messages and decide what to do with them.
type Inspector struct {
	rdb          redis.UniversalClient
	unmarshaller redisstream.Unmarshaller
}

func NewInspector(rdb redis.UniversalClient) *Inspector {
	return &Inspector{
		rdb:          rdb,
		unmarshaller: redisstream.DefaultMarshallerUnmarshaller{},
	}
}

// Drain pops up to limit entries from the dead-letter stream for topic.
// Popping is destructive: a drained entry is gone from the stream, so
// redelivery means republishing it to the original topic by hand.
func (i *Inspector) Drain(ctx context.Context, topic string, limit int64) ([]Entry, error) {
	raw, err := i.rdb.XRangeN(ctx, topic, "-", "+", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead-letter stream %s: %w", topic, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, xm := range raw {
		// XDEL is the claim: it deletes an entry exactly once, so when
		// two drains race over the same range only the one whose delete
		// succeeded returns the entry.
		deleted, err := i.rdb.XDel(ctx, topic, xm.ID).Result()
		if err != nil {
			return entries, fmt.Errorf("failed to remove dead-letter entry %s: %w", xm.ID, err)
		}
		if deleted == 0 {
			continue
		}

		msg, err := i.unmarshaller.Unmarshal(xm.Values)
		if err != nil {
			logs.FromContext(ctx).
				WithField("stream_id", xm.ID).
				WithField("topic", topic).
				WithError(err).
				Warn("Skipping undecodable dead-letter entry")
			continue
		}

		metadata := make(map[string]string, len(msg.Metadata))
		for k, v := range msg.Metadata {
			metadata[k] = v
		}

		entries = append(entries, Entry{
			StreamID: xm.ID,
			UUID:     msg.UUID,
			Reason:   msg.Metadata.Get(middleware.ReasonForPoisonedKey),
			Topic:    msg.Metadata.Get(middleware.PoisonedTopicKey),
			Handler:  msg.Metadata.Get(middleware.PoisonedHandlerKey),
			Payload:  string(msg.Payload),
			Metadata: metadata,
		})
	}

	return entries, nil
}
