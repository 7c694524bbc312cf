package bookings

import (
	"time"

	"github.com/google/uuid"
)

// MetadataEntry is one typed key/value pair attached to an event.
type MetadataEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Metadata is an order-preserving key/value side-channel for event
// records. It carries integration context (correlation ids, provider
// references) without smuggling untyped business data into the payload.
type Metadata []MetadataEntry

func (m Metadata) Get(key string) string {
	for _, e := range m {
		if e.Key == key {
			return e.Value
		}
	}
	return ""
}

func (m *Metadata) Set(key, value string) {
	for i, e := range *m {
		if e.Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, MetadataEntry{Key: key, Value: value})
}

type EventHeader struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
	Meta        Metadata  `json:"meta,omitempty"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}
