package outbox

import (
	"context"
	"time"

	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
)

// Message is the broker-neutral form of a published outbox row.
type Message struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// Publisher delivers a message to a topic and blocks until the broker acknowledges it.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Ping(ctx context.Context) error
	Close() error
}

// NewMessage builds the wire message for an outbox row; the aggregate id is the partition key.
func NewMessage(event models.OutboxEvent, eventID string) Message {
	return Message{
		Key:  event.AggregateID.String(),
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       eventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}
