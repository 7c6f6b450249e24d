// README: Lifecycle event publisher backed by a Redis stream. Consumers
// (notifications, analytics) read the stream independently; the booking path
// only appends.
package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

type Publisher struct {
	redis  *redis.Client
	stream string
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{redis: client, stream: stream}
}

// Publish appends one event to the stream. The event name travels in the
// "event" field alongside the caller's payload.
func (p *Publisher) Publish(ctx context.Context, event string, fields map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	values := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		values[k] = v
	}
	values["event"] = event
	values["at"] = time.Now().UTC().Format(time.RFC3339Nano)

	return p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err()
}
