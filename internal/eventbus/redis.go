// Package eventbus delivers domain events to the platform notification
// channel. Delivery is fire-and-forget: a failed publish is logged and
// dropped, never surfaced to the operation that produced the event.
package eventbus

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hivedesk/hivedesk/pkg/events"
)

// DefaultChannel is the pub/sub channel consumers subscribe to.
const DefaultChannel = "hivedesk:events"

// RedisPublisher fans events out over Redis pub/sub.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisPublisher wires a publisher on the given client. An empty channel
// falls back to DefaultChannel.
func NewRedisPublisher(client *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Publish implements events.Publisher.
func (publisher *RedisPublisher) Publish(ctx context.Context, event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		publisher.logger.Error("failed to encode event",
			zap.String("event_type", event.Type),
			zap.Error(err))
		return
	}
	if err := publisher.client.Publish(ctx, publisher.channel, payload).Err(); err != nil {
		publisher.logger.Error("failed to publish event",
			zap.String("event_type", event.Type),
			zap.String("channel", publisher.channel),
			zap.Error(err))
	}
}
