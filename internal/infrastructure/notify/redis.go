package notify

import (
	"context"
	"encoding/json"
	"time"

	"streamcast/internal/core/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultEventsChannel = "streamcast:events"

// Event is the wire form of a notification on the redis event channel.
type Event struct {
	ID         string    `json:"id"`
	InstanceID string    `json:"instance_id"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// RedisPublisher fans notifications out over redis pub/sub so other
// instances and consumers can react to session events.
type RedisPublisher struct {
	client     *redis.Client
	channel    string
	instanceID string
	logger     *zap.SugaredLogger
}

func NewRedisPublisher(client *redis.Client, channel string, logger *zap.SugaredLogger) ports.Notifier {
	if channel == "" {
		channel = defaultEventsChannel
	}
	return &RedisPublisher{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

func (p *RedisPublisher) Notify(ctx context.Context, subject, message string) {
	event := Event{
		ID:         uuid.NewString(),
		InstanceID: p.instanceID,
		Subject:    subject,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Errorw("failed to marshal event", "error", err)
		return
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Errorw("failed to publish event", "subject", subject, "error", err)
		return
	}

	p.logger.Debugw("published event", "subject", subject, "channel", p.channel)
}
