// ============================================================================
// cache/pubsub.go - Redis Pub/Sub fan-out for swap attempt events
// ============================================================================
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// EventPublisher mirrors swap events onto Redis channels so other processes
// can follow attempts.
type EventPublisher struct {
	client redis.UniversalClient
	logger *logrus.Logger
}

func NewEventPublisher(client redis.UniversalClient, logger *logrus.Logger) (*EventPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &EventPublisher{client: client, logger: logger}, nil
}

// AttemptChannel is the channel carrying one attempt's events.
func AttemptChannel(id string) string {
	return constants.PubSubChannelAttemptPrefix + id
}

// PublishEvent sends ev to the shared channel and to its attempt channel.
func (p *EventPublisher) PublishEvent(ctx context.Context, ev models.SwapEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal swap event: %w", err)
	}

	channels := []string{
		constants.PubSubChannelSwapEvents,
		AttemptChannel(ev.AttemptID),
	}

	pipe := p.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish swap event: %w", err)
	}
	return nil
}

// Subscribe delivers events from channel to handler until ctx ends.
func (p *EventPublisher) Subscribe(ctx context.Context, channel string, handler func(models.SwapEvent)) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("subscribed to swap events")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev models.SwapEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				p.logger.WithError(err).WithField("channel", channel).Warn("skipping malformed swap event")
				continue
			}
			handler(ev)
		}
	}
}

func (p *EventPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *EventPublisher) Close() error {
	return p.client.Close()
}
