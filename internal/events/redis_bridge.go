package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const DefaultChannel = "studio_scheduler:events"

// RedisBridge relays locally published events to other server instances over
// Redis pub/sub and republishes theirs into the local hub.
type RedisBridge struct {
	client  *redis.Client
	hub     *Hub
	channel string
	logger  *zap.Logger
}

func NewRedisBridge(client *redis.Client, hub *Hub, channel string, logger *zap.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{
		client:  client,
		hub:     hub,
		channel: channel,
		logger:  logger,
	}
}

// Run blocks until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	local, unsubscribe := b.hub.Subscribe(64)
	defer unsubscribe()

	remote := pubsub.Channel()

	b.logger.Info("Event bridge started",
		zap.String("channel", b.channel),
		zap.String("origin", b.hub.Origin()),
	)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Event bridge stopped")
			return nil

		case e, ok := <-local:
			if !ok {
				return nil
			}
			if e.Origin != b.hub.Origin() {
				continue
			}
			if err := b.forward(ctx, e); err != nil {
				b.logger.Error("Failed to relay event", zap.Error(err), zap.String("kind", string(e.Kind)))
			}

		case msg, ok := <-remote:
			if !ok {
				return nil
			}
			b.receive(msg.Payload)
		}
	}
}

func (b *RedisBridge) forward(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// receive republishes a remote event; echoes of our own events are dropped.
func (b *RedisBridge) receive(payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		b.logger.Warn("Malformed event on bridge", zap.Error(err))
		return
	}
	if e.Origin == "" || e.Origin == b.hub.Origin() {
		return
	}
	b.hub.Publish(e)
}
