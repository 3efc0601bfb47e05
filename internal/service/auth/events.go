package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/splax/cornerstone/internal/domain"
)

// Publisher delivers session transitions to subscribed clients.
type Publisher interface {
	Publish(ctx context.Context, event domain.SessionEvent)
}

// Broadcaster is the local fan-out the broker feeds, usually a *ws.Hub.
type Broadcaster interface {
	Broadcast(userID string, payload []byte)
}

// Broker publishes session events to local subscribers. With a redis client it
// relays through a pub/sub channel so every API replica sees every event.
type Broker struct {
	local   Broadcaster
	redis   *redis.Client
	channel string
	logger  *slog.Logger
}

// NewBroker constructs a Broker. client may be nil for single-process deployments.
func NewBroker(local Broadcaster, client *redis.Client, channel string, logger *slog.Logger) *Broker {
	return &Broker{local: local, redis: client, channel: channel, logger: logger}
}

// Publish encodes event and hands it to redis or straight to local subscribers.
func (b *Broker) Publish(ctx context.Context, event domain.SessionEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("encode session event failed", "error", err)
		return
	}
	if b.redis == nil {
		b.local.Broadcast(event.UserID, payload)
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	if err := b.redis.Publish(pubCtx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("redis publish failed, delivering locally", "error", err)
		b.local.Broadcast(event.UserID, payload)
	}
}

// Run relays redis messages to local subscribers until ctx is done. It returns
// immediately when no redis client is configured.
func (b *Broker) Run(ctx context.Context) {
	if b.redis == nil {
		return
	}
	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event domain.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("decode session event failed", "error", err)
				continue
			}
			b.local.Broadcast(event.UserID, []byte(msg.Payload))
		}
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.SessionEvent) {}
