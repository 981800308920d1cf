package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultFanoutChannel is the Redis channel used when none is configured.
const DefaultFanoutChannel = "notifier:realtime"

type envelope struct {
	Stream string          `json:"stream"`
	UserID string          `json:"user_id"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisFanout relays events through Redis pub/sub so every instance delivers
// them to its own websocket subscribers.
type RedisFanout struct {
	client  *redis.Client
	pub     redisPublisher
	channel string
	local   *Hub
	log     *zap.Logger
}

// NewRedisFanout constructs a fan-out bridge for the local hub.
func NewRedisFanout(client *redis.Client, channel string, local *Hub) (*RedisFanout, error) {
	if client == nil {
		return nil, errors.New("realtime fanout: redis client is required")
	}
	if local == nil {
		return nil, errors.New("realtime fanout: hub is required")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultFanoutChannel
	}
	return &RedisFanout{
		client:  client,
		pub:     client,
		channel: channel,
		local:   local,
		log:     local.log.With(zap.String("channel", channel)),
	}, nil
}

// Publish sends an engine event to every instance.
func (f *RedisFanout) Publish(ctx context.Context, userID, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("realtime fanout: encode payload: %w", err)
	}
	raw, err := json.Marshal(envelope{
		Stream: StreamNotifications,
		UserID: userID,
		Event:  eventType,
		Data:   data,
	})
	if err != nil {
		return fmt.Errorf("realtime fanout: encode envelope: %w", err)
	}
	if err := f.pub.Publish(ctx, f.channel, raw).Err(); err != nil {
		return fmt.Errorf("realtime fanout: publish: %w", err)
	}
	return nil
}

// Run relays published events to the local hub until ctx is cancelled.
func (f *RedisFanout) Run(ctx context.Context) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("realtime fanout: subscribe: %w", err)
	}
	f.log.Info("realtime fanout subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			f.relay(msg.Payload)
		}
	}
}

func (f *RedisFanout) relay(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		f.log.Warn("discarding malformed fanout message", zap.Error(err))
		return
	}
	if env.UserID == "" || env.Event == "" {
		return
	}
	f.local.BroadcastToUser(env.Stream, env.UserID, Message{Event: env.Event, Data: env.Data})
}
