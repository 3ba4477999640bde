package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher is the subset of the redis client used for pushes.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisEmitter publishes one JSON envelope per recipient on "<prefix>:user:<id>".
// The real-time gateway subscribes to these channels and forwards to open sockets.
type RedisEmitter struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

// NewRedisEmitter connects a redis client to addr.
func NewRedisEmitter(addr, prefix string) (*RedisEmitter, *redis.Client) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return NewRedisEmitterWithPublisher(client, prefix), client
}

func NewRedisEmitterWithPublisher(pub Publisher, prefix string) *RedisEmitter {
	if prefix == "" {
		prefix = "foodway"
	}
	return &RedisEmitter{pub: pub, prefix: prefix, now: time.Now}
}

// Channel returns the channel a user's events are published on.
func (e *RedisEmitter) Channel(userID string) string {
	return fmt.Sprintf("%s:user:%s", e.prefix, userID)
}

func (e *RedisEmitter) Emit(ctx context.Context, event EventType, recipientIDs []string, payload any) error {
	var errs []error
	for _, id := range recipientIDs {
		msg, err := json.Marshal(Envelope{Event: event, Recipient: id, Payload: payload, SentAt: e.now().UTC()})
		if err != nil {
			return fmt.Errorf("encode %s: %w", event, err)
		}
		if err := e.pub.Publish(ctx, e.Channel(id), msg).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish %s to %s: %w", event, id, err))
		}
	}
	return errors.Join(errs...)
}
