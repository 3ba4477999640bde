package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages [][]byte
	failFor  string
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	if channel == f.failFor {
		cmd.SetErr(errors.New("connection refused"))
		return cmd
	}
	f.channels = append(f.channels, channel)
	f.messages = append(f.messages, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func TestRedisEmitter_PublishesPerRecipient(t *testing.T) {
	pub := &fakePublisher{}
	e := NewRedisEmitterWithPublisher(pub, "test")

	err := e.Emit(context.Background(), EventAssigned, []string{"u1", "u2"}, map[string]string{"orderId": "o1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"test:user:u1", "test:user:u2"}, pub.channels)

	var env struct {
		Event     EventType         `json:"event"`
		Recipient string            `json:"recipient"`
		Payload   map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(pub.messages[1], &env))
	assert.Equal(t, EventAssigned, env.Event)
	assert.Equal(t, "u2", env.Recipient)
	assert.Equal(t, "o1", env.Payload["orderId"])
}

func TestRedisEmitter_ContinuesAfterFailure(t *testing.T) {
	pub := &fakePublisher{failFor: "foodway:user:u1"}
	e := NewRedisEmitterWithPublisher(pub, "")

	err := e.Emit(context.Background(), EventDelivered, []string{"u1", "u2"}, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"foodway:user:u2"}, pub.channels)
}

func TestMultiEmitter_JoinsErrors(t *testing.T) {
	ok := &Recorder{}
	bad := &Recorder{Err: errors.New("down")}
	err := MultiEmitter{ok, nil, bad}.Emit(context.Background(), EventCancelled, []string{"u"}, nil)
	require.Error(t, err)
	assert.Len(t, ok.Calls(), 1)
	assert.Len(t, bad.Calls(), 1)
}

func TestDispatcher_DedupesAndSwallowsErrors(t *testing.T) {
	rec := &Recorder{Err: errors.New("push failed")}
	log := logrus.New()
	log.SetOutput(&discard{})
	d := NewDispatcher(rec, time.Second, logrus.NewEntry(log))

	d.Notify(context.Background(), EventStatusUpdated, []string{"a", "", "b", "a"}, "x")
	d.Notify(context.Background(), EventStatusUpdated, []string{""}, "ignored")
	d.Wait()

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"a", "b"}, calls[0].Recipients)
}

type ctxEmitter struct {
	err error
}

func (c *ctxEmitter) Emit(ctx context.Context, event EventType, recipientIDs []string, payload any) error {
	c.err = ctx.Err()
	return nil
}

func TestDispatcher_DetachedFromCallerContext(t *testing.T) {
	em := &ctxEmitter{}
	d := NewDispatcher(em, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, EventOrderPlaced, []string{"u"}, nil)
	d.Wait()
	assert.NoError(t, em.err)
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Notify(context.Background(), EventDeleted, []string{"u"}, nil)
	d.Wait()
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
