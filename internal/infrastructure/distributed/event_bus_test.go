package distributed

import (
	"context"
	"testing"
	"time"

	"callroom/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func waitForSubscriber(t *testing.T, client *redis.Client, channel string) {
	t.Helper()
	require.Eventually(t, func() bool {
		counts, err := client.PubSubNumSub(context.Background(), channel).Result()
		return err == nil && counts[channel] > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventBus_DeliversRemoteEventsOnly(t *testing.T) {
	client := newTestClient(t)
	logger := zaptest.NewLogger(t).Sugar()

	local := NewEventBus(client, "inst_a", "", logger)
	remote := NewEventBus(client, "inst_b", "", logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- local.Subscribe(ctx, func(e Event) error {
			received <- e
			return nil
		})
	}()
	waitForSubscriber(t, client, DefaultChannel)

	require.NoError(t, local.PublishRoomEvent(ctx, domain.RoomEvent{Type: domain.RoomCreated, RoomCode: "own"}))
	require.NoError(t, remote.PublishRoomEvent(ctx, domain.RoomEvent{Type: domain.MemberJoined, RoomCode: "r1", UserID: "u2"}))

	select {
	case e := <-received:
		assert.Equal(t, domain.MemberJoined, e.Type)
		assert.Equal(t, domain.RoomCode("r1"), e.RoomCode)
		assert.Equal(t, domain.UserID("u2"), e.UserID)
		assert.Equal(t, "inst_b", e.InstanceID)
		assert.False(t, e.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("remote event not delivered")
	}

	select {
	case e := <-received:
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func TestEventBus_SubscribeTwice(t *testing.T) {
	client := newTestClient(t)
	bus := NewEventBus(client, "inst_a", "custom", zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go bus.Subscribe(ctx, func(Event) error { return nil })
	waitForSubscriber(t, client, "custom")

	assert.ErrorIs(t, bus.Subscribe(ctx, func(Event) error { return nil }), ErrAlreadySubscribed)
	assert.NoError(t, bus.Close())
}
