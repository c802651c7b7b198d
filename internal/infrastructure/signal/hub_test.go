package signal

import (
	"testing"

	"callroom/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDetachedClient(id domain.ConnectionID, queue int) *Client {
	return &Client{
		id:     id,
		codec:  jsonCodec{},
		send:   make(chan []byte, queue),
		done:   make(chan struct{}),
		logger: zap.NewNop().Sugar(),
	}
}

func TestHub_NotifyQueuesEncodedFrame(t *testing.T) {
	hub := NewHub()
	c := newDetachedClient("c1", 1)
	hub.register(c)

	require.NoError(t, hub.Notify("c1", domain.EventPeerReady, domain.PeerReadyPayload{UserID: "u2"}))
	assert.JSONEq(t, `{"type":"event","event":"rtc.notify.ready","data":{"userId":"u2"}}`, string(<-c.send))

	assert.ErrorIs(t, hub.Notify("missing", "x", nil), ErrConnectionNotFound)
}

func TestHub_NotifyFullQueue(t *testing.T) {
	hub := NewHub()
	c := newDetachedClient("c1", 1)
	hub.register(c)

	require.NoError(t, hub.Notify("c1", "first", nil))
	assert.ErrorIs(t, hub.Notify("c1", "second", nil), ErrSendQueueFull)
}

func TestHub_Groups(t *testing.T) {
	hub := NewHub()
	a := newDetachedClient("a", 1)
	b := newDetachedClient("b", 1)
	hub.register(a)
	hub.register(b)

	assert.False(t, hub.GroupExists("room"))

	hub.JoinGroup("a", "room")
	hub.JoinGroup("b", "room")
	assert.True(t, hub.GroupExists("room"))
	assert.Equal(t, 1, hub.RoomCount())

	hub.LeaveGroup("a", "room")
	assert.True(t, hub.GroupExists("room"))

	hub.unregister(b)
	assert.False(t, hub.GroupExists("room"))
	assert.Equal(t, 0, hub.RoomCount())
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHub_UnregisterKeepsReplacement(t *testing.T) {
	hub := NewHub()
	old := newDetachedClient("c1", 1)
	hub.register(old)

	replacement := newDetachedClient("c1", 1)
	hub.register(replacement)
	hub.unregister(old)

	got, ok := hub.client("c1")
	require.True(t, ok)
	assert.Same(t, replacement, got)
}
