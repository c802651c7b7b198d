package kv

import (
	"context"
	"testing"
	"time"

	"callroom/internal/core/domain"
	"callroom/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRepository_Ordering(t *testing.T) {
	members := NewMembershipRepository(memory.NewMemoryStore(), "test:", time.Hour)
	ctx := context.Background()

	_, ok, err := members.Head(ctx, "room1")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, id := range []domain.UserID{"alice", "bob", "carol"} {
		require.NoError(t, members.Append(ctx, "room1", id))
	}

	ids, err := members.List(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"alice", "bob", "carol"}, ids)

	head, ok, err := members.Head(ctx, "room1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.UserID("alice"), head)

	removed, err := members.Remove(ctx, "room1", "alice")
	require.NoError(t, err)
	assert.True(t, removed)

	head, _, err = members.Head(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("bob"), head, "next oldest member becomes head")

	removed, err = members.Remove(ctx, "room1", "alice")
	require.NoError(t, err)
	assert.False(t, removed)

	contains, err := members.Contains(ctx, "room1", "carol")
	require.NoError(t, err)
	assert.True(t, contains)
}

func TestListRepository_SeparateNamespaces(t *testing.T) {
	store := memory.NewMemoryStore()
	members := NewMembershipRepository(store, "test:", time.Hour)
	waiting := NewWaitingRepository(store, "test:", time.Hour)
	ctx := context.Background()

	require.NoError(t, members.Append(ctx, "room1", "alice"))
	require.NoError(t, waiting.Append(ctx, "room1", "bob"))

	ids, err := waiting.List(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"bob"}, ids)

	contains, err := members.Contains(ctx, "room1", "bob")
	require.NoError(t, err)
	assert.False(t, contains)

	require.NoError(t, waiting.Clear(ctx, "room1"))
	ids, err = waiting.List(ctx, "room1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = members.List(ctx, "room2")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
