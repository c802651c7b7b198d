package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomService_CreateRoom(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect(t, "alice")

	code, err := env.rooms.CreateRoom(env.ctx, alice, "")
	require.NoError(t, err)
	assert.Len(t, code, 8)

	assert.True(t, env.notifier.GroupExists(code))
	assert.Equal(t, []domain.UserID{"alice"}, env.memberIDs(t, code))
	assert.Equal(t, code, env.presenceOf(t, "alice").RoomCode)

	owner, err := env.rooms.OwnerOf(env.ctx, code)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("alice"), owner)
	assert.Equal(t, 1, env.metrics.roomsCreated)
}

func TestRoomService_CreateRoomErrors(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect(t, "alice")
	bob := env.connect(t, "bob")

	_, err := env.rooms.CreateRoom(env.ctx, alice, "team-sync")
	require.NoError(t, err)

	tests := []struct {
		name    string
		conn    domain.ConnectionID
		code    domain.RoomCode
		wantErr error
	}{
		{"unbound connection", "conn_nobody", "", domain.ErrInvalidCredential},
		{"already in room", alice, "", domain.ErrAlreadyInRoom},
		{"invalid code", bob, "bad code!", domain.ErrInvalidParams},
		{"code too long", bob, domain.RoomCode(strings.Repeat("x", 65)), domain.ErrInvalidParams},
		{"code taken", bob, "team-sync", domain.ErrRoomAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.rooms.CreateRoom(env.ctx, tt.conn, tt.code)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.False(t, env.presenceOf(t, "bob").InRoom())
}

func TestRoomService_CreateRoomWhileWaiting(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice")
	bob := env.connect(t, "bob")
	require.NoError(t, env.admission.RequestJoin(env.ctx, bob, code))

	_, err := env.rooms.CreateRoom(env.ctx, bob, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyInRoom)
}

func TestRoomService_CreateRoomDropsStaleLists(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.deps.Members.Append(env.ctx, "reused", "ghost"))
	require.NoError(t, env.deps.Waiting.Append(env.ctx, "reused", "ghost"))

	alice := env.connect(t, "alice")
	code, err := env.rooms.CreateRoom(env.ctx, alice, "reused")
	require.NoError(t, err)

	assert.Equal(t, []domain.UserID{"alice"}, env.memberIDs(t, code))
	assert.Empty(t, env.waitingIDs(t, code))
}

func TestRoomService_OwnerIsEarliestMember(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob", "carol")

	assertOwner := func(want domain.UserID) {
		t.Helper()
		participants, err := env.rooms.Members(env.ctx, code)
		require.NoError(t, err)
		require.NotEmpty(t, participants)
		assert.Equal(t, want, participants[0].UserID)
		assert.True(t, participants[0].IsOwner)
		for _, p := range participants[1:] {
			assert.False(t, p.IsOwner)
		}
	}

	assertOwner("alice")

	require.NoError(t, env.rooms.LeaveRoom(env.ctx, connID("alice")))
	assertOwner("bob")

	owned := env.notifier.events(connID("bob"), domain.EventOwnerChanged)
	require.Len(t, owned, 1)
	assert.Equal(t, domain.OwnerChangedPayload{UserID: "bob"}, owned[0])
	assert.Empty(t, env.notifier.events(connID("carol"), domain.EventOwnerChanged))

	changed := env.notifier.events(connID("carol"), domain.EventParticipantsChanged)
	require.Len(t, changed, 1)
	payload := changed[0].(domain.ParticipantsChangedPayload)
	assert.False(t, payload.IsJoined)
	assert.Equal(t, domain.UserID("alice"), payload.ChangedUser.UserID)
	assert.Len(t, payload.Participants, 2)

	// Non-owner leaving keeps the owner.
	require.NoError(t, env.rooms.LeaveRoom(env.ctx, connID("carol")))
	assertOwner("bob")
}

func TestRoomService_LeaveRoom(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob")

	require.NoError(t, env.rooms.LeaveRoom(env.ctx, connID("bob")))

	assert.Equal(t, []domain.UserID{"alice"}, env.memberIDs(t, code))
	assert.False(t, env.presenceOf(t, "bob").InRoom())
	assert.Empty(t, env.notifier.events(connID("bob"), domain.EventParticipantsChanged))
	assert.Len(t, env.notifier.events(connID("alice"), domain.EventParticipantsChanged), 1)

	assert.ErrorIs(t, env.rooms.LeaveRoom(env.ctx, connID("bob")), domain.ErrNotInRoom)

	require.NoError(t, env.rooms.LeaveRoom(env.ctx, connID("alice")))
	assert.False(t, env.notifier.GroupExists(code))
	assert.Equal(t, 1, env.metrics.roomsClosed)
}

// failingLink fails every update that links a room while fail is set.
type failingLink struct {
	ports.PresenceRepository
	fail bool
}

func (f *failingLink) Update(ctx context.Context, userID domain.UserID, update domain.PresenceUpdate) error {
	if f.fail && update.RoomCode != nil && *update.RoomCode != "" {
		return errors.New("store timeout")
	}
	return f.PresenceRepository.Update(ctx, userID, update)
}

func TestRoomService_CreateRoomRollsBackFailedLink(t *testing.T) {
	env := newTestEnv(t)
	presence := &failingLink{PresenceRepository: env.deps.Presence, fail: true}
	env.deps.Presence = presence
	env.build()
	owner := env.connect(t, "alice")

	_, err := env.rooms.CreateRoom(env.ctx, owner, "r1")
	require.Error(t, err)

	assert.Empty(t, env.memberIDs(t, "r1"))
	assert.False(t, env.notifier.GroupExists("r1"))
	assert.False(t, env.presenceOf(t, "alice").InRoom())

	presence.fail = false
	code, err := env.rooms.CreateRoom(env.ctx, owner, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoomCode("r1"), code)
	assert.Equal(t, []domain.UserID{"alice"}, env.memberIDs(t, code))
}

func TestRoomService_LeaveRoomAfterMemberListLost(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob")
	_, err := env.deps.Members.Remove(env.ctx, code, "alice")
	require.NoError(t, err)

	assert.ErrorIs(t, env.rooms.LeaveRoom(env.ctx, connID("alice")), domain.ErrNotRoomMember)

	assert.False(t, env.presenceOf(t, "alice").InRoom())
	_, grouped := env.notifier.groups[code][connID("alice")]
	assert.False(t, grouped)

	_, err = env.rooms.CreateRoom(env.ctx, connID("alice"), "")
	assert.NoError(t, err, "a stale room link must not block a new room")
}

func TestRoomService_MemberList(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob")
	outsider := env.connect(t, "mallory")

	others, err := env.rooms.MemberList(env.ctx, connID("bob"), code, false)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, domain.UserID("alice"), others[0].UserID)
	assert.True(t, others[0].IsOwner)

	all, err := env.rooms.MemberList(env.ctx, connID("bob"), code, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = env.rooms.MemberList(env.ctx, outsider, code, true)
	assert.ErrorIs(t, err, domain.ErrNotRoomMember)
}

func TestRoomService_MembersSkipsStaleIDs(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice")
	require.NoError(t, env.deps.Members.Append(env.ctx, code, "ghost"))

	participants, err := env.rooms.Members(env.ctx, code)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, domain.UserID("alice"), participants[0].UserID)
}

func TestRoomService_Expel(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob", "carol")
	owner := connID("alice")

	t.Run("not owner", func(t *testing.T) {
		err := env.rooms.Expel(env.ctx, connID("bob"), code, "carol")
		assert.ErrorIs(t, err, domain.ErrNotRoomOwner)
	})

	t.Run("self", func(t *testing.T) {
		err := env.rooms.Expel(env.ctx, owner, code, "alice")
		assert.ErrorIs(t, err, domain.ErrInvalidParams)
	})

	t.Run("not a member", func(t *testing.T) {
		err := env.rooms.Expel(env.ctx, owner, code, "mallory")
		assert.ErrorIs(t, err, domain.ErrNotRoomMember)
	})

	t.Run("member", func(t *testing.T) {
		env.notifier.reset()
		require.NoError(t, env.rooms.Expel(env.ctx, owner, code, "bob"))

		assert.Equal(t, []domain.UserID{"alice", "carol"}, env.memberIDs(t, code))
		assert.False(t, env.presenceOf(t, "bob").InRoom())

		expelled := env.notifier.events(connID("bob"), domain.EventExpelled)
		require.Len(t, expelled, 1)
		assert.Equal(t, domain.ExpelledPayload{RoomCode: code}, expelled[0])

		assert.Len(t, env.notifier.events(connID("carol"), domain.EventParticipantsChanged), 1)
		assert.Len(t, env.notifier.events(owner, domain.EventParticipantsChanged), 1)
		assert.Empty(t, env.notifier.events(connID("bob"), domain.EventParticipantsChanged))
	})
}

func TestRoomService_ExpelMemberWithoutPresence(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob", "carol")
	require.NoError(t, env.deps.Presence.Unbind(env.ctx, connID("bob")))

	require.NoError(t, env.rooms.Expel(env.ctx, connID("alice"), code, "bob"))

	assert.Equal(t, []domain.UserID{"alice", "carol"}, env.memberIDs(t, code))
	changed := env.notifier.events(connID("carol"), domain.EventParticipantsChanged)
	require.Len(t, changed, 1)
	payload := changed[0].(domain.ParticipantsChangedPayload)
	assert.False(t, payload.IsJoined)
	assert.Equal(t, domain.UserID("bob"), payload.ChangedUser.UserID)
	assert.Len(t, payload.Participants, 2)
	assert.Equal(t, 1, env.metrics.left)
}

func TestRoomService_DeliveryFailureDoesNotStopFanOut(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob", "carol")
	env.notifier.failFor[connID("bob")] = true

	require.NoError(t, env.rooms.LeaveRoom(env.ctx, connID("alice")))

	assert.Len(t, env.notifier.events(connID("carol"), domain.EventParticipantsChanged), 1)
	assert.Equal(t, 2, env.metrics.deliveryFailed[domain.EventOwnerChanged]+env.metrics.deliveryFailed[domain.EventParticipantsChanged])
	assert.Equal(t, []domain.UserID{"bob", "carol"}, env.memberIDs(t, code))
}
