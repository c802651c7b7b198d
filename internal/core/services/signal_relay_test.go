package services

import (
	"testing"

	"callroom/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalRelay_ForwardsToRecipientOnly(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob", "carol")

	payload := domain.SignalPayload{"sdp": "v=0..."}
	require.NoError(t, env.relay.Relay(env.ctx, domain.SignalOffer, code, connID("alice"), "bob", payload))

	offers := env.notifier.events(connID("bob"), domain.EventSignalOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, domain.SignalPayload{"sdp": "v=0...", "fromUserId": domain.UserID("alice")}, offers[0])
	assert.NotContains(t, payload, "fromUserId", "caller payload must not be mutated")

	assert.Equal(t, 1, env.notifier.count())
	assert.Equal(t, 1, env.metrics.relayed[domain.SignalOffer])
}

func TestSignalRelay_EventPerKind(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob")

	kinds := map[domain.SignalKind]string{
		domain.SignalOffer:     domain.EventSignalOffer,
		domain.SignalAnswer:    domain.EventSignalAnswer,
		domain.SignalCandidate: domain.EventSignalCandidate,
	}
	for kind, event := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			require.NoError(t, env.relay.Relay(env.ctx, kind, code, connID("bob"), "alice", domain.SignalPayload{}))
			assert.Len(t, env.notifier.events(connID("alice"), event), 1)
		})
	}
}

func TestSignalRelay_Errors(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob")
	outsider := env.connect(t, "mallory")
	require.NoError(t, env.deps.Members.Append(env.ctx, code, "ghost"))
	env.notifier.reset()

	tests := []struct {
		name    string
		kind    domain.SignalKind
		from    domain.ConnectionID
		to      domain.UserID
		wantErr error
	}{
		{"unknown kind", "renegotiate", connID("alice"), "bob", domain.ErrInvalidParams},
		{"unbound sender", domain.SignalAnswer, "conn_nobody", "bob", domain.ErrInvalidCredential},
		{"sender not member", domain.SignalOffer, outsider, "bob", domain.ErrNotRoomMember},
		{"recipient not member", domain.SignalOffer, connID("alice"), "mallory", domain.ErrNotRoomMember},
		{"recipient gone", domain.SignalOffer, connID("alice"), "ghost", domain.ErrParticipantUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.relay.Relay(env.ctx, tt.kind, code, tt.from, tt.to, domain.SignalPayload{"sdp": "x"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, 0, env.notifier.count(), "failed relays must not emit")
}

func TestSignalRelay_AnnounceReady(t *testing.T) {
	env := newTestEnv(t)
	code := env.roomWith(t, "alice", "bob", "carol")

	require.NoError(t, env.relay.AnnounceReady(env.ctx, code, connID("bob")))

	for _, u := range []domain.UserID{"alice", "carol"} {
		ready := env.notifier.events(connID(u), domain.EventPeerReady)
		require.Len(t, ready, 1)
		assert.Equal(t, domain.PeerReadyPayload{UserID: "bob"}, ready[0])
	}
	assert.Empty(t, env.notifier.events(connID("bob"), domain.EventPeerReady))

	outsider := env.connect(t, "mallory")
	assert.ErrorIs(t, env.relay.AnnounceReady(env.ctx, code, outsider), domain.ErrNotRoomMember)
}
