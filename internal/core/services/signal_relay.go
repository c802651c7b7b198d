package services

import (
	"context"
	"errors"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"

	"go.uber.org/zap"
)

var signalEvents = map[domain.SignalKind]string{
	domain.SignalOffer:     domain.EventSignalOffer,
	domain.SignalAnswer:    domain.EventSignalAnswer,
	domain.SignalCandidate: domain.EventSignalCandidate,
}

type signalRelay struct {
	presence ports.PresenceRepository
	members  ports.UserListRepository
	metrics  ports.MetricsRecorder
	bc       *broadcaster
	logger   *zap.SugaredLogger
}

func NewSignalRelay(deps Dependencies) ports.SignalRelay {
	deps = deps.withDefaults()
	return &signalRelay{
		presence: deps.Presence,
		members:  deps.Members,
		metrics:  deps.Metrics,
		bc:       newBroadcaster(deps),
		logger:   deps.Logger,
	}
}

// Relay forwards a negotiation payload to one member. The payload is not
// inspected; only fromUserId is added.
func (r *signalRelay) Relay(ctx context.Context, kind domain.SignalKind, code domain.RoomCode, from domain.ConnectionID, to domain.UserID, payload domain.SignalPayload) error {
	event, ok := signalEvents[kind]
	if !ok {
		return domain.ErrInvalidParams
	}

	sender, err := r.memberSender(ctx, code, from)
	if err != nil {
		return err
	}

	isMember, err := r.members.Contains(ctx, code, to)
	if err != nil {
		return err
	}
	if !isMember {
		return domain.ErrNotRoomMember
	}

	recipient, err := r.presence.GetByUser(ctx, to)
	if errors.Is(err, domain.ErrPresenceNotFound) {
		return domain.ErrParticipantUnavailable
	}
	if err != nil {
		return err
	}

	forwarded := make(domain.SignalPayload, len(payload)+1)
	for k, v := range payload {
		forwarded[k] = v
	}
	forwarded["fromUserId"] = sender.UserID

	r.bc.send(recipient.ConnectionID, event, forwarded)
	r.metrics.SignalRelayed(kind)
	return nil
}

// AnnounceReady tells the other members that the sender can accept offers.
func (r *signalRelay) AnnounceReady(ctx context.Context, code domain.RoomCode, from domain.ConnectionID) error {
	sender, err := r.memberSender(ctx, code, from)
	if err != nil {
		return err
	}

	participants, err := r.bc.participants(ctx, code)
	if err != nil {
		return err
	}
	r.bc.toParticipants(participants, sender.UserID, domain.EventPeerReady, domain.PeerReadyPayload{UserID: sender.UserID})
	return nil
}

func (r *signalRelay) memberSender(ctx context.Context, code domain.RoomCode, from domain.ConnectionID) (*domain.PresenceEntry, error) {
	sender, err := resolveSender(ctx, r.presence, from)
	if err != nil {
		return nil, err
	}
	isMember, err := r.members.Contains(ctx, code, sender.UserID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, domain.ErrNotRoomMember
	}
	return sender, nil
}
