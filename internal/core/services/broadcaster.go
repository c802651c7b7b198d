package services

import (
	"context"
	"errors"
	"fmt"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"

	"go.uber.org/zap"
)

// broadcaster fans events out to room members. A failed delivery is logged
// and counted; the remaining recipients still get the event.
type broadcaster struct {
	presence ports.PresenceRepository
	members  ports.UserListRepository
	notifier ports.Notifier
	events   ports.RoomEventPublisher
	metrics  ports.MetricsRecorder
	logger   *zap.SugaredLogger
}

func newBroadcaster(deps Dependencies) *broadcaster {
	return &broadcaster{
		presence: deps.Presence,
		members:  deps.Members,
		notifier: deps.Notifier,
		events:   deps.Events,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
}

func (b *broadcaster) send(connID domain.ConnectionID, event string, payload interface{}) {
	if err := b.notifier.Notify(connID, event, payload); err != nil {
		b.metrics.DeliveryFailed(event)
		b.logger.Warnw("failed to deliver event",
			"connection_id", connID,
			"event", event,
			"error", err,
		)
	}
}

// sendToUser resolves the user's live connection before sending.
func (b *broadcaster) sendToUser(ctx context.Context, userID domain.UserID, event string, payload interface{}) {
	entry, err := b.presence.GetByUser(ctx, userID)
	if err != nil {
		b.metrics.DeliveryFailed(event)
		b.logger.Warnw("recipient not connected",
			"user_id", userID,
			"event", event,
			"error", err,
		)
		return
	}
	b.send(entry.ConnectionID, event, payload)
}

// toParticipants sends to every participant except skip. An empty skip sends to all.
func (b *broadcaster) toParticipants(participants []domain.RoomParticipant, skip domain.UserID, event string, payload interface{}) {
	for _, p := range participants {
		if skip != "" && p.UserID == skip {
			continue
		}
		b.send(p.ConnectionID, event, payload)
	}
}

// participants returns the ordered views of the room's members. Ids whose
// presence has expired are skipped; ownership follows the raw list head.
func (b *broadcaster) participants(ctx context.Context, code domain.RoomCode) ([]domain.RoomParticipant, error) {
	ids, err := b.members.List(ctx, code)
	if err != nil {
		return nil, err
	}

	views := make([]domain.RoomParticipant, 0, len(ids))
	for i, id := range ids {
		entry, err := b.presence.GetByUser(ctx, id)
		if errors.Is(err, domain.ErrPresenceNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load member %s of %s: %w", id, code, err)
		}
		views = append(views, entry.View(i == 0))
	}
	return views, nil
}

// waitingList returns the identities of the room's pending entrants in request order.
func (b *broadcaster) waitingList(ctx context.Context, waiting ports.UserListRepository, code domain.RoomCode) ([]domain.UserInfo, error) {
	ids, err := waiting.List(ctx, code)
	if err != nil {
		return nil, err
	}

	infos := make([]domain.UserInfo, 0, len(ids))
	for _, id := range ids {
		entry, err := b.presence.GetByUser(ctx, id)
		if errors.Is(err, domain.ErrPresenceNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load entrant %s of %s: %w", id, code, err)
		}
		infos = append(infos, entry.Info())
	}
	return infos, nil
}

func (b *broadcaster) publish(ctx context.Context, eventType domain.RoomEventType, code domain.RoomCode, userID domain.UserID) {
	event := domain.RoomEvent{Type: eventType, RoomCode: code, UserID: userID}
	if err := b.events.PublishRoomEvent(ctx, event); err != nil {
		b.logger.Warnw("failed to publish room event",
			"type", eventType,
			"room_code", code,
			"error", err,
		)
	}
}

// resolveSender maps a connection to its presence entry; a connection
// without one is treated as unauthenticated.
func resolveSender(ctx context.Context, presence ports.PresenceRepository, connID domain.ConnectionID) (*domain.PresenceEntry, error) {
	entry, err := presence.GetByConnection(ctx, connID)
	if errors.Is(err, domain.ErrPresenceNotFound) {
		return nil, domain.ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}
