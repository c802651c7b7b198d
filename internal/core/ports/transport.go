package ports

import (
	"context"

	"callroom/internal/core/domain"
)

// Notifier delivers server events to live connections and tracks broadcast groups.
// A room exists while its broadcast group has at least one connection.
type Notifier interface {
	Notify(connID domain.ConnectionID, event string, payload interface{}) error
	JoinGroup(connID domain.ConnectionID, code domain.RoomCode)
	LeaveGroup(connID domain.ConnectionID, code domain.RoomCode)
	GroupExists(code domain.RoomCode) bool
	// CloseConnection drops a live connection; used when a user reconnects elsewhere.
	CloseConnection(connID domain.ConnectionID)
}

type TokenVerifier interface {
	VerifyAccessToken(token string) (domain.Identity, error)
}

type RoomEventPublisher interface {
	PublishRoomEvent(ctx context.Context, event domain.RoomEvent) error
}

type MetricsRecorder interface {
	RoomCreated()
	RoomClosed()
	MemberJoined()
	MemberLeft()
	SignalRelayed(kind domain.SignalKind)
	DeliveryFailed(event string)
	CleanupStepFailed(step string)
}
