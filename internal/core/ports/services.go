package ports

import (
	"context"

	"callroom/internal/core/domain"
)

type RoomService interface {
	CreateRoom(ctx context.Context, connID domain.ConnectionID, requested domain.RoomCode) (domain.RoomCode, error)
	GenerateCode() (domain.RoomCode, error)
	Members(ctx context.Context, code domain.RoomCode) ([]domain.RoomParticipant, error)
	MemberList(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode, includeSelf bool) ([]domain.RoomParticipant, error)
	OwnerOf(ctx context.Context, code domain.RoomCode) (domain.UserID, error)
	IsOwner(ctx context.Context, userID domain.UserID, code domain.RoomCode) (bool, error)
	IsMember(ctx context.Context, userID domain.UserID, code domain.RoomCode) (bool, error)
	Admit(ctx context.Context, code domain.RoomCode, entry *domain.PresenceEntry) error
	LeaveRoom(ctx context.Context, connID domain.ConnectionID) error
	Expel(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode, target domain.UserID) error
}

type AdmissionService interface {
	RequestJoin(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode) error
	CancelJoin(ctx context.Context, connID domain.ConnectionID) error
	Decide(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode, target domain.UserID, approve bool) error
}

type SignalRelay interface {
	Relay(ctx context.Context, kind domain.SignalKind, code domain.RoomCode, from domain.ConnectionID, to domain.UserID, payload domain.SignalPayload) error
	AnnounceReady(ctx context.Context, code domain.RoomCode, from domain.ConnectionID) error
}

type CallService interface {
	ChangeState(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode, state domain.CallState, on bool) error
	SendChat(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode, message string) error
}

type LifecycleService interface {
	Connect(ctx context.Context, connID domain.ConnectionID, token string) (*domain.PresenceEntry, error)
	Disconnect(ctx context.Context, connID domain.ConnectionID) domain.CleanupReport
}
