package services

import (
	"context"
	"errors"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"

	"go.uber.org/zap"
)

const (
	stepCancelJoin = "cancel_join"
	stepLeaveRoom  = "leave_room"
	stepPurge      = "purge"
)

type lifecycleService struct {
	presence  ports.PresenceRepository
	notifier  ports.Notifier
	verifier  ports.TokenVerifier
	rooms     ports.RoomService
	admission ports.AdmissionService
	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger
}

func NewLifecycleService(
	deps Dependencies,
	verifier ports.TokenVerifier,
	rooms ports.RoomService,
	admission ports.AdmissionService,
) ports.LifecycleService {
	deps = deps.withDefaults()
	return &lifecycleService{
		presence:  deps.Presence,
		notifier:  deps.Notifier,
		verifier:  verifier,
		rooms:     rooms,
		admission: admission,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
}

// Connect verifies the token and binds the connection. A previous
// connection of the same user is cleaned up and closed first.
func (s *lifecycleService) Connect(ctx context.Context, connID domain.ConnectionID, token string) (*domain.PresenceEntry, error) {
	identity, err := s.verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	previous, err := s.presence.GetByUser(ctx, identity.UserID)
	switch {
	case err == nil && previous.ConnectionID != connID:
		s.logger.Infow("replacing previous connection",
			"user_id", identity.UserID,
			"previous_connection_id", previous.ConnectionID,
			"connection_id", connID,
		)
		s.Disconnect(ctx, previous.ConnectionID)
		s.notifier.CloseConnection(previous.ConnectionID)
	case err != nil && !errors.Is(err, domain.ErrPresenceNotFound):
		return nil, err
	}

	entry := domain.NewPresenceEntry(connID, identity)
	if err := s.presence.Bind(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Disconnect runs every cleanup step even if an earlier one failed.
func (s *lifecycleService) Disconnect(ctx context.Context, connID domain.ConnectionID) domain.CleanupReport {
	var report domain.CleanupReport

	report.CancelJoin = s.step(connID, stepCancelJoin, s.admission.CancelJoin(ctx, connID),
		domain.ErrNotWaiting, domain.ErrInvalidCredential)
	report.LeaveRoom = s.step(connID, stepLeaveRoom, s.rooms.LeaveRoom(ctx, connID),
		domain.ErrNotInRoom, domain.ErrNotRoomMember, domain.ErrInvalidCredential)
	report.Purge = s.step(connID, stepPurge, s.presence.Unbind(ctx, connID),
		domain.ErrPresenceNotFound)

	return report
}

// step swallows the expected errors, and logs and counts the rest.
func (s *lifecycleService) step(connID domain.ConnectionID, name string, err error, expected ...error) error {
	if err == nil {
		return nil
	}
	for _, e := range expected {
		if errors.Is(err, e) {
			return nil
		}
	}

	s.metrics.CleanupStepFailed(name)
	s.logger.Warnw("disconnect cleanup step failed",
		"connection_id", connID,
		"step", name,
		"error", err,
	)
	return err
}
