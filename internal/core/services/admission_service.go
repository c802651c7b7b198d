package services

import (
	"context"
	"errors"
	"fmt"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"

	"go.uber.org/zap"
)

type admissionService struct {
	presence ports.PresenceRepository
	waiting  ports.UserListRepository
	notifier ports.Notifier
	rooms    ports.RoomService
	bc       *broadcaster
	logger   *zap.SugaredLogger
}

func NewAdmissionService(deps Dependencies, rooms ports.RoomService) ports.AdmissionService {
	deps = deps.withDefaults()
	return &admissionService{
		presence: deps.Presence,
		waiting:  deps.Waiting,
		notifier: deps.Notifier,
		rooms:    rooms,
		bc:       newBroadcaster(deps),
		logger:   deps.Logger,
	}
}

func (s *admissionService) RequestJoin(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode) error {
	entry, err := resolveSender(ctx, s.presence, connID)
	if err != nil {
		return err
	}
	if !s.notifier.GroupExists(code) {
		return domain.ErrRoomNotFound
	}
	if entry.InRoom() {
		return domain.ErrAlreadyInRoom
	}
	if entry.Waiting() {
		return domain.ErrAlreadyWaiting
	}

	if err := s.waiting.Append(ctx, code, entry.UserID); err != nil {
		return err
	}
	if err := s.presence.Update(ctx, entry.UserID, domain.LinkWaitingRoom(code)); err != nil {
		return fmt.Errorf("failed to mark %s as waiting for %s: %w", entry.UserID, code, err)
	}

	s.logger.Infow("join requested",
		"room_code", code,
		"user_id", entry.UserID,
	)
	return s.notifyOwner(ctx, code, true, entry.Info())
}

func (s *admissionService) CancelJoin(ctx context.Context, connID domain.ConnectionID) error {
	entry, err := resolveSender(ctx, s.presence, connID)
	if err != nil {
		return err
	}
	if !entry.Waiting() {
		return domain.ErrNotWaiting
	}
	code := entry.WaitingRoomCode

	if _, err := s.waiting.Remove(ctx, code, entry.UserID); err != nil {
		return err
	}
	if err := s.presence.Update(ctx, entry.UserID, domain.UnlinkWaitingRoom()); err != nil {
		return fmt.Errorf("failed to clear waiting room of %s: %w", entry.UserID, err)
	}

	if !s.notifier.GroupExists(code) {
		return nil
	}
	return s.notifyOwner(ctx, code, false, entry.Info())
}

func (s *admissionService) Decide(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode, target domain.UserID, approve bool) error {
	owner, err := resolveSender(ctx, s.presence, connID)
	if err != nil {
		return err
	}
	isOwner, err := s.rooms.IsOwner(ctx, owner.UserID, code)
	if err != nil {
		return err
	}
	if !isOwner {
		return domain.ErrNotRoomOwner
	}

	// A single LREM decides which of two concurrent decisions wins.
	removed, err := s.waiting.Remove(ctx, code, target)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrJoinRequestNotFound
	}

	entrant, err := s.presence.GetByUser(ctx, target)
	if errors.Is(err, domain.ErrPresenceNotFound) {
		if err := s.notifyOwnerList(ctx, code, owner, false, domain.UserInfo{UserID: target}); err != nil {
			return err
		}
		return domain.ErrParticipantUnavailable
	}
	if err != nil {
		return err
	}

	unlink := domain.UnlinkWaitingRoom()
	if err := s.presence.Update(ctx, target, unlink); err != nil {
		return fmt.Errorf("failed to clear waiting room of %s: %w", target, err)
	}
	unlink.Apply(entrant)

	if approve {
		if err := s.rooms.Admit(ctx, code, entrant); err != nil {
			// The entrant is in neither list now; close the request on both sides.
			if nerr := s.notifyOwnerList(ctx, code, owner, false, entrant.Info()); nerr != nil {
				s.logger.Warnw("failed to refresh waiting list", "room_code", code, "error", nerr)
			}
			s.bc.send(entrant.ConnectionID, domain.EventJoinDecided, domain.JoinDecidedPayload{
				RoomCode: code,
				Approve:  false,
			})
			return err
		}
	}

	s.logger.Infow("join request decided",
		"room_code", code,
		"user_id", target,
		"approve", approve,
	)

	if err := s.notifyOwnerList(ctx, code, owner, false, entrant.Info()); err != nil {
		return err
	}
	s.bc.send(entrant.ConnectionID, domain.EventJoinDecided, domain.JoinDecidedPayload{
		RoomCode: code,
		Approve:  approve,
	})
	return nil
}

func (s *admissionService) notifyOwner(ctx context.Context, code domain.RoomCode, isAdded bool, updated domain.UserInfo) error {
	ownerID, err := s.rooms.OwnerOf(ctx, code)
	if err != nil {
		return err
	}
	owner, err := s.presence.GetByUser(ctx, ownerID)
	if errors.Is(err, domain.ErrPresenceNotFound) {
		s.logger.Warnw("room owner not connected",
			"room_code", code,
			"user_id", ownerID,
		)
		return nil
	}
	if err != nil {
		return err
	}
	return s.notifyOwnerList(ctx, code, owner, isAdded, updated)
}

func (s *admissionService) notifyOwnerList(ctx context.Context, code domain.RoomCode, owner *domain.PresenceEntry, isAdded bool, updated domain.UserInfo) error {
	list, err := s.bc.waitingList(ctx, s.waiting, code)
	if err != nil {
		return err
	}
	s.bc.send(owner.ConnectionID, domain.EventWaitingChanged, domain.WaitingChangedPayload{
		WaitingList: list,
		IsAdded:     isAdded,
		UpdatedUser: updated,
	})
	return nil
}
