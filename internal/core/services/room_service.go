package services

import (
	"context"
	"errors"
	"fmt"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"
	"callroom/pkg/utils"
	"callroom/pkg/validation"

	"go.uber.org/zap"
)

const maxGenerateAttempts = 5

type roomService struct {
	presence ports.PresenceRepository
	members  ports.UserListRepository
	waiting  ports.UserListRepository
	notifier ports.Notifier
	metrics  ports.MetricsRecorder
	bc       *broadcaster
	logger   *zap.SugaredLogger
}

func NewRoomService(deps Dependencies) ports.RoomService {
	deps = deps.withDefaults()
	return &roomService{
		presence: deps.Presence,
		members:  deps.Members,
		waiting:  deps.Waiting,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		bc:       newBroadcaster(deps),
		logger:   deps.Logger,
	}
}

func (s *roomService) CreateRoom(ctx context.Context, connID domain.ConnectionID, requested domain.RoomCode) (domain.RoomCode, error) {
	entry, err := resolveSender(ctx, s.presence, connID)
	if err != nil {
		return "", err
	}
	if entry.InRoom() || entry.Waiting() {
		return "", domain.ErrAlreadyInRoom
	}

	code, err := s.pickCode(requested)
	if err != nil {
		return "", err
	}

	// Lists left behind by an expired room must not leak into the new one.
	if err := s.members.Clear(ctx, code); err != nil {
		return "", err
	}
	if err := s.waiting.Clear(ctx, code); err != nil {
		return "", err
	}

	if err := s.join(ctx, code, entry); err != nil {
		return "", err
	}

	s.metrics.RoomCreated()
	s.metrics.MemberJoined()
	s.bc.publish(ctx, domain.RoomCreated, code, entry.UserID)

	s.logger.Infow("room created",
		"room_code", code,
		"user_id", entry.UserID,
	)
	return code, nil
}

func (s *roomService) pickCode(requested domain.RoomCode) (domain.RoomCode, error) {
	if requested != "" {
		if err := validation.ValidateRoomCode(string(requested)); err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrInvalidParams, err)
		}
		if s.notifier.GroupExists(requested) {
			return "", domain.ErrRoomAlreadyExists
		}
		return requested, nil
	}
	return s.GenerateCode()
}

// GenerateCode returns a random code not used by any room on this instance.
func (s *roomService) GenerateCode() (domain.RoomCode, error) {
	for i := 0; i < maxGenerateAttempts; i++ {
		code := domain.RoomCode(utils.GenerateRoomCode())
		if !s.notifier.GroupExists(code) {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a free room code after %d attempts", maxGenerateAttempts)
}

func (s *roomService) Members(ctx context.Context, code domain.RoomCode) ([]domain.RoomParticipant, error) {
	return s.bc.participants(ctx, code)
}

func (s *roomService) MemberList(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode, includeSelf bool) ([]domain.RoomParticipant, error) {
	entry, err := resolveSender(ctx, s.presence, connID)
	if err != nil {
		return nil, err
	}

	participants, err := s.Members(ctx, code)
	if err != nil {
		return nil, err
	}

	isMember := false
	out := make([]domain.RoomParticipant, 0, len(participants))
	for _, p := range participants {
		if p.UserID == entry.UserID {
			isMember = true
			if !includeSelf {
				continue
			}
		}
		out = append(out, p)
	}
	if !isMember {
		return nil, domain.ErrNotRoomMember
	}
	return out, nil
}

func (s *roomService) OwnerOf(ctx context.Context, code domain.RoomCode) (domain.UserID, error) {
	owner, ok, err := s.members.Head(ctx, code)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	return owner, nil
}

func (s *roomService) IsOwner(ctx context.Context, userID domain.UserID, code domain.RoomCode) (bool, error) {
	owner, err := s.OwnerOf(ctx, code)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return owner == userID, nil
}

func (s *roomService) IsMember(ctx context.Context, userID domain.UserID, code domain.RoomCode) (bool, error) {
	return s.members.Contains(ctx, code, userID)
}

// Admit adds an already-present user to the room and tells the other
// members. Order: broadcast group, list, presence link.
func (s *roomService) Admit(ctx context.Context, code domain.RoomCode, entry *domain.PresenceEntry) error {
	if err := s.join(ctx, code, entry); err != nil {
		return err
	}

	s.metrics.MemberJoined()
	s.bc.publish(ctx, domain.MemberJoined, code, entry.UserID)

	participants, err := s.Members(ctx, code)
	if err != nil {
		return err
	}
	s.bc.toParticipants(participants, entry.UserID, domain.EventParticipantsChanged, domain.ParticipantsChangedPayload{
		Participants: participants,
		IsJoined:     true,
		ChangedUser:  entry.Info(),
	})
	return nil
}

// join puts entry in the broadcast group, the member list and links the room
// on its presence, undoing the earlier steps if a later one fails.
func (s *roomService) join(ctx context.Context, code domain.RoomCode, entry *domain.PresenceEntry) error {
	s.notifier.JoinGroup(entry.ConnectionID, code)
	if err := s.members.Append(ctx, code, entry.UserID); err != nil {
		s.notifier.LeaveGroup(entry.ConnectionID, code)
		return err
	}
	link := domain.LinkRoom(code)
	if err := s.presence.Update(ctx, entry.UserID, link); err != nil {
		if _, rmErr := s.members.Remove(ctx, code, entry.UserID); rmErr != nil {
			s.logger.Warnw("failed to roll back member append",
				"user_id", entry.UserID,
				"room_code", code,
				"error", rmErr,
			)
		}
		s.notifier.LeaveGroup(entry.ConnectionID, code)
		return fmt.Errorf("failed to link %s to room %s: %w", entry.UserID, code, err)
	}
	link.Apply(entry)
	return nil
}

func (s *roomService) LeaveRoom(ctx context.Context, connID domain.ConnectionID) error {
	entry, err := resolveSender(ctx, s.presence, connID)
	if err != nil {
		return err
	}
	if !entry.InRoom() {
		return domain.ErrNotInRoom
	}
	return s.leave(ctx, entry, entry.RoomCode)
}

func (s *roomService) Expel(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode, target domain.UserID) error {
	entry, err := resolveSender(ctx, s.presence, connID)
	if err != nil {
		return err
	}

	isOwner, err := s.IsOwner(ctx, entry.UserID, code)
	if err != nil {
		return err
	}
	if !isOwner {
		return domain.ErrNotRoomOwner
	}
	if target == entry.UserID {
		return fmt.Errorf("%w: owner cannot expel themselves", domain.ErrInvalidParams)
	}

	isMember, err := s.IsMember(ctx, target, code)
	if err != nil {
		return err
	}
	if !isMember {
		return domain.ErrNotRoomMember
	}

	targetEntry, err := s.presence.GetByUser(ctx, target)
	if errors.Is(err, domain.ErrPresenceNotFound) {
		return s.dropStale(ctx, code, target)
	}
	if err != nil {
		return err
	}

	s.bc.send(targetEntry.ConnectionID, domain.EventExpelled, domain.ExpelledPayload{RoomCode: code})

	s.logger.Infow("member expelled",
		"room_code", code,
		"user_id", target,
		"by", entry.UserID,
	)
	return s.leave(ctx, targetEntry, code)
}

// detach clears the room from entry's presence and broadcast group.
func (s *roomService) detach(ctx context.Context, entry *domain.PresenceEntry, code domain.RoomCode) {
	unlink := domain.UnlinkRoom()
	if err := s.presence.Update(ctx, entry.UserID, unlink); err != nil && !errors.Is(err, domain.ErrPresenceNotFound) {
		s.logger.Warnw("failed to unlink room from presence",
			"user_id", entry.UserID,
			"room_code", code,
			"error", err,
		)
	}
	s.notifier.LeaveGroup(entry.ConnectionID, code)
	unlink.Apply(entry)
}

// dropStale removes a member whose presence has expired and tells the rest.
func (s *roomService) dropStale(ctx context.Context, code domain.RoomCode, userID domain.UserID) error {
	removed, err := s.members.Remove(ctx, code, userID)
	if err != nil || !removed {
		return err
	}

	s.metrics.MemberLeft()
	s.bc.publish(ctx, domain.MemberLeft, code, userID)

	participants, err := s.Members(ctx, code)
	if err != nil {
		return err
	}
	s.bc.toParticipants(participants, userID, domain.EventParticipantsChanged, domain.ParticipantsChangedPayload{
		Participants: participants,
		IsJoined:     false,
		ChangedUser:  domain.UserInfo{UserID: userID},
	})
	return nil
}

// leave removes entry from the room, hands ownership to the next member if
// needed and tells the remaining members.
func (s *roomService) leave(ctx context.Context, entry *domain.PresenceEntry, code domain.RoomCode) error {
	wasOwner, err := s.IsOwner(ctx, entry.UserID, code)
	if err != nil {
		return err
	}

	removed, err := s.members.Remove(ctx, code, entry.UserID)
	if err != nil {
		return err
	}
	s.detach(ctx, entry, code)
	if !removed {
		return domain.ErrNotRoomMember
	}

	s.metrics.MemberLeft()
	s.bc.publish(ctx, domain.MemberLeft, code, entry.UserID)

	participants, err := s.Members(ctx, code)
	if err != nil {
		return err
	}

	if len(participants) == 0 {
		s.metrics.RoomClosed()
		s.bc.publish(ctx, domain.RoomClosed, code, "")
		s.logger.Infow("room closed", "room_code", code)
		return nil
	}

	if next := participants[0]; wasOwner && next.IsOwner {
		s.bc.send(next.ConnectionID, domain.EventOwnerChanged, domain.OwnerChangedPayload{UserID: next.UserID})
		s.bc.publish(ctx, domain.OwnerChanged, code, next.UserID)
	}

	s.bc.toParticipants(participants, entry.UserID, domain.EventParticipantsChanged, domain.ParticipantsChangedPayload{
		Participants: participants,
		IsJoined:     false,
		ChangedUser:  entry.Info(),
	})
	return nil
}
