package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"
	"callroom/pkg/utils"
	"callroom/pkg/validation"

	"go.uber.org/zap"
)

const DefaultChatMaxLength = 2000

type callService struct {
	presence      ports.PresenceRepository
	members       ports.UserListRepository
	notifier      ports.Notifier
	bc            *broadcaster
	chatMaxLength int
	now           func() time.Time
	logger        *zap.SugaredLogger
}

func NewCallService(deps Dependencies, chatMaxLength int) ports.CallService {
	deps = deps.withDefaults()
	if chatMaxLength <= 0 {
		chatMaxLength = DefaultChatMaxLength
	}
	return &callService{
		presence:      deps.Presence,
		members:       deps.Members,
		notifier:      deps.Notifier,
		bc:            newBroadcaster(deps),
		chatMaxLength: chatMaxLength,
		now:           time.Now,
		logger:        deps.Logger,
	}
}

func (s *callService) ChangeState(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode, state domain.CallState, on bool) error {
	sender, err := resolveSender(ctx, s.presence, connID)
	if err != nil {
		return err
	}
	if !s.notifier.GroupExists(code) {
		return domain.ErrRoomNotFound
	}
	isMember, err := s.members.Contains(ctx, code, sender.UserID)
	if err != nil {
		return err
	}
	if !isMember {
		return domain.ErrNotRoomMember
	}

	var (
		update  domain.PresenceUpdate
		current bool
		event   string
	)
	switch state {
	case domain.CallStateMicrophone:
		current, update.MicOn, event = sender.MicOn, &on, domain.EventMicrophoneChanged
	case domain.CallStateCamera:
		current, update.CameraOn, event = sender.CameraOn, &on, domain.EventCameraChanged
	case domain.CallStateHandRaised:
		current, update.HandRaised, event = sender.HandRaised, &on, domain.EventHandRaisedChanged
	default:
		return fmt.Errorf("%w: unknown call state %q", domain.ErrInvalidParams, state)
	}
	if current == on {
		return domain.ErrNoStateChange
	}

	if err := s.presence.Update(ctx, sender.UserID, update); err != nil {
		return err
	}

	participants, err := s.bc.participants(ctx, code)
	if err != nil {
		return err
	}

	var changed domain.RoomParticipant
	for _, p := range participants {
		if p.UserID == sender.UserID {
			changed = p
			break
		}
	}

	var payload interface{} = domain.CallStateChangedPayload{ChangedUser: changed, IsOn: on}
	if state == domain.CallStateHandRaised {
		raised := make([]domain.RoomParticipant, 0)
		for _, p := range participants {
			if p.HandRaised {
				raised = append(raised, p)
			}
		}
		payload = domain.HandRaiseChangedPayload{ChangedUser: changed, IsOn: on, HandRaisedUsers: raised}
	}

	s.bc.toParticipants(participants, sender.UserID, event, payload)
	return nil
}

func (s *callService) SendChat(ctx context.Context, connID domain.ConnectionID, code domain.RoomCode, message string) error {
	message = utils.SanitizeString(message)
	if err := validation.ValidateStringLength(message, 1, s.chatMaxLength, "message"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidParams, err)
	}

	sender, err := resolveSender(ctx, s.presence, connID)
	if err != nil {
		return err
	}

	participants, err := s.bc.participants(ctx, code)
	if err != nil {
		return err
	}

	var (
		view     domain.RoomParticipant
		isMember bool
	)
	for _, p := range participants {
		if p.UserID == sender.UserID {
			view, isMember = p, true
			break
		}
	}
	if !isMember {
		return domain.ErrNotRoomMember
	}

	s.logger.Debugw("chat message",
		"room_code", code,
		"user_id", sender.UserID,
		"length", utf8.RuneCountInString(message),
	)

	s.bc.toParticipants(participants, "", domain.EventChatMessage, domain.ChatMessagePayload{
		Message: message,
		SentAt:  s.now().Unix(),
		Sender:  view,
	})
	return nil
}
