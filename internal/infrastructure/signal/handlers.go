package signal

import (
	"context"
	"fmt"

	"callroom/internal/core/domain"
	"callroom/pkg/validation"
)

type handlerFunc func(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error)

type eventHandler struct {
	fn            handlerFunc
	fireAndForget bool
}

func (s *WebSocketServer) routes() map[string]eventHandler {
	return map[string]eventHandler{
		EventRoomCreate:      {fn: s.handleCreateRoom},
		EventRoomJoin:        {fn: s.handleJoinRoom},
		EventRoomJoinCancel:  {fn: s.handleCancelJoin, fireAndForget: true},
		EventRoomJoinDecide:  {fn: s.handleDecide},
		EventRoomLeave:       {fn: s.handleLeaveRoom, fireAndForget: true},
		EventRoomMembers:     {fn: s.handleMembers},
		EventRoomExpel:       {fn: s.handleExpel},
		EventSignalOffer:     {fn: s.sdpHandler(domain.SignalOffer)},
		EventSignalAnswer:    {fn: s.sdpHandler(domain.SignalAnswer)},
		EventSignalCandidate: {fn: s.handleCandidate},
		EventRTCReady:        {fn: s.handleReady},
		EventCallMic:         {fn: s.toggleHandler(domain.CallStateMicrophone)},
		EventCallCamera:      {fn: s.toggleHandler(domain.CallStateCamera)},
		EventCallHandRaised:  {fn: s.toggleHandler(domain.CallStateHandRaised)},
		EventChatSend:        {fn: s.handleChat},
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidParams, fmt.Sprintf(format, args...))
}

func decode(c *Client, data []byte, v interface{}) error {
	if err := c.codec.DecodeData(data, v); err != nil {
		return invalid("malformed data: %v", err)
	}
	return nil
}

func checkRoomCode(code domain.RoomCode) error {
	if err := validation.ValidateRoomCode(string(code)); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func checkUserID(id domain.UserID) error {
	if err := validation.ValidateUserID(string(id)); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func (s *WebSocketServer) handleCreateRoom(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
	var req createRoomRequest
	if err := decode(c, data, &req); err != nil {
		return nil, err
	}

	code, err := s.services.Rooms.CreateRoom(ctx, c.id, req.RoomCode)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"roomCode": code}, nil
}

func (s *WebSocketServer) handleJoinRoom(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
	var req roomRequest
	if err := decode(c, data, &req); err != nil {
		return nil, err
	}
	if err := checkRoomCode(req.RoomCode); err != nil {
		return nil, err
	}
	return nil, s.services.Admission.RequestJoin(ctx, c.id, req.RoomCode)
}

func (s *WebSocketServer) handleCancelJoin(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
	return nil, s.services.Admission.CancelJoin(ctx, c.id)
}

func (s *WebSocketServer) handleDecide(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
	var req decideRequest
	if err := decode(c, data, &req); err != nil {
		return nil, err
	}
	if err := checkRoomCode(req.RoomCode); err != nil {
		return nil, err
	}
	if err := checkUserID(req.UserID); err != nil {
		return nil, err
	}
	if req.Approve == nil {
		return nil, invalid("approve is required")
	}
	return nil, s.services.Admission.Decide(ctx, c.id, req.RoomCode, req.UserID, *req.Approve)
}

func (s *WebSocketServer) handleLeaveRoom(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
	return nil, s.services.Rooms.LeaveRoom(ctx, c.id)
}

func (s *WebSocketServer) handleMembers(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
	var req membersRequest
	if err := decode(c, data, &req); err != nil {
		return nil, err
	}
	if err := checkRoomCode(req.RoomCode); err != nil {
		return nil, err
	}

	members, err := s.services.Rooms.MemberList(ctx, c.id, req.RoomCode, req.IncludeSelf)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"members": members}, nil
}

func (s *WebSocketServer) handleExpel(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
	var req expelRequest
	if err := decode(c, data, &req); err != nil {
		return nil, err
	}
	if err := checkRoomCode(req.RoomCode); err != nil {
		return nil, err
	}
	if err := checkUserID(req.UserID); err != nil {
		return nil, err
	}
	return nil, s.services.Rooms.Expel(ctx, c.id, req.RoomCode, req.UserID)
}

func (s *WebSocketServer) sdpHandler(kind domain.SignalKind) handlerFunc {
	return func(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
		var req sdpRequest
		if err := decode(c, data, &req); err != nil {
			return nil, err
		}
		if err := checkRoomCode(req.RoomCode); err != nil {
			return nil, err
		}
		if err := checkUserID(req.ToUserID); err != nil {
			return nil, err
		}
		if err := validation.ValidateNonEmptyString(req.SDP, "sdp"); err != nil {
			return nil, invalid("%v", err)
		}

		payload := domain.SignalPayload{"sdp": req.SDP}
		return nil, s.services.Relay.Relay(ctx, kind, req.RoomCode, c.id, req.ToUserID, payload)
	}
}

func (s *WebSocketServer) handleCandidate(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
	var req candidateRequest
	if err := decode(c, data, &req); err != nil {
		return nil, err
	}
	if err := checkRoomCode(req.RoomCode); err != nil {
		return nil, err
	}
	if err := checkUserID(req.ToUserID); err != nil {
		return nil, err
	}
	if req.Candidate == nil {
		return nil, invalid("candidate is required")
	}

	// An empty candidate marks end-of-candidates and is forwarded as is.
	payload := domain.SignalPayload{
		"candidate":     *req.Candidate,
		"sdpMid":        req.SDPMid,
		"sdpMLineIndex": req.SDPMLineIndex,
	}
	return nil, s.services.Relay.Relay(ctx, domain.SignalCandidate, req.RoomCode, c.id, req.ToUserID, payload)
}

func (s *WebSocketServer) handleReady(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
	var req roomRequest
	if err := decode(c, data, &req); err != nil {
		return nil, err
	}
	if err := checkRoomCode(req.RoomCode); err != nil {
		return nil, err
	}
	return nil, s.services.Relay.AnnounceReady(ctx, req.RoomCode, c.id)
}

func (s *WebSocketServer) toggleHandler(state domain.CallState) handlerFunc {
	return func(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
		var req toggleRequest
		if err := decode(c, data, &req); err != nil {
			return nil, err
		}
		if err := checkRoomCode(req.RoomCode); err != nil {
			return nil, err
		}
		if req.IsOn == nil {
			return nil, invalid("isOn is required")
		}
		return nil, s.services.Calls.ChangeState(ctx, c.id, req.RoomCode, state, *req.IsOn)
	}
}

func (s *WebSocketServer) handleChat(ctx context.Context, c *Client, data []byte) (map[string]interface{}, error) {
	var req chatRequest
	if err := decode(c, data, &req); err != nil {
		return nil, err
	}
	if err := checkRoomCode(req.RoomCode); err != nil {
		return nil, err
	}
	return nil, s.services.Calls.SendChat(ctx, c.id, req.RoomCode, req.Message)
}
