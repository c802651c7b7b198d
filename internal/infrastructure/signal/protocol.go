package signal

import (
	"callroom/internal/core/domain"
)

// Inbound event names.
const (
	EventRoomCreate      = "room.create"
	EventRoomJoin        = "room.join"
	EventRoomJoinCancel  = "room.join.cancel"
	EventRoomJoinDecide  = "room.join.decide"
	EventRoomLeave       = "room.leave"
	EventRoomMembers     = "room.members"
	EventRoomExpel       = "room.expel"
	EventSignalOffer     = "signal.offer"
	EventSignalAnswer    = "signal.answer"
	EventSignalCandidate = "signal.ice"
	EventRTCReady        = "rtc.ready"
	EventCallMic         = "call.mic"
	EventCallCamera      = "call.camera"
	EventCallHandRaised  = "call.handRaised"
	EventChatSend        = "chat.send"
)

const (
	frameAck   = "ack"
	frameEvent = "event"
)

// Frame is every server-to-client message.
type Frame struct {
	Type  string      `json:"type"`
	ID    *int64      `json:"id,omitempty"`
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type createRoomRequest struct {
	RoomCode domain.RoomCode `json:"roomCode"`
}

type roomRequest struct {
	RoomCode domain.RoomCode `json:"roomCode"`
}

type decideRequest struct {
	RoomCode domain.RoomCode `json:"roomCode"`
	UserID   domain.UserID   `json:"userId"`
	Approve  *bool           `json:"approve"`
}

type membersRequest struct {
	RoomCode    domain.RoomCode `json:"roomCode"`
	IncludeSelf bool            `json:"includeSelf"`
}

type expelRequest struct {
	RoomCode domain.RoomCode `json:"roomCode"`
	UserID   domain.UserID   `json:"userId"`
}

type sdpRequest struct {
	RoomCode domain.RoomCode `json:"roomCode"`
	ToUserID domain.UserID   `json:"toUserId"`
	SDP      string          `json:"sdp"`
}

type candidateRequest struct {
	RoomCode      domain.RoomCode `json:"roomCode"`
	ToUserID      domain.UserID   `json:"toUserId"`
	Candidate     *string         `json:"candidate"`
	SDPMid        *string         `json:"sdpMid"`
	SDPMLineIndex *int            `json:"sdpMLineIndex"`
}

type toggleRequest struct {
	RoomCode domain.RoomCode `json:"roomCode"`
	IsOn     *bool           `json:"isOn"`
}

type chatRequest struct {
	RoomCode domain.RoomCode `json:"roomCode"`
	Message  string          `json:"message"`
}
