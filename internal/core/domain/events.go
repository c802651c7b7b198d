package domain

// Server-to-client event names.
const (
	EventAuthError           = "auth_error"
	EventWaitingChanged      = "room.notify.wait"
	EventJoinDecided         = "room.notify.decide"
	EventParticipantsChanged = "room.notify.participants"
	EventOwnerChanged        = "room.notify.owner"
	EventExpelled            = "room.notify.expel"
	EventSignalOffer         = "signal.notify.offer"
	EventSignalAnswer        = "signal.notify.answer"
	EventSignalCandidate     = "signal.notify.ice"
	EventPeerReady           = "rtc.notify.ready"
	EventMicrophoneChanged   = "call.notify.mic"
	EventCameraChanged       = "call.notify.camera"
	EventHandRaisedChanged   = "call.notify.handRaised"
	EventChatMessage         = "chat.notify.message"
)

// RoomEventType classifies room lifecycle changes shared between instances.
type RoomEventType string

const (
	RoomCreated  RoomEventType = "room.created"
	MemberJoined RoomEventType = "member.joined"
	MemberLeft   RoomEventType = "member.left"
	OwnerChanged RoomEventType = "owner.changed"
	RoomClosed   RoomEventType = "room.closed"
)

type RoomEvent struct {
	Type     RoomEventType `json:"type"`
	RoomCode RoomCode      `json:"roomCode"`
	UserID   UserID        `json:"userId,omitempty"`
}

// CleanupReport records the outcome of each disconnect step.
type CleanupReport struct {
	CancelJoin error
	LeaveRoom  error
	Purge      error
}

func (r CleanupReport) Clean() bool {
	return r.CancelJoin == nil && r.LeaveRoom == nil && r.Purge == nil
}
