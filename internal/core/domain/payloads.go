package domain

// Payloads of server events. Field names are part of the client protocol.

type WaitingChangedPayload struct {
	WaitingList []UserInfo `json:"waitingList"`
	IsAdded     bool       `json:"isAdded"`
	UpdatedUser UserInfo   `json:"updatedUser"`
}

type JoinDecidedPayload struct {
	RoomCode RoomCode `json:"roomCode"`
	Approve  bool     `json:"approve"`
}

type ParticipantsChangedPayload struct {
	Participants []RoomParticipant `json:"participants"`
	IsJoined     bool              `json:"isJoined"`
	ChangedUser  UserInfo          `json:"changedUser"`
}

type OwnerChangedPayload struct {
	UserID UserID `json:"userId"`
}

type ExpelledPayload struct {
	RoomCode RoomCode `json:"roomCode"`
}

type PeerReadyPayload struct {
	UserID UserID `json:"userId"`
}

type CallStateChangedPayload struct {
	ChangedUser RoomParticipant `json:"changedUser"`
	IsOn        bool            `json:"isOn"`
}

type HandRaiseChangedPayload struct {
	ChangedUser     RoomParticipant   `json:"changedUser"`
	IsOn            bool              `json:"isOn"`
	HandRaisedUsers []RoomParticipant `json:"handRaisedUsers"`
}

type ChatMessagePayload struct {
	Message string          `json:"message"`
	SentAt  int64           `json:"sentAt"`
	Sender  RoomParticipant `json:"sender"`
}
