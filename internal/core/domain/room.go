package domain

type RoomCode string

// RoomParticipant is the view of a member that other members see.
type RoomParticipant struct {
	UserID       UserID       `json:"userId"`
	Name         string       `json:"name"`
	ProfileURL   string       `json:"profileUrl"`
	ConnectionID ConnectionID `json:"-"`
	IsOwner      bool         `json:"isOwner"`
	MicOn        bool         `json:"isMicrophoneOn"`
	CameraOn     bool         `json:"isCameraOn"`
	HandRaised   bool         `json:"isHandRaised"`
}

func (p RoomParticipant) Info() UserInfo {
	return UserInfo{
		UserID:     p.UserID,
		Name:       p.Name,
		ProfileURL: p.ProfileURL,
	}
}

// CallState names one of the toggles a participant can flip during a call.
type CallState string

const (
	CallStateMicrophone CallState = "microphone"
	CallStateCamera     CallState = "camera"
	CallStateHandRaised CallState = "hand_raised"
)

// SignalKind is the type of negotiation payload being relayed.
type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

// SignalPayload is forwarded to the recipient without inspection.
type SignalPayload map[string]interface{}
