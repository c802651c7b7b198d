package domain

// PresenceEntry is the live record of one connected participant.
// At most one of RoomCode and WaitingRoomCode is set.
type PresenceEntry struct {
	UserID          UserID
	Name            string
	ProfileURL      string
	ConnectionID    ConnectionID
	RoomCode        RoomCode
	WaitingRoomCode RoomCode
	MicOn           bool
	CameraOn        bool
	HandRaised      bool
}

// NewPresenceEntry binds an identity to a connection with the on-connect defaults.
func NewPresenceEntry(connID ConnectionID, identity Identity) *PresenceEntry {
	return &PresenceEntry{
		UserID:       identity.UserID,
		Name:         identity.Name,
		ProfileURL:   identity.ProfileURL,
		ConnectionID: connID,
		MicOn:        true,
		CameraOn:     true,
	}
}

func (p *PresenceEntry) InRoom() bool {
	return p.RoomCode != ""
}

func (p *PresenceEntry) Waiting() bool {
	return p.WaitingRoomCode != ""
}

func (p *PresenceEntry) Info() UserInfo {
	return UserInfo{
		UserID:     p.UserID,
		Name:       p.Name,
		ProfileURL: p.ProfileURL,
	}
}

// View projects the entry into a room participant.
func (p *PresenceEntry) View(isOwner bool) RoomParticipant {
	return RoomParticipant{
		UserID:       p.UserID,
		Name:         p.Name,
		ProfileURL:   p.ProfileURL,
		ConnectionID: p.ConnectionID,
		IsOwner:      isOwner,
		MicOn:        p.MicOn,
		CameraOn:     p.CameraOn,
		HandRaised:   p.HandRaised,
	}
}

// PresenceUpdate carries a partial change to a presence entry. Nil fields are left alone.
type PresenceUpdate struct {
	RoomCode        *RoomCode
	WaitingRoomCode *RoomCode
	MicOn           *bool
	CameraOn        *bool
	HandRaised      *bool
}

// Apply copies the set fields of u onto p.
func (u PresenceUpdate) Apply(p *PresenceEntry) {
	if u.RoomCode != nil {
		p.RoomCode = *u.RoomCode
	}
	if u.WaitingRoomCode != nil {
		p.WaitingRoomCode = *u.WaitingRoomCode
	}
	if u.MicOn != nil {
		p.MicOn = *u.MicOn
	}
	if u.CameraOn != nil {
		p.CameraOn = *u.CameraOn
	}
	if u.HandRaised != nil {
		p.HandRaised = *u.HandRaised
	}
}

func LinkRoom(code RoomCode) PresenceUpdate {
	return PresenceUpdate{RoomCode: &code}
}

func UnlinkRoom() PresenceUpdate {
	empty := RoomCode("")
	return PresenceUpdate{RoomCode: &empty}
}

func LinkWaitingRoom(code RoomCode) PresenceUpdate {
	return PresenceUpdate{WaitingRoomCode: &code}
}

func UnlinkWaitingRoom() PresenceUpdate {
	empty := RoomCode("")
	return PresenceUpdate{WaitingRoomCode: &empty}
}
