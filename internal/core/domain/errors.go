package domain

import "errors"

var (
	ErrInvalidParams          = errors.New("invalid params")
	ErrInvalidCredential      = errors.New("invalid access token")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrPresenceNotFound       = errors.New("presence not found")
	ErrAlreadyInRoom          = errors.New("already joined room")
	ErrRoomNotFound           = errors.New("room not found")
	ErrNotRoomOwner           = errors.New("not room owner")
	ErrNotRoomMember          = errors.New("not room member")
	ErrNoStateChange          = errors.New("requested same state")
	ErrRoomAlreadyExists      = errors.New("room already exists")
	ErrAlreadyWaiting         = errors.New("already waiting for a room")
	ErrNotWaiting             = errors.New("not waiting for a room")
	ErrNotInRoom              = errors.New("not in a room")
	ErrJoinRequestNotFound    = errors.New("join request not found")
	ErrParticipantUnavailable = errors.New("participant not connected")
)
