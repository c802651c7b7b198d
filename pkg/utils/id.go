package utils

import (
	"strings"

	"github.com/google/uuid"
)

// RoomCodeLength is the length of generated room codes.
const RoomCodeLength = 8

// GenerateRoomCode returns the first hex characters of a random UUID.
func GenerateRoomCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:RoomCodeLength]
}

func GenerateConnectionID() string {
	return "conn_" + uuid.NewString()
}

func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GenerateInstanceID names this server process on the cross-instance event feed.
func GenerateInstanceID() string {
	return "inst_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
