package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// RoomCodeRegex validates caller-supplied room codes
	RoomCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// UserIDRegex validates user ids carried in tokens and requests
	UserIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:@-]+$`)
)

const (
	maxRoomCodeLength = 64
	maxUserIDLength   = 128
)

func ValidateRoomCode(code string) error {
	if code == "" {
		return fmt.Errorf("room code is required")
	}
	if len(code) > maxRoomCodeLength {
		return fmt.Errorf("room code is too long (max %d characters)", maxRoomCodeLength)
	}
	if !RoomCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid room code format")
	}
	return nil
}

func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if len(userID) > maxUserIDLength {
		return fmt.Errorf("user id is too long (max %d characters)", maxUserIDLength)
	}
	if !UserIDRegex.MatchString(userID) {
		return fmt.Errorf("invalid user id format")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length in runes
func ValidateStringLength(s string, min, max int, fieldName string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
