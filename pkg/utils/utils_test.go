package utils

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRoomCode(t *testing.T) {
	hex := regexp.MustCompile(`^[0-9a-f]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateRoomCode()
		assert.Regexp(t, hex, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestGeneratedIDsArePrefixed(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateConnectionID(), "conn_"))
	assert.True(t, strings.HasPrefix(GenerateRequestID(), "req_"))
	assert.Len(t, GenerateInstanceID(), len("inst_")+12)
	assert.NotEqual(t, GenerateConnectionID(), GenerateConnectionID())
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal string", "hello", "hello"},
		{"with control chars", "hello\x00world\x1b", "helloworld"},
		{"with newline", "hello\nworld", "hello\nworld"},
		{"carriage return dropped", "hello\r\nworld", "hello\nworld"},
		{"with tabs", "hello\tworld", "hello\tworld"},
		{"with whitespace", "  hello  ", "hello"},
		{"only whitespace", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeString(tt.input))
		})
	}
}

func TestMaskSensitive(t *testing.T) {
	assert.Equal(t, "eyJ*****", MaskSensitive("eyJhbGci", 3))
	assert.Equal(t, "**", MaskSensitive("ab", 3))
}
