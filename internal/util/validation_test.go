package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampInt(t *testing.T) {
	tests := []struct {
		name     string
		value    int
		expected int
	}{
		{"unset uses fallback", 0, 300},
		{"below min is raised", 10, 60},
		{"negative is raised", -5, 60},
		{"above max is lowered", 5000, 1800},
		{"in range is kept", 900, 900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampInt(tt.value, 300, 60, 1800))
		})
	}
}

func TestSanitizePairingCode(t *testing.T) {
	assert.Equal(t, "ABCDEFGH", SanitizePairingCode("abcd-efgh"))
	assert.Equal(t, "ABCDEFGH", SanitizePairingCode("  ABCD EFGH "))
	assert.Equal(t, "", SanitizePairingCode("----"))
	assert.Len(t, SanitizePairingCode(strings.Repeat("A", 40)), 12)
}

func TestSanitizeTokens(t *testing.T) {
	assert.Equal(t, "tok", SanitizeGatewayToken("  tok \n"))
	assert.Len(t, SanitizeGatewayToken(strings.Repeat("x", 2000)), 1600)
	assert.Len(t, SanitizeSessionToken(strings.Repeat("x", 3000)), 2048)
}
