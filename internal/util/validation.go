package util

import (
	"regexp"
	"strings"
)

const (
	maxPairingCodeInput = 12
	maxGatewayToken     = 1600
	maxSessionToken     = 2048
)

var nonCodeChars = regexp.MustCompile(`[^A-Z0-9]`)

// ClampInt returns fallback when value is unset (zero), otherwise value bounded to [min, max].
func ClampInt(value, fallback, min, max int) int {
	if value == 0 {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// SanitizePairingCode upper-cases the input and strips separators, so
// "abcd-efgh" and "ABCDEFGH" name the same code.
func SanitizePairingCode(input string) string {
	code := nonCodeChars.ReplaceAllString(strings.ToUpper(input), "")
	if len(code) > maxPairingCodeInput {
		code = code[:maxPairingCodeInput]
	}
	return code
}

func SanitizeGatewayToken(input string) string {
	return capLength(strings.TrimSpace(input), maxGatewayToken)
}

func SanitizeSessionToken(input string) string {
	return capLength(strings.TrimSpace(input), maxSessionToken)
}

func Truncate(s string, max int) string {
	return capLength(s, max)
}

func capLength(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
