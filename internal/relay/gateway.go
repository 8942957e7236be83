package relay

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	DefaultGatewayURL = "ws://127.0.0.1:18789"
	DefaultAgentName  = "web-shimeji-1"

	maxAgentNameLength  = 32
	maxSessionKeyLength = 48
)

var (
	schemePattern      = regexp.MustCompile(`(?i)^[a-z]+://`)
	agentNameDisallow  = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	sessionKeyDisallow = regexp.MustCompile(`[^a-z0-9_-]`)
	dashRun            = regexp.MustCompile(`-+`)
)

// NormalizeGatewayURL turns operator input into a ws:// or wss:// address.
// A missing scheme defaults to ws and http(s) is mapped to ws(s).
func NormalizeGatewayURL(raw string) (string, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		input = DefaultGatewayURL
	}
	withScheme := input
	if !schemePattern.MatchString(input) {
		withScheme = "ws://" + input
	}

	u, err := url.Parse(withScheme)
	if err != nil || u.Host == "" {
		return "", newError(KindInvalidGatewayURL, input)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", newError(KindInvalidGatewayURL, input)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// SanitizeAgentName restricts a name to [A-Za-z0-9_-] with collapsed dashes.
func SanitizeAgentName(raw string) string {
	name := agentNameDisallow.ReplaceAllString(strings.TrimSpace(raw), "-")
	name = dashRun.ReplaceAllString(name, "-")
	if len(name) > maxAgentNameLength {
		name = name[:maxAgentNameLength]
	}
	if name == "" {
		return DefaultAgentName
	}
	return name
}

// SessionKey builds the gateway session key for an agent.
func SessionKey(agentName string) string {
	raw := agentName
	if raw == "" {
		raw = DefaultAgentName
	}
	safe := sessionKeyDisallow.ReplaceAllString(strings.ToLower(raw), "-")
	safe = dashRun.ReplaceAllString(safe, "-")
	if len(safe) > maxSessionKeyLength {
		safe = safe[:maxSessionKeyLength]
	}
	if safe == "" {
		safe = "main"
	}
	return "agent:" + safe + ":main"
}
