package model

import "strings"

const (
	MaxChatMessageLength = 4000
	MaxChatMessages      = 16
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// CoerceChatMessages drops entries with an unknown role or blank content,
// trims and caps each content, and keeps only the most recent messages.
func CoerceChatMessages(in []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(in))
	for _, m := range in {
		if !m.Role.Valid() {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if len(content) > MaxChatMessageLength {
			content = truncateUTF8(content, MaxChatMessageLength)
		}
		if content == "" {
			continue
		}
		out = append(out, ChatMessage{Role: m.Role, Content: content})
	}
	if len(out) > MaxChatMessages {
		out = out[len(out)-MaxChatMessages:]
	}
	return out
}

// LastUserMessage returns the trimmed content of the most recent user message.
func LastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ChatRoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
