package relay

import (
	"encoding/json"
	"strings"
)

// textShape is the union of payload layouts gateways emit text in.
type textShape struct {
	Content json.RawMessage `json:"content"`
	Text    json.RawMessage `json:"text"`
	Delta   *struct {
		Content json.RawMessage `json:"content"`
		Text    json.RawMessage `json:"text"`
	} `json:"delta"`
	Message *struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentPart struct {
	Text    json.RawMessage `json:"text"`
	Content json.RawMessage `json:"content"`
	Value   json.RawMessage `json:"value"`
}

// ExtractText pulls the text out of a frame payload. Known shapes are tried
// in a fixed order; anything unrecognized yields "".
func ExtractText(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	if s, ok := asString(payload); ok {
		return s
	}

	var shape textShape
	if err := json.Unmarshal(payload, &shape); err != nil {
		return ""
	}
	if s, ok := asString(shape.Content); ok {
		return s
	}
	if s, ok := asString(shape.Text); ok {
		return s
	}
	if shape.Delta != nil {
		if s, ok := asString(shape.Delta.Content); ok {
			return s
		}
		if s, ok := asString(shape.Delta.Text); ok {
			return s
		}
	}
	if shape.Message != nil {
		if s, ok := asString(shape.Message.Content); ok {
			return s
		}
		if s, ok := joinParts(shape.Message.Content); ok {
			return s
		}
	}
	if s, ok := joinParts(shape.Content); ok {
		return s
	}
	return ""
}

func asString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func joinParts(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '[' {
		return "", false
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", false
	}
	var b strings.Builder
	for _, p := range parts {
		var part contentPart
		if err := json.Unmarshal(p, &part); err != nil {
			continue
		}
		for _, field := range []json.RawMessage{part.Text, part.Content, part.Value} {
			if s, ok := asString(field); ok && s != "" {
				b.WriteString(s)
				break
			}
		}
	}
	return b.String(), true
}

// completion holds the fields that mark the end of a reply.
type completion struct {
	Status string          `json:"status"`
	Type   string          `json:"type"`
	Done   json.RawMessage `json:"done"`
	RunID  json.RawMessage `json:"runId"`
}

func decodeCompletion(payload json.RawMessage) completion {
	var c completion
	if len(payload) > 0 && payload[0] == '{' {
		_ = json.Unmarshal(payload, &c)
	}
	return c
}

func (c completion) doneFlag() bool {
	return strings.TrimSpace(string(c.Done)) == "true"
}

// eventCompleted reports a completion marker on an event frame.
func (c completion) eventCompleted() bool {
	return c.Status == "completed" || c.Status == "done" || c.Type == "done" || c.doneFlag()
}

// responseCompleted reports a completion marker on a response frame.
func (c completion) responseCompleted() bool {
	return c.Status == "completed" || c.Status == "done" || c.doneFlag()
}

// hasRunID reports a run acknowledgement, which carries no reply text.
func (c completion) hasRunID() bool {
	v := strings.TrimSpace(string(c.RunID))
	return v != "" && v != "null" && v != `""` && v != "0" && v != "false"
}
