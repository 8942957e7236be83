package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/openclaw/pairing-relay-go/internal/errors"
)

// flexInt accepts a JSON number or a numeric string. Anything else decodes
// to zero, which callers treat as "use the default".
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	*f = 0
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
		return nil
	}
	*f = flexInt(math.Round(n))
	return nil
}

// flexString keeps string values and drops every other JSON type.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = ""
		return nil
	}
	*f = flexString(s)
	return nil
}

// decodeBody reads an optional JSON object. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.InvalidInput("body", "too large")
		}
		return apperrors.InvalidInput("body", "unreadable")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.InvalidInput("body", "malformed JSON")
	}
	return nil
}
