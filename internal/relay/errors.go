package relay

import (
	"errors"
	"fmt"
)

// Kind classifies why an exchange did not produce a reply.
type Kind string

const (
	KindInvalidGatewayURL Kind = "invalid_gateway_url"
	KindMissingToken      Kind = "missing_token"
	KindConnectFailed     Kind = "connect_failed"
	KindTimeout           Kind = "timeout"
	KindIdleTimeout       Kind = "idle_timeout"
	KindAuthFailed        Kind = "auth_failed"
	KindEmptyMessage      Kind = "empty_message"
	KindClosed            Kind = "closed"
	KindIncompleteClose   Kind = "incomplete_close"
	KindEmptyResponse     Kind = "empty_response"
	KindProtocol          Kind = "protocol_error"
)

// Error is the typed failure of an exchange. Detail carries the gateway
// supplied reason or the offending input; CloseCode is set for close kinds.
type Error struct {
	Kind      Kind
	Detail    string
	CloseCode int
	cause     error
}

func (e *Error) Error() string {
	switch {
	case e.CloseCode != 0 && e.Detail != "":
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.CloseCode, e.Detail)
	case e.CloseCode != 0:
		return fmt.Sprintf("%s (%d)", e.Kind, e.CloseCode)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func closeError(kind Kind, code int) *Error {
	return &Error{Kind: kind, CloseCode: code}
}

// KindOf returns the kind of a relay error, or "" for anything else.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
