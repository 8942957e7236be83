package relay

import (
	"encoding/json"
	"strings"

	"github.com/coder/websocket"
)

// outcome is how an exchange settled: a reply or an error.
type outcome struct {
	reply string
	err   error
}

// exchange is the protocol state of one relay conversation. It is driven by
// a single goroutine; every transition goes through one of the on* methods,
// and once settled all of them return nil.
type exchange struct {
	token         string
	message       string
	sessionKey    string
	clientVersion string

	authenticated bool
	chatSent      bool
	sawCompletion bool
	settled       bool
	text          string
}

func newExchange(token, message, sessionKey, clientVersion string) *exchange {
	return &exchange{
		token:         token,
		message:       message,
		sessionKey:    sessionKey,
		clientVersion: clientVersion,
	}
}

// onFrame handles one inbound message. It may return a request to send and
// may settle the exchange. Unparseable frames are ignored.
func (x *exchange) onFrame(data []byte) (*request, *outcome) {
	if x.settled || len(data) == 0 {
		return nil, nil
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil
	}

	switch {
	case f.Type == frameTypeEvent && f.Event == eventConnectChallenge:
		req := connectRequest(x.token, x.clientVersion)
		return &req, nil

	case f.Type == frameTypeResponse && !x.authenticated && f.isError():
		return nil, x.fail(newError(KindAuthFailed, f.Error.reason(defaultAuthFailure)))

	case f.Type == frameTypeResponse && !x.authenticated &&
		(f.isOK() || decodeCompletion(f.Payload).Type == payloadHelloOK):
		x.authenticated = true
		if x.chatSent {
			return nil, nil
		}
		x.chatSent = true
		req := chatSendRequest(x.sessionKey, x.message)
		return &req, nil

	case f.Type == frameTypeEvent:
		fragment := ExtractText(f.Payload)
		x.push(fragment)
		if decodeCompletion(f.Payload).eventCompleted() {
			return nil, x.complete(fragment)
		}
		return nil, nil

	case f.Type == frameTypeResponse && x.authenticated && f.isOK():
		c := decodeCompletion(f.Payload)
		if c.hasRunID() {
			return nil, nil
		}
		fragment := ExtractText(f.Payload)
		x.push(fragment)
		if c.responseCompleted() {
			return nil, x.complete(fragment)
		}
		return nil, nil

	case f.Type == frameTypeResponse && x.authenticated && f.isError():
		return nil, x.fail(newError(KindProtocol, f.Error.reason(defaultAgentFailure)))
	}
	return nil, nil
}

// onIdle handles expiry of the idle timer. A stream that already reported
// completion with text counts as finished.
func (x *exchange) onIdle() *outcome {
	if x.settled {
		return nil
	}
	if x.sawCompletion && x.text != "" {
		return x.finish(x.text)
	}
	return x.fail(newError(KindIdleTimeout, ""))
}

// onClose handles the gateway closing the connection with code.
func (x *exchange) onClose(code int) *outcome {
	if x.settled {
		return nil
	}
	switch {
	case x.sawCompletion && x.text != "":
		return x.finish(x.text)
	case x.text != "":
		return x.fail(closeError(KindIncompleteClose, code))
	case code == int(websocket.StatusNormalClosure) || code == int(websocket.StatusGoingAway):
		return x.fail(newError(KindEmptyResponse, ""))
	default:
		return x.fail(closeError(KindClosed, code))
	}
}

func (x *exchange) push(fragment string) {
	if fragment != "" {
		x.text = MergeText(x.text, fragment)
	}
}

func (x *exchange) complete(fragment string) *outcome {
	x.sawCompletion = true
	switch {
	case x.text != "":
		return x.finish(x.text)
	case fragment != "":
		return x.finish(fragment)
	}
	return x.finish(noResponsePlaceholder)
}

func (x *exchange) finish(reply string) *outcome {
	if x.settled {
		return nil
	}
	x.settled = true
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = noResponsePlaceholder
	}
	return &outcome{reply: reply}
}

func (x *exchange) fail(err error) *outcome {
	if x.settled {
		return nil
	}
	x.settled = true
	return &outcome{err: err}
}
