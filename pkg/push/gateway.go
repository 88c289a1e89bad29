package push

import (
	"context"
	"errors"
)

// FailureClass tags a delivery failure with how the pipeline should react.
// Classification happens once, at the gateway adapter boundary, so nothing
// downstream ever inspects raw provider error strings.
type FailureClass string

const (
	// ClassTerminal means the endpoint will never succeed again; the token
	// should be retired.
	ClassTerminal FailureClass = "terminal"
	// ClassTransient means a future attempt may succeed (quota, unavailable,
	// timeout); the token stays registered.
	ClassTransient FailureClass = "transient"
	// ClassUnknown is anything the adapter could not classify; treated like
	// transient for hygiene purposes.
	ClassUnknown FailureClass = "unknown"
)

// Message is the provider-independent payload of one push
type Message struct {
	Title       string
	Body        string
	ImageURL    string
	Data        map[string]string
	ClickAction string
}

// TokenOutcome pairs a token with its delivery outcome. Keeping the token in
// the struct (instead of relying on two parallel arrays) makes the ordering
// contract between dispatch input and gateway output explicit.
type TokenOutcome struct {
	Token        string
	Success      bool
	ErrorCode    string
	ErrorMessage string
	Class        FailureClass
}

// Gateway is one batch call to the external push provider. Implementations
// must return exactly one outcome per input token, in input order, and may
// assume len(tokens) never exceeds the provider's multicast cap (the
// dispatcher chunks before calling). A returned error means the whole call
// failed at the transport level and no outcomes are available.
type Gateway interface {
	SendBatch(ctx context.Context, tokens []string, msg *Message) ([]TokenOutcome, error)
}

// DisabledGateway stands in when no provider is configured. Every call fails
// at the transport level, so dispatches still produce a complete audit trail
// of transient failures instead of crashing the server.
type DisabledGateway struct{}

func (DisabledGateway) SendBatch(ctx context.Context, tokens []string, msg *Message) ([]TokenOutcome, error) {
	return nil, errors.New("push gateway not configured")
}
