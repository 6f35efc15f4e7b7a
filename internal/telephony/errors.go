package telephony

import (
	"context"
	"errors"
	"fmt"
	"net"

	"telephony-bridge/internal/calls"
)

// Error kinds. Every adapter failure matches exactly one of these via errors.Is.
var (
	// ErrBadRequest means the carrier rejected the request (HTTP 4xx).
	// Retrying without changing the input will not help.
	ErrBadRequest = errors.New("telephony: request rejected by provider")
	// ErrProvider is any other non-success answer from the carrier.
	ErrProvider = errors.New("telephony: provider error")
	// ErrTransport covers network failures, timeouts and cancellation.
	ErrTransport = errors.New("telephony: transport error")
)

var (
	ErrSessionClosed      = errors.New("telephony: session closed")
	ErrMissingCredentials = errors.New("telephony: missing credentials")
)

// Error describes a failed carrier operation.
type Error struct {
	Provider   calls.Provider
	Op         string
	StatusCode int
	Kind       error
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s %s", e.Kind, e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func statusError(p calls.Provider, op string, status int, detail string) *Error {
	kind := ErrProvider
	if status >= 400 && status < 500 {
		kind = ErrBadRequest
	}
	var cause error
	if detail != "" {
		cause = errors.New(detail)
	}
	return &Error{Provider: p, Op: op, StatusCode: status, Kind: kind, Err: cause}
}

func transportError(p calls.Provider, op string, err error) *Error {
	return &Error{Provider: p, Op: op, Kind: ErrTransport, Err: err}
}

// isTransport reports network-level failures, including deadlines.
func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// ErrorKind returns the kind sentinel of err, or nil when err is not an adapter error.
func ErrorKind(err error) error {
	for _, k := range []error{ErrBadRequest, ErrProvider, ErrTransport} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

var errMissingConversationID = errors.New("conversation id required")
