package telephony

import (
	"context"
	"fmt"
	"log/slog"

	"telephony-bridge/internal/calls"
)

// Client is the capability set every carrier adapter implements.
//
// Rules:
// - No carrier SDK or wire format leaks outside its adapter.
// - Adapters never retry; callers own the retry policy.
// - Each client owns exactly one credential bundle.
type Client interface {
	Provider() calls.Provider

	// CreateCall places an outbound call and returns the carrier's call id.
	CreateCall(ctx context.Context, req CreateCallRequest) (string, error)
	// EndCall asks the carrier to hang up. The boolean reports whether the
	// carrier confirmed termination.
	EndCall(ctx context.Context, providerCallID string) (bool, error)
	// StreamDirective tells the carrier where to open the audio transport.
	// It performs no I/O.
	StreamDirective(conversationID string) (Directive, error)
}

// RecordingDirective is implemented by adapters whose stream directive
// itself starts the recording.
type RecordingDirective interface {
	SetRecording(record bool)
}

// CreateCallRequest is the provider-agnostic outbound call request.
type CreateCallRequest struct {
	ConversationID string
	To             string
	From           string
	Record         bool
	// Digits are sent as DTMF once the call connects, where supported.
	Digits string
	// Params are carrier-specific extras passed through verbatim.
	Params map[string]string
}

func (r CreateCallRequest) validate(p calls.Provider) error {
	if r.ConversationID == "" || r.To == "" || r.From == "" {
		return &Error{Provider: p, Op: opCreateCall, Kind: ErrBadRequest, Err: fmt.Errorf("conversation id, to and from are required")}
	}
	return nil
}

// Directive is a ready-to-send HTTP response body.
type Directive struct {
	ContentType string
	Body        []byte
}

const (
	contentTypeXML  = "application/xml"
	contentTypeJSON = "application/json"

	opCreateCall = "create_call"
	opEndCall    = "end_call"
)

// Factory builds a client for one provider from a call's telephony variant.
type Factory func(t calls.Telephony) (Client, error)

// Registry maps each provider kind to the factory that builds its adapter.
type Registry struct {
	factories map[calls.Provider]Factory
}

// NewRegistry registers the built-in adapters for all four carriers.
func NewRegistry(session *Session, addr Addresses, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{factories: make(map[calls.Provider]Factory, len(calls.Providers))}
	r.Register(calls.ProviderTwilio, func(t calls.Telephony) (Client, error) {
		v, ok := t.(calls.TwilioCall)
		if !ok {
			return nil, mismatch(calls.ProviderTwilio, t)
		}
		return NewTwilioClient(session, addr, v.Credentials, log)
	})
	r.Register(calls.ProviderVonage, func(t calls.Telephony) (Client, error) {
		v, ok := t.(calls.VonageCall)
		if !ok {
			return nil, mismatch(calls.ProviderVonage, t)
		}
		return NewVonageClient(session, addr, v.Credentials, log)
	})
	r.Register(calls.ProviderExotel, func(t calls.Telephony) (Client, error) {
		v, ok := t.(calls.ExotelCall)
		if !ok {
			return nil, mismatch(calls.ProviderExotel, t)
		}
		return NewExotelClient(session, addr, v.Credentials, log)
	})
	r.Register(calls.ProviderPlivo, func(t calls.Telephony) (Client, error) {
		v, ok := t.(calls.PlivoCall)
		if !ok {
			return nil, mismatch(calls.ProviderPlivo, t)
		}
		return NewPlivoClient(session, addr, v.Credentials, log)
	})
	return r
}

// NewEmptyRegistry returns a registry with no adapters; callers Register their own.
func NewEmptyRegistry() *Registry {
	return &Registry{factories: map[calls.Provider]Factory{}}
}

// Register installs or replaces the factory for p.
func (r *Registry) Register(p calls.Provider, f Factory) {
	r.factories[p] = f
}

// ClientFor builds the adapter matching the variant's discriminant.
func (r *Registry) ClientFor(t calls.Telephony) (Client, error) {
	if t == nil {
		return nil, calls.ErrUnsupportedProvider
	}
	f, ok := r.factories[t.Provider()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", calls.ErrUnsupportedProvider, t.Provider())
	}
	return f(t)
}

func mismatch(p calls.Provider, t calls.Telephony) error {
	return fmt.Errorf("%w: %s factory got %T", calls.ErrUnsupportedProvider, p, t)
}
