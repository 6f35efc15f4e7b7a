package telephony

import (
	"errors"
	"fmt"
	"strings"

	"telephony-bridge/internal/calls"
)

// ErrMalformedPayload means a webhook body lacks a field the route needs.
var ErrMalformedPayload = errors.New("telephony: malformed webhook payload")

// InboundCall is a carrier-neutral view of a call arriving on a number.
// From/To are already oriented from the bridge's point of view: From is
// the bridge's number.
type InboundCall struct {
	Provider       calls.Provider
	ProviderCallID string
	From           string
	To             string
	Payload        Payload
}

// TwilioInbound is the subset of Twilio voice webhook fields we care about.
type TwilioInbound struct {
	CallSid    string `mapstructure:"CallSid"`
	AccountSid string `mapstructure:"AccountSid"`
	From       string `mapstructure:"From"`
	To         string `mapstructure:"To"`
	Direction  string `mapstructure:"Direction"`
	CallStatus string `mapstructure:"CallStatus"`
}

// VonageAnswer is the answer webhook body. Vonage reports from/to from the
// caller's side.
type VonageAnswer struct {
	UUID             string `mapstructure:"uuid"`
	ConversationUUID string `mapstructure:"conversation_uuid"`
	From             string `mapstructure:"from"`
	To               string `mapstructure:"to"`
}

type ExotelInbound struct {
	CallSid      string `mapstructure:"CallSid"`
	From         string `mapstructure:"From"`
	To           string `mapstructure:"To"`
	CallStatus   string `mapstructure:"CallStatus"`
	Direction    string `mapstructure:"Direction"`
	Duration     int    `mapstructure:"Duration"`
	RecordingUrl string `mapstructure:"RecordingUrl"`
}

type PlivoCall struct {
	CallUUID     string `mapstructure:"CallUUID"`
	From         string `mapstructure:"From"`
	To           string `mapstructure:"To"`
	Direction    string `mapstructure:"Direction"`
	CallStatus   string `mapstructure:"CallStatus"`
	Event        string `mapstructure:"Event"`
	StreamID     string `mapstructure:"StreamId"`
	Duration     int    `mapstructure:"Duration"`
	BillDuration int    `mapstructure:"BillDuration"`
}

// ParseInbound decodes a registration webhook for p.
func ParseInbound(p calls.Provider, payload Payload) (InboundCall, error) {
	in := InboundCall{Provider: p, Payload: payload}
	switch p {
	case calls.ProviderTwilio:
		var f TwilioInbound
		if err := payload.decode(twilioAliases, &f); err != nil {
			return in, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		in.ProviderCallID, in.From, in.To = f.CallSid, f.From, f.To
	case calls.ProviderVonage:
		var f VonageAnswer
		if err := payload.decode(vonageAliases, &f); err != nil {
			return in, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		in.ProviderCallID, in.From, in.To = f.UUID, f.To, f.From
	case calls.ProviderExotel:
		var f ExotelInbound
		if err := payload.decode(exotelAliases, &f); err != nil {
			return in, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		in.ProviderCallID, in.From, in.To = f.CallSid, f.From, f.To
	case calls.ProviderPlivo:
		var f PlivoCall
		if err := payload.decode(plivoAliases, &f); err != nil {
			return in, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		in.ProviderCallID, in.From, in.To = f.CallUUID, f.From, f.To
	default:
		return in, fmt.Errorf("%w: %s", calls.ErrUnsupportedProvider, p)
	}
	in.From = strings.TrimSpace(in.From)
	in.To = strings.TrimSpace(in.To)
	if in.ProviderCallID == "" {
		return in, fmt.Errorf("%w: missing call id", ErrMalformedPayload)
	}
	return in, nil
}

// StatusEvent is a carrier-neutral call status or stream event.
type StatusEvent struct {
	Provider       calls.Provider
	ProviderCallID string
	Status         string
	Event          string
	Duration       int
	Payload        Payload
}

type statusFields struct {
	CallSid      string `mapstructure:"CallSid"`
	CallUUID     string `mapstructure:"CallUUID"`
	UUID         string `mapstructure:"uuid"`
	CallStatus   string `mapstructure:"CallStatus"`
	Status       string `mapstructure:"status"`
	Event        string `mapstructure:"Event"`
	CallDuration int    `mapstructure:"CallDuration"`
	Duration     int    `mapstructure:"Duration"`
	VonageDur    int    `mapstructure:"duration"`
}

// ParseStatus decodes status callbacks, Vonage events and Plivo hangups.
// Unlike registration, missing fields are tolerated.
func ParseStatus(p calls.Provider, payload Payload) (StatusEvent, error) {
	a := aliasesFor(p)
	if a == nil {
		return StatusEvent{}, fmt.Errorf("%w: %s", calls.ErrUnsupportedProvider, p)
	}
	var f statusFields
	if err := payload.decode(a, &f); err != nil {
		return StatusEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return StatusEvent{
		Provider:       p,
		ProviderCallID: firstNonEmpty(f.CallSid, f.CallUUID, f.UUID),
		Status:         firstNonEmpty(f.CallStatus, f.Status),
		Event:          f.Event,
		Duration:       firstNonZero(f.CallDuration, f.Duration, f.VonageDur),
		Payload:        payload,
	}, nil
}

// RecordingNotice announces a finished recording.
type RecordingNotice struct {
	RecordingURL   string `mapstructure:"recording_url"`
	RecordingID    string `mapstructure:"recording_uuid"`
	ProviderCallID string `mapstructure:"call_id"`
	Duration       int    `mapstructure:"duration"`
}

func ParseRecording(payload Payload) (RecordingNotice, error) {
	var n RecordingNotice
	if err := payload.decode(recordingAliases, &n); err != nil {
		return n, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return n, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
