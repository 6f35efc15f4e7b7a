package telephony

import (
	"net/url"
	"strings"

	"telephony-bridge/internal/calls"
)

// Addresses builds the public URLs carriers call back on.
// Base is a host[:port][/prefix] without scheme, e.g. "voice.example.com".
type Addresses struct {
	Base string
}

// NewAddresses normalizes base by dropping any scheme and trailing slash.
func NewAddresses(base string) Addresses {
	base = strings.TrimSpace(base)
	for _, scheme := range []string{"https://", "http://", "wss://", "ws://"} {
		base = strings.TrimPrefix(base, scheme)
	}
	return Addresses{Base: strings.TrimRight(base, "/")}
}

// StreamURL is the bidirectional audio transport for a conversation.
func (a Addresses) StreamURL(conversationID string) string {
	return "wss://" + a.Base + "/ws/" + conversationID
}

// StatusCallbackURL receives call status changes for a conversation.
func (a Addresses) StatusCallbackURL(p calls.Provider, conversationID string) string {
	return "https://" + a.Base + "/" + string(p) + "/status/" + conversationID
}

func (a Addresses) RecordingURL(conversationID string) string {
	return "https://" + a.Base + "/recordings/" + conversationID
}

func (a Addresses) EventsURL() string {
	return "https://" + a.Base + "/events"
}

func (a Addresses) PlivoAnswerURL(conversationID string) string {
	return "https://" + a.Base + "/plivo/answer/" + conversationID
}

func (a Addresses) PlivoHangupURL(conversationID string) string {
	return "https://" + a.Base + "/plivo/hangup/" + conversationID
}

// ExotelWebsocketURL is the dynamic voicebot URL; Exotel fetches it and
// receives the wss address in return.
func (a Addresses) ExotelWebsocketURL(conversationID string) string {
	return "https://" + a.Base + "/exotel/websocket?conversation_id=" + url.QueryEscape(conversationID)
}
