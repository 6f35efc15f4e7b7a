package telephony

import (
	"telephony-bridge/internal/calls"

	"github.com/twilio/twilio-go/twiml"
)

// StreamDirective renders <Response><Connect><Stream url=.../></Connect></Response>.
func (c *TwilioClient) StreamDirective(conversationID string) (Directive, error) {
	return twilioStreamDirective(c.addr, conversationID)
}

func twilioStreamDirective(addr Addresses, conversationID string) (Directive, error) {
	if conversationID == "" {
		return Directive{}, &Error{Provider: calls.ProviderTwilio, Op: "stream_directive", Kind: ErrBadRequest, Err: errMissingConversationID}
	}
	connect := &twiml.VoiceConnect{
		InnerElements: []twiml.Element{
			&twiml.VoiceStream{Url: addr.StreamURL(conversationID)},
		},
	}
	body, err := twiml.Voice([]twiml.Element{connect})
	if err != nil {
		return Directive{}, &Error{Provider: calls.ProviderTwilio, Op: "stream_directive", Kind: ErrProvider, Err: err}
	}
	return Directive{ContentType: contentTypeXML, Body: []byte(body)}, nil
}
