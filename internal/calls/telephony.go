package calls

// Telephony is the provider-specific half of a call configuration.
//
// The interface is sealed: only the four variants in this file implement it,
// so every switch over a Telephony value is closed over this set.
type Telephony interface {
	Provider() Provider
	// ProviderCallID is the carrier's identifier for the call leg.
	ProviderCallID() string
	AudioProfile() AudioProfile
	DefaultTranscriber() TranscriberProfile
	DefaultSynthesizer() SynthesizerProfile

	validate() error
}

// TwilioCall carries Twilio identity for a call.
type TwilioCall struct {
	Credentials TwilioCredentials `json:"twilio_config"`
	CallSID     string            `json:"twilio_sid"`
}

func (TwilioCall) Provider() Provider                     { return ProviderTwilio }
func (t TwilioCall) ProviderCallID() string               { return t.CallSID }
func (TwilioCall) AudioProfile() AudioProfile             { return twilioAudio }
func (TwilioCall) DefaultTranscriber() TranscriberProfile { return defaultTranscriber(twilioAudio, "") }
func (TwilioCall) DefaultSynthesizer() SynthesizerProfile { return defaultSynthesizer(twilioAudio) }

func (t TwilioCall) validate() error {
	if err := t.Credentials.validate(); err != nil {
		return err
	}
	return requireFields("", field{"twilio_sid", t.CallSID})
}

// VonageCall carries Vonage identity for a call.
type VonageCall struct {
	Credentials     VonageCredentials `json:"vonage_config"`
	CallUUID        string            `json:"vonage_uuid"`
	OutputToSpeaker bool              `json:"output_to_speaker,omitempty"`
}

func (VonageCall) Provider() Provider                     { return ProviderVonage }
func (v VonageCall) ProviderCallID() string               { return v.CallUUID }
func (VonageCall) AudioProfile() AudioProfile             { return vonageAudio }
func (VonageCall) DefaultTranscriber() TranscriberProfile { return defaultTranscriber(vonageAudio, "") }
func (VonageCall) DefaultSynthesizer() SynthesizerProfile { return defaultSynthesizer(vonageAudio) }

func (v VonageCall) validate() error {
	if err := v.Credentials.validate(); err != nil {
		return err
	}
	return requireFields("", field{"vonage_uuid", v.CallUUID})
}

// ExotelCall carries Exotel identity for a call.
type ExotelCall struct {
	Credentials ExotelCredentials `json:"exotel_config"`
	CallSID     string            `json:"exotel_sid"`
	// StreamSID is learned once the voicebot stream starts.
	StreamSID string `json:"stream_sid,omitempty"`
}

func (ExotelCall) Provider() Provider         { return ProviderExotel }
func (e ExotelCall) ProviderCallID() string   { return e.CallSID }
func (ExotelCall) AudioProfile() AudioProfile { return exotelAudio }

// DefaultTranscriber defaults to Indian English.
func (ExotelCall) DefaultTranscriber() TranscriberProfile {
	return defaultTranscriber(exotelAudio, "en-IN")
}
func (ExotelCall) DefaultSynthesizer() SynthesizerProfile { return defaultSynthesizer(exotelAudio) }

func (e ExotelCall) validate() error {
	if err := e.Credentials.validate(); err != nil {
		return err
	}
	return requireFields("", field{"exotel_sid", e.CallSID})
}

// PlivoCall carries Plivo identity for a call.
type PlivoCall struct {
	Credentials PlivoCredentials `json:"plivo_config"`
	CallUUID    string           `json:"plivo_call_uuid"`
	RequestUUID string           `json:"plivo_request_uuid,omitempty"`
	StreamID    string           `json:"stream_id,omitempty"`
}

func (PlivoCall) Provider() Provider                     { return ProviderPlivo }
func (p PlivoCall) ProviderCallID() string               { return p.CallUUID }
func (PlivoCall) AudioProfile() AudioProfile             { return plivoAudio }
func (PlivoCall) DefaultTranscriber() TranscriberProfile { return defaultTranscriber(plivoAudio, "") }
func (PlivoCall) DefaultSynthesizer() SynthesizerProfile { return defaultSynthesizer(plivoAudio) }

func (p PlivoCall) validate() error {
	if err := p.Credentials.validate(); err != nil {
		return err
	}
	return requireFields("", field{"plivo_call_uuid", p.CallUUID})
}

// zeroVariant returns an empty variant for p, used for kind-level defaults
// and for decoding.
func zeroVariant(p Provider) (Telephony, error) {
	switch p {
	case ProviderTwilio:
		return TwilioCall{}, nil
	case ProviderVonage:
		return VonageCall{}, nil
	case ProviderExotel:
		return ExotelCall{}, nil
	case ProviderPlivo:
		return PlivoCall{}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
