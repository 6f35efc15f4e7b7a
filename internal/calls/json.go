package calls

import (
	"encoding/json"
	"fmt"
)

type configJSON struct {
	Type            string             `json:"type"`
	Transcriber     TranscriberProfile `json:"transcriber_config"`
	Agent           AgentProfile       `json:"agent_config"`
	Synthesizer     SynthesizerProfile `json:"synthesizer_config"`
	FromPhone       string             `json:"from_phone"`
	ToPhone         string             `json:"to_phone"`
	TelephonyParams map[string]string  `json:"telephony_params,omitempty"`
	Record          bool               `json:"record"`
	Direction       Direction          `json:"direction"`
	Tags            map[string]string  `json:"tags,omitempty"`
	Telephony       json.RawMessage    `json:"telephony"`
}

func (c *Config) MarshalJSON() ([]byte, error) {
	if c.telephony == nil {
		return nil, &ValidationError{Field: "telephony"}
	}
	raw, err := json.Marshal(c.telephony)
	if err != nil {
		return nil, err
	}
	return json.Marshal(configJSON{
		Type:            c.Provider().ConfigType(),
		Transcriber:     c.Transcriber,
		Agent:           c.Agent,
		Synthesizer:     c.Synthesizer,
		FromPhone:       c.FromPhone,
		ToPhone:         c.ToPhone,
		TelephonyParams: c.TelephonyParams,
		Record:          c.Record,
		Direction:       c.Direction,
		Tags:            c.Tags,
		Telephony:       raw,
	})
}

// UnmarshalJSON decodes a stored configuration and re-runs construction checks.
func (c *Config) UnmarshalJSON(b []byte) error {
	var in configJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	p, err := providerFromConfigType(in.Type)
	if err != nil {
		return err
	}
	variant, err := decodeVariant(p, in.Telephony)
	if err != nil {
		return err
	}
	out, err := New(Common{
		Transcriber:     in.Transcriber,
		Agent:           in.Agent,
		Synthesizer:     in.Synthesizer,
		FromPhone:       in.FromPhone,
		ToPhone:         in.ToPhone,
		TelephonyParams: in.TelephonyParams,
		Record:          in.Record,
		Direction:       in.Direction,
		Tags:            in.Tags,
	}, variant)
	if err != nil {
		return err
	}
	*c = *out
	return nil
}

func decodeVariant(p Provider, raw json.RawMessage) (Telephony, error) {
	if len(raw) == 0 {
		return nil, &ValidationError{Field: "telephony"}
	}
	var (
		v   Telephony
		err error
	)
	switch p {
	case ProviderTwilio:
		var t TwilioCall
		err = json.Unmarshal(raw, &t)
		v = t
	case ProviderVonage:
		var t VonageCall
		err = json.Unmarshal(raw, &t)
		v = t
	case ProviderExotel:
		var t ExotelCall
		err = json.Unmarshal(raw, &t)
		v = t
	case ProviderPlivo:
		var t PlivoCall
		err = json.Unmarshal(raw, &t)
		v = t
	default:
		return nil, ErrUnsupportedProvider
	}
	if err != nil {
		return nil, fmt.Errorf("calls: decode %s telephony: %w", p, err)
	}
	return v, nil
}
