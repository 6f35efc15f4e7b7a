package calls

import (
	"maps"
	"strings"

	"github.com/google/uuid"
)

// Common holds the provider-neutral half of a call configuration.
type Common struct {
	Transcriber TranscriberProfile
	Agent       AgentProfile
	Synthesizer SynthesizerProfile

	FromPhone string
	ToPhone   string

	// TelephonyParams are passed through to the carrier untouched.
	TelephonyParams map[string]string
	Record          bool
	Direction       Direction
	// Tags annotate logs and traces for this call.
	Tags map[string]string
}

// Config is everything needed to resume a call's telephony context.
// It is built once by New and not mutated afterwards.
type Config struct {
	Common
	telephony Telephony
}

// New validates common and variant and returns a configuration.
// Zero-valued transcriber and synthesizer profiles resolve to the variant defaults.
func New(common Common, variant Telephony) (*Config, error) {
	if variant == nil {
		return nil, &ValidationError{Field: "telephony"}
	}
	if err := variant.validate(); err != nil {
		return nil, err
	}
	if err := requireFields("",
		field{"from_phone", common.FromPhone},
		field{"to_phone", common.ToPhone},
	); err != nil {
		return nil, err
	}
	if !common.Direction.valid() {
		return nil, &ValidationError{Field: "direction", Reason: "must be inbound or outbound"}
	}

	if common.Transcriber.IsZero() {
		common.Transcriber = variant.DefaultTranscriber()
	}
	if common.Synthesizer.IsZero() {
		common.Synthesizer = variant.DefaultSynthesizer()
	}
	common.FromPhone = strings.TrimSpace(common.FromPhone)
	common.ToPhone = strings.TrimSpace(common.ToPhone)
	common.TelephonyParams = maps.Clone(common.TelephonyParams)
	common.Tags = maps.Clone(common.Tags)
	common.Agent.Settings = maps.Clone(common.Agent.Settings)

	return &Config{Common: common, telephony: variant}, nil
}

// Provider is the configuration's discriminant.
func (c *Config) Provider() Provider { return c.telephony.Provider() }

// Telephony returns the provider variant. Callers switch on its concrete type.
func (c *Config) Telephony() Telephony { return c.telephony }

// ProviderCallID is the carrier identifier used to end the call.
func (c *Config) ProviderCallID() string { return c.telephony.ProviderCallID() }

// AudioProfile is the carrier's fixed media format.
func (c *Config) AudioProfile() AudioProfile { return c.telephony.AudioProfile() }

// NewConversationID mints the identifier joining a call's stored config,
// audio session and carrier callbacks.
func NewConversationID() string { return uuid.NewString() }
