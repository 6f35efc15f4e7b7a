package calls

import (
	"errors"
	"fmt"
)

// Provider is the discriminant of a call configuration.
type Provider string

const (
	ProviderTwilio Provider = "twilio"
	ProviderVonage Provider = "vonage"
	ProviderExotel Provider = "exotel"
	ProviderPlivo  Provider = "plivo"
)

// Providers lists every supported provider kind in a stable order.
var Providers = []Provider{ProviderTwilio, ProviderVonage, ProviderExotel, ProviderPlivo}

var ErrUnsupportedProvider = errors.New("calls: unsupported provider")

// ParseProvider maps a provider name to its kind.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderTwilio, ProviderVonage, ProviderExotel, ProviderPlivo:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
	}
}

// ConfigType is the persisted discriminant string for the provider.
func (p Provider) ConfigType() string { return "call_config_" + string(p) }

func providerFromConfigType(t string) (Provider, error) {
	for _, p := range Providers {
		if p.ConfigType() == t {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: config type %q", ErrUnsupportedProvider, t)
}

// Direction of a call relative to the platform.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

func (d Direction) valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}
