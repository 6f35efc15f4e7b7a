package telephony

import (
	"fmt"
	"strings"

	"telephony-bridge/internal/calls"
)

// CredentialSource resolves credential values by environment-style key.
// Implementations return "" for unknown keys.
type CredentialSource interface {
	Credential(key string) string
}

// CredentialMap is a static CredentialSource, mostly for tests.
type CredentialMap map[string]string

func (m CredentialMap) Credential(key string) string { return m[key] }

// Credential keys read from a CredentialSource.
const (
	KeyTwilioAccountSID    = "TWILIO_ACCOUNT_SID"
	KeyTwilioAuthToken     = "TWILIO_AUTH_TOKEN"
	KeyVonageAPIKey        = "VONAGE_API_KEY"
	KeyVonageAPISecret     = "VONAGE_API_SECRET"
	KeyVonageApplicationID = "VONAGE_APPLICATION_ID"
	KeyVonagePrivateKey    = "VONAGE_PRIVATE_KEY"
	KeyExotelAccountSID    = "EXOTEL_ACCOUNT_SID"
	KeyExotelAPIKey        = "EXOTEL_API_KEY"
	KeyExotelAPIToken      = "EXOTEL_API_TOKEN"
	KeyExotelSubdomain     = "EXOTEL_SUBDOMAIN"
	KeyPlivoAuthID         = "PLIVO_AUTH_ID"
	KeyPlivoAuthToken      = "PLIVO_AUTH_TOKEN"
)

// CredentialsFrom resolves the credential bundle for p and returns it as a
// telephony variant with no call id yet. Missing keys fail fast.
func CredentialsFrom(p calls.Provider, src CredentialSource) (calls.Telephony, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no credential source", ErrMissingCredentials)
	}
	var missing []string
	get := func(key string) string {
		v := strings.TrimSpace(src.Credential(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	var t calls.Telephony
	switch p {
	case calls.ProviderTwilio:
		t = calls.TwilioCall{Credentials: calls.TwilioCredentials{
			AccountSID: get(KeyTwilioAccountSID),
			AuthToken:  get(KeyTwilioAuthToken),
		}}
	case calls.ProviderVonage:
		t = calls.VonageCall{Credentials: calls.VonageCredentials{
			APIKey:        get(KeyVonageAPIKey),
			APISecret:     get(KeyVonageAPISecret),
			ApplicationID: get(KeyVonageApplicationID),
			PrivateKey:    get(KeyVonagePrivateKey),
		}}
	case calls.ProviderExotel:
		t = calls.ExotelCall{Credentials: calls.ExotelCredentials{
			AccountSID: get(KeyExotelAccountSID),
			APIKey:     get(KeyExotelAPIKey),
			APIToken:   get(KeyExotelAPIToken),
			Subdomain:  strings.TrimSpace(src.Credential(KeyExotelSubdomain)),
		}}
	case calls.ProviderPlivo:
		t = calls.PlivoCall{Credentials: calls.PlivoCredentials{
			AuthID:    get(KeyPlivoAuthID),
			AuthToken: get(KeyPlivoAuthToken),
		}}
	default:
		return nil, fmt.Errorf("%w: %s", calls.ErrUnsupportedProvider, p)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return t, nil
}

// WithCallID returns a copy of t carrying the carrier's call id.
func WithCallID(t calls.Telephony, id string) (calls.Telephony, error) {
	switch v := t.(type) {
	case calls.TwilioCall:
		v.CallSID = id
		return v, nil
	case calls.VonageCall:
		v.CallUUID = id
		return v, nil
	case calls.ExotelCall:
		v.CallSID = id
		return v, nil
	case calls.PlivoCall:
		// Outbound Plivo calls are identified by the request uuid until answered.
		v.CallUUID = id
		v.RequestUUID = id
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %T", calls.ErrUnsupportedProvider, t)
	}
}
