package calls

import (
	"log/slog"
	"strings"
)

// Credentials are immutable auth material for one provider account.
// They render redacted through fmt and slog; only JSON encoding keeps the
// secrets so a stored configuration can still terminate its call.

type TwilioCredentials struct {
	AccountSID string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
}

func (c TwilioCredentials) validate() error {
	return requireFields("twilio_config",
		field{"account_sid", c.AccountSID},
		field{"auth_token", c.AuthToken},
	)
}

func (c TwilioCredentials) String() string { return "twilio(" + mask(c.AccountSID) + ")" }

func (c TwilioCredentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("account_sid", mask(c.AccountSID)))
}

type VonageCredentials struct {
	APIKey        string `json:"api_key"`
	APISecret     string `json:"api_secret"`
	ApplicationID string `json:"application_id"`
	PrivateKey    string `json:"private_key"`
}

func (c VonageCredentials) validate() error {
	return requireFields("vonage_config",
		field{"api_key", c.APIKey},
		field{"api_secret", c.APISecret},
		field{"application_id", c.ApplicationID},
		field{"private_key", c.PrivateKey},
	)
}

func (c VonageCredentials) String() string { return "vonage(" + c.ApplicationID + ")" }

func (c VonageCredentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("application_id", c.ApplicationID))
}

const defaultExotelSubdomain = "api"

type ExotelCredentials struct {
	AccountSID string `json:"account_sid"`
	APIKey     string `json:"api_key"`
	APIToken   string `json:"api_token"`
	// Subdomain selects the regional API cluster (api.exotel.com by default).
	Subdomain string `json:"subdomain"`
}

func (c ExotelCredentials) validate() error {
	return requireFields("exotel_config",
		field{"account_sid", c.AccountSID},
		field{"api_key", c.APIKey},
		field{"api_token", c.APIToken},
	)
}

// APISubdomain returns the configured subdomain or the global default.
func (c ExotelCredentials) APISubdomain() string {
	if s := strings.TrimSpace(c.Subdomain); s != "" {
		return s
	}
	return defaultExotelSubdomain
}

func (c ExotelCredentials) String() string { return "exotel(" + mask(c.AccountSID) + ")" }

func (c ExotelCredentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("account_sid", mask(c.AccountSID)),
		slog.String("subdomain", c.APISubdomain()),
	)
}

type PlivoCredentials struct {
	AuthID    string `json:"auth_id"`
	AuthToken string `json:"auth_token"`
}

func (c PlivoCredentials) validate() error {
	return requireFields("plivo_config",
		field{"auth_id", c.AuthID},
		field{"auth_token", c.AuthToken},
	)
}

func (c PlivoCredentials) String() string { return "plivo(" + mask(c.AuthID) + ")" }

func (c PlivoCredentials) LogValue() slog.Value {
	return slog.GroupValue(slog.String("auth_id", mask(c.AuthID)))
}

// mask keeps a short prefix of an account identifier for correlation.
func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
