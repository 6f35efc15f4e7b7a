package telephony

import (
	"net/http"
	"strings"

	twilioclient "github.com/twilio/twilio-go/client"
)

const twilioSignatureHeader = "X-Twilio-Signature"

// TwilioSignatureVerifier checks X-Twilio-Signature on form webhooks.
type TwilioSignatureVerifier struct {
	validator twilioclient.RequestValidator
	// publicBase is the externally visible scheme+host the carrier signed.
	publicBase string
}

func NewTwilioSignatureVerifier(authToken string, addr Addresses) *TwilioSignatureVerifier {
	return &TwilioSignatureVerifier{
		validator:  twilioclient.NewRequestValidator(authToken),
		publicBase: "https://" + addr.Base,
	}
}

// Verify reports whether r carries a valid signature. It parses the form,
// so the body stays readable through r.PostForm afterwards.
func (v *TwilioSignatureVerifier) Verify(r *http.Request) bool {
	sig := r.Header.Get(twilioSignatureHeader)
	if sig == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	params := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return v.validator.Validate(v.requestURL(r), params, sig)
}

func (v *TwilioSignatureVerifier) requestURL(r *http.Request) string {
	return strings.TrimRight(v.publicBase, "/") + r.URL.RequestURI()
}
