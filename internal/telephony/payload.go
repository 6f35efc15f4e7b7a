package telephony

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"telephony-bridge/internal/calls"

	"github.com/mitchellh/mapstructure"
)

const maxPayloadBytes = 1 << 20

// Payload is a webhook body flattened to a key/value map, whatever its encoding.
type Payload map[string]any

// ReadPayload reads a JSON or form-encoded webhook body. Query parameters fill
// keys the body does not carry. An unparseable JSON body falls back to the
// query string, matching how carriers retry with GET.
func ReadPayload(r *http.Request) (Payload, error) {
	out := Payload{}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case ct == "application/json" || strings.HasSuffix(ct, "+json"):
		if r.Body != nil {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
			if err != nil {
				return nil, fmt.Errorf("read body: %w", err)
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			if len(bytes.TrimSpace(body)) > 0 {
				var m map[string]any
				if err := json.Unmarshal(body, &m); err == nil {
					for k, v := range m {
						out[k] = v
					}
				}
			}
		}
	case r.Method != http.MethodGet:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				out[k] = vs[0]
			}
		}
	}
	for k, vs := range r.URL.Query() {
		if _, ok := out[k]; !ok && len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out, nil
}

// aliases maps a canonical field name to the alternative spellings a
// carrier is known to send. The canonical name wins when both are present.
type aliases map[string][]string

var (
	twilioAliases = aliases{}
	vonageAliases = aliases{
		"conversation_uuid": {"conversationUuid"},
		"recording_url":     {"recordingUrl"},
	}
	exotelAliases = aliases{
		"CallSid":      {"call_sid", "callSid"},
		"From":         {"from", "CallFrom"},
		"To":           {"to", "CallTo"},
		"CallStatus":   {"Status", "status", "call_status"},
		"Direction":    {"direction"},
		"Duration":     {"duration", "DialCallDuration"},
		"RecordingUrl": {"recording_url", "RecordingURL"},
	}
	plivoAliases     = aliases{}
	recordingAliases = aliases{
		"recording_url":  {"RecordingUrl", "recordingUrl"},
		"recording_uuid": {"RecordingSid", "recording_sid"},
		"call_id":        {"CallSid", "CallUUID", "uuid"},
		"duration":       {"RecordingDuration"},
	}
)

func aliasesFor(p calls.Provider) aliases {
	switch p {
	case calls.ProviderTwilio:
		return twilioAliases
	case calls.ProviderVonage:
		return vonageAliases
	case calls.ProviderExotel:
		return exotelAliases
	case calls.ProviderPlivo:
		return plivoAliases
	}
	return nil
}

func (a aliases) normalize(p Payload) Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	for canonical, alts := range a {
		for _, alt := range alts {
			v, ok := out[alt]
			if !ok {
				continue
			}
			delete(out, alt)
			if _, exists := out[canonical]; !exists {
				out[canonical] = v
			}
		}
	}
	return out
}

func (p Payload) decode(a aliases, out any) error {
	cfg := &mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(a.normalize(p)))
}

// String returns the field as text, or "".
func (p Payload) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
