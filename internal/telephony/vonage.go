package telephony

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"telephony-bridge/internal/calls"
	"telephony-bridge/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	vonageAPIBase  = "https://api.nexmo.com"
	vonageTokenTTL = 15 * time.Minute
)

// VonageClient drives calls through the Vonage Voice API using an
// application JWT.
type VonageClient struct {
	rest   restClient
	addr   Addresses
	creds  calls.VonageCredentials
	key    *rsa.PrivateKey
	log    *slog.Logger
	base   string
	now    func() time.Time
	record bool
}

func NewVonageClient(session *Session, addr Addresses, creds calls.VonageCredentials, log *slog.Logger) (*VonageClient, error) {
	if creds.ApplicationID == "" || creds.PrivateKey == "" {
		return nil, &Error{Provider: calls.ProviderVonage, Op: "new_client", Kind: ErrBadRequest, Err: ErrMissingCredentials}
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, &Error{Provider: calls.ProviderVonage, Op: "new_client", Kind: ErrBadRequest, Err: fmt.Errorf("parse private key: %w", err)}
	}
	c := &VonageClient{
		addr:  addr,
		creds: creds,
		key:   key,
		log:   logger.Component(log, "telephony").With("provider", calls.ProviderVonage),
		base:  vonageAPIBase,
		now:   time.Now,
	}
	c.rest = restClient{provider: calls.ProviderVonage, session: session, authorize: c.authorize}
	return c, nil
}

func (c *VonageClient) Provider() calls.Provider { return calls.ProviderVonage }

// SetRecording makes StreamDirective prepend a record action.
func (c *VonageClient) SetRecording(record bool) {
	c.record = record
}

func (c *VonageClient) authorize(r *http.Request) error {
	tok, err := c.token()
	if err != nil {
		return err
	}
	r.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

func (c *VonageClient) token() (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"application_id": c.creds.ApplicationID,
		"iat":            now.Unix(),
		"exp":            now.Add(vonageTokenTTL).Unix(),
		"jti":            uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
}

type vonageEndpoint struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type vonageWebsocket struct {
	Type        string            `json:"type"`
	URI         string            `json:"uri"`
	ContentType string            `json:"content-type"`
	Headers     map[string]string `json:"headers"`
}

type vonageCreateRequest struct {
	To       []vonageEndpoint `json:"to"`
	From     vonageEndpoint   `json:"from"`
	NCCO     []nccoAction     `json:"ncco"`
	EventURL []string         `json:"event_url"`
}

// CreateCall places the call with the stream NCCO inline. Digits are not
// supported by this call flow and are ignored.
func (c *VonageClient) CreateCall(ctx context.Context, req CreateCallRequest) (string, error) {
	if err := req.validate(calls.ProviderVonage); err != nil {
		return "", err
	}
	ncco := c.ncco(req.ConversationID, req.Record || c.record)
	body := vonageCreateRequest{
		To:       []vonageEndpoint{{Type: "phone", Number: vonageNumber(req.To)}},
		From:     vonageEndpoint{Type: "phone", Number: vonageNumber(req.From)},
		NCCO:     ncco,
		EventURL: []string{c.addr.EventsURL()},
	}
	resp, err := c.rest.sendJSON(ctx, opCreateCall, http.MethodPost, c.base+"/v1/calls", body)
	if err != nil {
		return "", err
	}
	if !ok2xx(resp.StatusCode) {
		return "", c.rest.failure(opCreateCall, resp)
	}
	var out struct {
		UUID string `json:"uuid"`
	}
	if err := c.rest.decode(opCreateCall, resp, &out); err != nil {
		return "", err
	}
	if out.UUID == "" {
		return "", &Error{Provider: calls.ProviderVonage, Op: opCreateCall, StatusCode: resp.StatusCode, Kind: ErrProvider, Err: errors.New("missing call uuid")}
	}
	c.log.Info("vonage call created", "conversation_id", req.ConversationID, "call_uuid", out.UUID)
	return out.UUID, nil
}

func (c *VonageClient) EndCall(ctx context.Context, callUUID string) (bool, error) {
	if strings.TrimSpace(callUUID) == "" {
		return false, &Error{Provider: calls.ProviderVonage, Op: opEndCall, Kind: ErrBadRequest, Err: errors.New("call uuid required")}
	}
	endpoint := c.base + "/v1/calls/" + url.PathEscape(callUUID)
	resp, err := c.rest.sendJSON(ctx, opEndCall, http.MethodPut, endpoint, map[string]string{"action": "hangup"})
	if err != nil {
		return false, err
	}
	if !ok2xx(resp.StatusCode) {
		return false, c.rest.failure(opEndCall, resp)
	}
	return resp.StatusCode == http.StatusNoContent, nil
}

func (c *VonageClient) StreamDirective(conversationID string) (Directive, error) {
	if conversationID == "" {
		return Directive{}, &Error{Provider: calls.ProviderVonage, Op: "stream_directive", Kind: ErrBadRequest, Err: errMissingConversationID}
	}
	body, err := json.Marshal(c.ncco(conversationID, c.record))
	if err != nil {
		return Directive{}, &Error{Provider: calls.ProviderVonage, Op: "stream_directive", Kind: ErrProvider, Err: err}
	}
	return Directive{ContentType: contentTypeJSON, Body: body}, nil
}

// nccoAction is one Vonage call control object step.
type nccoAction struct {
	Action   string            `json:"action"`
	EventURL []string          `json:"eventUrl,omitempty"`
	Endpoint []vonageWebsocket `json:"endpoint,omitempty"`
}

func (c *VonageClient) ncco(conversationID string, record bool) []nccoAction {
	var actions []nccoAction
	if record {
		actions = append(actions, nccoAction{Action: "record", EventURL: []string{c.addr.RecordingURL(conversationID)}})
	}
	actions = append(actions, nccoAction{
		Action: "connect",
		Endpoint: []vonageWebsocket{{
			Type:        "websocket",
			URI:         c.addr.StreamURL(conversationID),
			ContentType: calls.VonageCall{}.AudioProfile().ContentType,
			Headers:     map[string]string{},
		}},
	})
	return actions
}

// Vonage wants E.164 digits without the leading '+'.
func vonageNumber(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "+")
}
