package telephony

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"telephony-bridge/internal/calls"
	"telephony-bridge/pkg/logger"
)

const plivoAPIBase = "https://api.plivo.com"

// PlivoClient drives calls through the Plivo Voice API. Audio is set up by
// the <Stream> XML served from the answer URL.
type PlivoClient struct {
	rest  restClient
	addr  Addresses
	creds calls.PlivoCredentials
	log   *slog.Logger
	base  string
}

func NewPlivoClient(session *Session, addr Addresses, creds calls.PlivoCredentials, log *slog.Logger) (*PlivoClient, error) {
	if creds.AuthID == "" || creds.AuthToken == "" {
		return nil, &Error{Provider: calls.ProviderPlivo, Op: "new_client", Kind: ErrBadRequest, Err: ErrMissingCredentials}
	}
	c := &PlivoClient{
		addr:  addr,
		creds: creds,
		log:   logger.Component(log, "telephony").With("provider", calls.ProviderPlivo),
		base:  plivoAPIBase,
	}
	c.rest = restClient{
		provider: calls.ProviderPlivo,
		session:  session,
		authorize: func(r *http.Request) error {
			r.SetBasicAuth(creds.AuthID, creds.AuthToken)
			return nil
		},
	}
	return c, nil
}

func (c *PlivoClient) Provider() calls.Provider { return calls.ProviderPlivo }

func (c *PlivoClient) accountURL() string {
	return c.base + "/v1/Account/" + url.PathEscape(c.creds.AuthID)
}

// CreateCall returns Plivo's request_uuid.
func (c *PlivoClient) CreateCall(ctx context.Context, req CreateCallRequest) (string, error) {
	if err := req.validate(calls.ProviderPlivo); err != nil {
		return "", err
	}
	body := map[string]string{
		"from":          req.From,
		"to":            req.To,
		"answer_url":    c.addr.PlivoAnswerURL(req.ConversationID),
		"answer_method": http.MethodPost,
		"hangup_url":    c.addr.PlivoHangupURL(req.ConversationID),
	}
	for k, v := range req.Params {
		body[k] = v
	}
	if req.Record {
		body["record"] = "true"
	}
	if d := strings.TrimSpace(req.Digits); d != "" {
		body["send_digits"] = d
	}

	resp, err := c.rest.sendJSON(ctx, opCreateCall, http.MethodPost, c.accountURL()+"/Call/", body)
	if err != nil {
		return "", err
	}
	if !ok2xx(resp.StatusCode) {
		return "", c.rest.failure(opCreateCall, resp)
	}
	var out struct {
		RequestUUID string `json:"request_uuid"`
	}
	if err := c.rest.decode(opCreateCall, resp, &out); err != nil {
		return "", err
	}
	if out.RequestUUID == "" {
		return "", &Error{Provider: calls.ProviderPlivo, Op: opCreateCall, StatusCode: resp.StatusCode, Kind: ErrProvider, Err: errors.New("missing request uuid")}
	}
	c.log.Info("plivo call created", "conversation_id", req.ConversationID, "request_uuid", out.RequestUUID)
	return out.RequestUUID, nil
}

// EndCall treats 404 as success: the call is already gone.
func (c *PlivoClient) EndCall(ctx context.Context, callUUID string) (bool, error) {
	if strings.TrimSpace(callUUID) == "" {
		return false, &Error{Provider: calls.ProviderPlivo, Op: opEndCall, Kind: ErrBadRequest, Err: errors.New("call uuid required")}
	}
	resp, err := c.rest.do(ctx, opEndCall, http.MethodDelete, c.accountURL()+"/Call/"+url.PathEscape(callUUID)+"/", "", nil)
	if err != nil {
		return false, err
	}
	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		return true, nil
	case ok2xx(resp.StatusCode):
		return false, nil
	default:
		return false, c.rest.failure(opEndCall, resp)
	}
}

func (c *PlivoClient) StreamDirective(conversationID string) (Directive, error) {
	return PlivoStreamDirective(c.addr, conversationID)
}

type plivoResponse struct {
	XMLName xml.Name    `xml:"Response"`
	Stream  plivoStream `xml:"Stream"`
}

type plivoStream struct {
	StreamTimeout     int    `xml:"streamTimeout,attr"`
	KeepCallAlive     bool   `xml:"keepCallAlive,attr"`
	Bidirectional     bool   `xml:"bidirectional,attr"`
	ContentType       string `xml:"contentType,attr"`
	StatusCallbackURL string `xml:"statusCallbackUrl,attr"`
	URL               string `xml:",chardata"`
}

const plivoStreamTimeout = 3600

// PlivoStreamDirective renders the <Stream> XML served from answer and inbound routes.
// It needs no credentials.
func PlivoStreamDirective(addr Addresses, conversationID string) (Directive, error) {
	if conversationID == "" {
		return Directive{}, &Error{Provider: calls.ProviderPlivo, Op: "stream_directive", Kind: ErrBadRequest, Err: errMissingConversationID}
	}
	r := plivoResponse{Stream: plivoStream{
		StreamTimeout:     plivoStreamTimeout,
		KeepCallAlive:     true,
		Bidirectional:     true,
		ContentType:       calls.PlivoCall{}.AudioProfile().ContentType,
		StatusCallbackURL: addr.StatusCallbackURL(calls.ProviderPlivo, conversationID),
		URL:               addr.StreamURL(conversationID),
	}}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return Directive{}, &Error{Provider: calls.ProviderPlivo, Op: "stream_directive", Kind: ErrProvider, Err: err}
	}
	if err := enc.Flush(); err != nil {
		return Directive{}, &Error{Provider: calls.ProviderPlivo, Op: "stream_directive", Kind: ErrProvider, Err: err}
	}
	return Directive{ContentType: contentTypeXML, Body: buf.Bytes()}, nil
}
