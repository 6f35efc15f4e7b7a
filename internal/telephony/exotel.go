package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"telephony-bridge/internal/calls"
	"telephony-bridge/pkg/logger"
)

// ExotelClient drives calls through the Exotel Connect API. Audio for AI
// calls flows through the Voicebot applet, which fetches the websocket
// address from ExotelWebsocketURL.
type ExotelClient struct {
	rest  restClient
	addr  Addresses
	creds calls.ExotelCredentials
	log   *slog.Logger
	// base overrides https://<subdomain>.exotel.com.
	base string
}

func NewExotelClient(session *Session, addr Addresses, creds calls.ExotelCredentials, log *slog.Logger) (*ExotelClient, error) {
	if creds.AccountSID == "" || creds.APIKey == "" || creds.APIToken == "" {
		return nil, &Error{Provider: calls.ProviderExotel, Op: "new_client", Kind: ErrBadRequest, Err: ErrMissingCredentials}
	}
	c := &ExotelClient{
		addr:  addr,
		creds: creds,
		log:   logger.Component(log, "telephony").With("provider", calls.ProviderExotel),
		base:  "https://" + creds.APISubdomain() + ".exotel.com",
	}
	c.rest = restClient{
		provider: calls.ProviderExotel,
		session:  session,
		authorize: func(r *http.Request) error {
			r.SetBasicAuth(creds.APIKey, creds.APIToken)
			return nil
		},
	}
	return c, nil
}

func (c *ExotelClient) Provider() calls.Provider { return calls.ProviderExotel }

func (c *ExotelClient) accountURL() string {
	return c.base + "/v1/Accounts/" + url.PathEscape(c.creds.AccountSID)
}

// exotelCall accepts both {"Call":{...}} and the flat shape.
type exotelCall struct {
	Sid    string `json:"Sid"`
	Status string `json:"Status"`
}

func (c *ExotelClient) decodeCall(op string, resp restResponse) (exotelCall, error) {
	var wrapped struct {
		Call *exotelCall `json:"Call"`
	}
	if err := c.rest.decode(op, resp, &wrapped); err != nil {
		return exotelCall{}, err
	}
	if wrapped.Call != nil {
		return *wrapped.Call, nil
	}
	var flat exotelCall
	if err := c.rest.decode(op, resp, &flat); err != nil {
		return exotelCall{}, err
	}
	return flat, nil
}

// CreateCall uses the Connect flow. Digits are not supported by Exotel
// Connect and are ignored.
func (c *ExotelClient) CreateCall(ctx context.Context, req CreateCallRequest) (string, error) {
	if err := req.validate(calls.ProviderExotel); err != nil {
		return "", err
	}
	form := url.Values{}
	form.Set("From", req.From)
	form.Set("To", req.To)
	form.Set("CallerId", req.From)
	if req.Record {
		form.Set("Record", "true")
	}
	for k, v := range req.Params {
		form.Set(k, v)
	}

	resp, err := c.rest.postForm(ctx, opCreateCall, c.accountURL()+"/Calls/connect.json", form)
	if err != nil {
		return "", err
	}
	if !ok2xx(resp.StatusCode) {
		return "", c.rest.failure(opCreateCall, resp)
	}
	call, err := c.decodeCall(opCreateCall, resp)
	if err != nil {
		return "", err
	}
	if call.Sid == "" {
		return "", &Error{Provider: calls.ProviderExotel, Op: opCreateCall, StatusCode: resp.StatusCode, Kind: ErrProvider, Err: errors.New("missing call sid")}
	}
	c.log.Info("exotel call created", "conversation_id", req.ConversationID, "call_sid", call.Sid)
	return call.Sid, nil
}

func (c *ExotelClient) EndCall(ctx context.Context, callSID string) (bool, error) {
	if strings.TrimSpace(callSID) == "" {
		return false, &Error{Provider: calls.ProviderExotel, Op: opEndCall, Kind: ErrBadRequest, Err: errors.New("call sid required")}
	}
	form := url.Values{"Status": {"completed"}}
	resp, err := c.rest.postForm(ctx, opEndCall, c.accountURL()+"/Calls/"+url.PathEscape(callSID)+".json", form)
	if err != nil {
		return false, err
	}
	if !ok2xx(resp.StatusCode) {
		return false, c.rest.failure(opEndCall, resp)
	}
	call, err := c.decodeCall(opEndCall, resp)
	if err != nil {
		return false, err
	}
	return call.Status == "completed", nil
}

// ExotelStreamResponse is the body returned to the Voicebot applet.
type ExotelStreamResponse struct {
	URL            string `json:"url"`
	ConversationID string `json:"conversation_id"`
}

func (c *ExotelClient) StreamDirective(conversationID string) (Directive, error) {
	return exotelDirective(conversationID, c.addr.ExotelWebsocketURL(conversationID))
}

// ExotelWebsocketDirective answers the dynamic URL lookup with the wss address.
func ExotelWebsocketDirective(addr Addresses, conversationID string) (Directive, error) {
	return exotelDirective(conversationID, addr.StreamURL(conversationID))
}

func exotelDirective(conversationID, target string) (Directive, error) {
	if conversationID == "" {
		return Directive{}, &Error{Provider: calls.ProviderExotel, Op: "stream_directive", Kind: ErrBadRequest, Err: errMissingConversationID}
	}
	body, err := json.Marshal(ExotelStreamResponse{URL: target, ConversationID: conversationID})
	if err != nil {
		return Directive{}, &Error{Provider: calls.ProviderExotel, Op: "stream_directive", Kind: ErrProvider, Err: err}
	}
	return Directive{ContentType: contentTypeJSON, Body: body}, nil
}
