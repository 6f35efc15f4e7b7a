package telephony

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"telephony-bridge/internal/calls"
	"telephony-bridge/pkg/logger"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// Twilio answers 21220 when the call is no longer in progress.
const twilioErrCallNotInProgress = 21220

// twilioAPI is the slice of the twilio-go REST client the adapter uses.
type twilioAPI interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
	UpdateCall(sid string, params *api.UpdateCallParams) (*api.ApiV2010Call, error)
}

// TwilioClient drives calls through the Twilio Programmable Voice API.
type TwilioClient struct {
	session *Session
	addr    Addresses
	creds   calls.TwilioCredentials
	log     *slog.Logger

	// api is built lazily from the shared session unless injected.
	api twilioAPI
}

func NewTwilioClient(session *Session, addr Addresses, creds calls.TwilioCredentials, log *slog.Logger) (*TwilioClient, error) {
	if creds.AccountSID == "" || creds.AuthToken == "" {
		return nil, &Error{Provider: calls.ProviderTwilio, Op: "new_client", Kind: ErrBadRequest, Err: ErrMissingCredentials}
	}
	return &TwilioClient{
		session: session,
		addr:    addr,
		creds:   creds,
		log:     logger.Component(log, "telephony").With("provider", calls.ProviderTwilio),
	}, nil
}

func (c *TwilioClient) Provider() calls.Provider { return calls.ProviderTwilio }

func (c *TwilioClient) rest() (twilioAPI, error) {
	if c.api != nil {
		return c.api, nil
	}
	hc, err := c.session.HTTPClient()
	if err != nil {
		return nil, err
	}
	base := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(c.creds.AccountSID, c.creds.AuthToken),
		HTTPClient:  hc,
	}
	base.SetAccountSid(c.creds.AccountSID)
	return twilio.NewRestClientWithParams(twilio.ClientParams{Client: base}).Api, nil
}

func (c *TwilioClient) CreateCall(ctx context.Context, req CreateCallRequest) (string, error) {
	if err := req.validate(calls.ProviderTwilio); err != nil {
		return "", err
	}
	directive, err := c.StreamDirective(req.ConversationID)
	if err != nil {
		return "", err
	}

	params := &api.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetTwiml(string(directive.Body))
	params.SetStatusCallback(c.addr.StatusCallbackURL(calls.ProviderTwilio, req.ConversationID))
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	if req.Record {
		params.SetRecord(true)
		params.SetRecordingStatusCallback(c.addr.RecordingURL(req.ConversationID))
	}
	if d := strings.TrimSpace(req.Digits); d != "" {
		params.SetSendDigits(d)
	}
	applyTwilioParams(params, req.Params)

	call, err := runTwilio(ctx, c, opCreateCall, func(a twilioAPI) (*api.ApiV2010Call, error) {
		return a.CreateCall(params)
	})
	if err != nil {
		return "", err
	}
	if call == nil || call.Sid == nil || *call.Sid == "" {
		return "", &Error{Provider: calls.ProviderTwilio, Op: opCreateCall, Kind: ErrProvider, Err: errors.New("missing call sid")}
	}
	c.log.Info("twilio call created", "conversation_id", req.ConversationID, "call_sid", *call.Sid)
	return *call.Sid, nil
}

func (c *TwilioClient) EndCall(ctx context.Context, callSID string) (bool, error) {
	if strings.TrimSpace(callSID) == "" {
		return false, &Error{Provider: calls.ProviderTwilio, Op: opEndCall, Kind: ErrBadRequest, Err: errors.New("call sid required")}
	}
	params := &api.UpdateCallParams{}
	params.SetStatus("completed")

	call, err := runTwilio(ctx, c, opEndCall, func(a twilioAPI) (*api.ApiV2010Call, error) {
		return a.UpdateCall(callSID, params)
	})
	if err != nil {
		var te *Error
		if errors.As(err, &te) && isTwilioCode(te.Err, twilioErrCallNotInProgress) {
			return true, nil
		}
		return false, err
	}
	return twilioEndSucceeded(call), nil
}

func twilioEndSucceeded(call *api.ApiV2010Call) bool {
	if call == nil || call.Status == nil {
		return false
	}
	switch *call.Status {
	case "completed", "canceled":
		return true
	}
	return false
}

// runTwilio executes a blocking SDK call while honouring ctx. The SDK call
// itself is bounded by the session timeout.
func runTwilio(ctx context.Context, c *TwilioClient, op string, fn func(twilioAPI) (*api.ApiV2010Call, error)) (*api.ApiV2010Call, error) {
	a, err := c.rest()
	if err != nil {
		return nil, transportError(calls.ProviderTwilio, op, err)
	}
	type result struct {
		call *api.ApiV2010Call
		err  error
	}
	done := make(chan result, 1)
	go func() {
		call, err := fn(a)
		done <- result{call, err}
	}()

	select {
	case <-ctx.Done():
		return nil, transportError(calls.ProviderTwilio, op, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, classifyTwilio(op, r.err)
		}
		return r.call, nil
	}
}

func classifyTwilio(op string, err error) error {
	var rest *twilioclient.TwilioRestError
	if errors.As(err, &rest) {
		kind := ErrProvider
		if rest.Status >= 400 && rest.Status < 500 {
			kind = ErrBadRequest
		}
		return &Error{Provider: calls.ProviderTwilio, Op: op, StatusCode: rest.Status, Kind: kind, Err: err}
	}
	if isTransport(err) {
		return transportError(calls.ProviderTwilio, op, err)
	}
	return &Error{Provider: calls.ProviderTwilio, Op: op, Kind: ErrProvider, Err: err}
}

func isTwilioCode(err error, code int) bool {
	var rest *twilioclient.TwilioRestError
	return errors.As(err, &rest) && rest.Code == code
}

// applyTwilioParams maps the pass-through params the adapter understands.
// Unknown keys are ignored.
func applyTwilioParams(p *api.CreateCallParams, extra map[string]string) {
	for k, v := range extra {
		switch k {
		case "MachineDetection":
			p.SetMachineDetection(v)
		case "CallerId":
			p.SetCallerId(v)
		case "Timeout":
			if n, err := strconv.Atoi(v); err == nil {
				p.SetTimeout(n)
			}
		case "RecordingChannels":
			p.SetRecordingChannels(v)
		}
	}
}
