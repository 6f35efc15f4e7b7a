package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"telephony-bridge/internal/audit"
	"telephony-bridge/internal/auth"
	"telephony-bridge/internal/calls"
	"telephony-bridge/internal/lifecycle"
	"telephony-bridge/internal/store"
	"telephony-bridge/internal/telephony"

	"github.com/gin-gonic/gin"
)

type fakeCalls struct {
	created   []lifecycle.OutboundCall
	createErr error
	endErr    error
	ended     []string
	configs   map[string]*calls.Config
}

func (f *fakeCalls) CreateOutboundCall(_ context.Context, out lifecycle.OutboundCall) (lifecycle.Registration, error) {
	f.created = append(f.created, out)
	if f.createErr != nil {
		return lifecycle.Registration{}, f.createErr
	}
	cfg, err := calls.New(calls.Common{
		FromPhone: out.From, ToPhone: out.To, Direction: calls.DirectionOutbound, Agent: out.Agent,
	}, calls.TwilioCall{Credentials: calls.TwilioCredentials{AccountSID: "AC1", AuthToken: "tok-secret"}, CallSID: "CA77"})
	if err != nil {
		return lifecycle.Registration{}, err
	}
	return lifecycle.Registration{ConversationID: "conv-1", Config: cfg}, nil
}

func (f *fakeCalls) EndOutboundCall(_ context.Context, id string) (lifecycle.EndResult, error) {
	f.ended = append(f.ended, id)
	if f.endErr != nil {
		return lifecycle.EndResult{}, f.endErr
	}
	return lifecycle.EndResult{ID: id, Ended: true}, nil
}

func (f *fakeCalls) Config(_ context.Context, id string) (*calls.Config, error) {
	cfg, ok := f.configs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cfg, nil
}

type fakeAudit struct{ actions []audit.Event }

func (f *fakeAudit) LogOperatorAction(_ context.Context, typ audit.EventType, actor audit.Actor, id, provider, providerCallID, message string) error {
	f.actions = append(f.actions, audit.Event{
		Type: typ, ConversationID: id, Provider: provider, ProviderCallID: providerCallID,
		ActorUserID: actor.UserID, ActorRole: actor.Role, Message: message,
	})
	return nil
}

func newRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "op-1", "operator"))
		c.Next()
	})
	r.POST("/v1/calls", h.CreateCall)
	r.POST("/v1/calls/:id/end", h.EndCall)
	r.GET("/v1/calls/:id", h.GetCall)
	return r
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateCall(t *testing.T) {
	svc := &fakeCalls{}
	log := &fakeAudit{}
	r := newRouter(Handlers{Calls: svc, Audit: log})

	w := serve(r, http.MethodPost, "/v1/calls",
		`{"provider":"twilio","to":"+2000","from":"+1000","record":true,"digits":"1w2","agent":{"type":"agent_chat_gpt"},"tags":{"campaign":"c1"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != "conv-1" || body["provider_call_id"] != "CA77" {
		t.Fatalf("unexpected body %v", body)
	}

	if len(svc.created) != 1 {
		t.Fatalf("expected one create, got %d", len(svc.created))
	}
	got := svc.created[0]
	if got.Provider != calls.ProviderTwilio || !got.Record || got.Digits != "1w2" || got.Agent.Type != "agent_chat_gpt" || got.Tags["campaign"] != "c1" {
		t.Fatalf("unexpected outbound call %+v", got)
	}
	if len(log.actions) != 1 || log.actions[0].ActorUserID != "op-1" || log.actions[0].ProviderCallID != "CA77" {
		t.Fatalf("unexpected audit %+v", log.actions)
	}
}

func TestCreateCallRejectsUnknownProvider(t *testing.T) {
	svc := &fakeCalls{}
	r := newRouter(Handlers{Calls: svc})

	w := serve(r, http.MethodPost, "/v1/calls", `{"provider":"skype","to":"+2","from":"+1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(svc.created) != 0 {
		t.Fatalf("service must not be called")
	}
}

func TestCreateCallErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &calls.ValidationError{Field: "to_phone"}, http.StatusBadRequest},
		{"missing credentials", fmt.Errorf("%w: TWILIO_AUTH_TOKEN", telephony.ErrMissingCredentials), http.StatusBadRequest},
		{"bad request", &telephony.Error{Provider: calls.ProviderTwilio, Op: "create_call", StatusCode: 400, Kind: telephony.ErrBadRequest}, http.StatusBadRequest},
		{"provider", &telephony.Error{Provider: calls.ProviderTwilio, Op: "create_call", StatusCode: 500, Kind: telephony.ErrProvider}, http.StatusBadGateway},
		{"transport", &telephony.Error{Provider: calls.ProviderTwilio, Op: "create_call", Kind: telephony.ErrTransport, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"store", errors.New("persist call config: boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(Handlers{Calls: &fakeCalls{createErr: tc.err}})
			w := serve(r, http.MethodPost, "/v1/calls", `{"provider":"twilio","to":"+2","from":"+1"}`)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestEndCall(t *testing.T) {
	svc := &fakeCalls{}
	log := &fakeAudit{}
	r := newRouter(Handlers{Calls: svc, Audit: log})

	w := serve(r, http.MethodPost, "/v1/calls/conv-9/end", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res lifecycle.EndResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ID != "conv-9" || !res.Ended {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(log.actions) != 1 || log.actions[0].Type != audit.EventTypeCallEnded {
		t.Fatalf("unexpected audit %+v", log.actions)
	}
}

func TestEndCallNotFound(t *testing.T) {
	r := newRouter(Handlers{Calls: &fakeCalls{endErr: store.ErrNotFound}})

	w := serve(r, http.MethodPost, "/v1/calls/missing/end", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetCallRedactsCredentials(t *testing.T) {
	cfg, err := calls.New(calls.Common{FromPhone: "+1", ToPhone: "+2", Direction: calls.DirectionInbound},
		calls.PlivoCall{Credentials: calls.PlivoCredentials{AuthID: "MA1", AuthToken: "tok-secret"}, CallUUID: "U1"})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	r := newRouter(Handlers{Calls: &fakeCalls{configs: map[string]*calls.Config{"c1": cfg}}})

	w := serve(r, http.MethodGet, "/v1/calls/c1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "tok-secret") {
		t.Fatalf("credentials leaked: %s", w.Body.String())
	}
	var view callView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Provider != calls.ProviderPlivo || view.ProviderCallID != "U1" || view.Audio.SamplingRate != 8000 {
		t.Fatalf("unexpected view %+v", view)
	}

	if w := serve(r, http.MethodGet, "/v1/calls/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
