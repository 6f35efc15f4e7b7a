package telephony

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"telephony-bridge/internal/calls"

	twilioclient "github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type stubTwilio struct {
	created *api.CreateCallParams
	updated *api.UpdateCallParams
	sid     string
	status  string
	err     error
	block   chan struct{}
	updates int
}

func (s *stubTwilio) CreateCall(p *api.CreateCallParams) (*api.ApiV2010Call, error) {
	s.created = p
	if s.err != nil {
		return nil, s.err
	}
	sid := s.sid
	return &api.ApiV2010Call{Sid: &sid}, nil
}

func (s *stubTwilio) UpdateCall(sid string, p *api.UpdateCallParams) (*api.ApiV2010Call, error) {
	s.updates++
	s.updated = p
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return nil, s.err
	}
	status := s.status
	return &api.ApiV2010Call{Sid: &sid, Status: &status}, nil
}

func newTestTwilio(t *testing.T, stub *stubTwilio) *TwilioClient {
	t.Helper()
	c, err := NewTwilioClient(NewSession(0), testAddr, calls.TwilioCredentials{AccountSID: "AC1", AuthToken: "tok"}, discardLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.api = stub
	return c
}

func TestTwilioCreateCall(t *testing.T) {
	stub := &stubTwilio{sid: "CA123"}
	c := newTestTwilio(t, stub)

	id, err := c.CreateCall(context.Background(), CreateCallRequest{
		ConversationID: "conv-1", To: "+15550001", From: "+15550002", Record: true, Digits: "9",
		Params: map[string]string{"MachineDetection": "Enable"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id != "CA123" {
		t.Fatalf("expected CA123, got %q", id)
	}
	p := stub.created
	if *p.To != "+15550001" || *p.From != "+15550002" {
		t.Fatalf("unexpected to/from %q %q", *p.To, *p.From)
	}
	if !strings.Contains(*p.Twiml, "wss://voice.example.com/ws/conv-1") {
		t.Fatalf("expected stream url in twiml: %s", *p.Twiml)
	}
	if p.Record == nil || !*p.Record || *p.SendDigits != "9" {
		t.Fatalf("expected record and digits")
	}
	if *p.StatusCallback != "https://voice.example.com/twilio/status/conv-1" {
		t.Fatalf("unexpected status callback %q", *p.StatusCallback)
	}
	if p.MachineDetection == nil || *p.MachineDetection != "Enable" {
		t.Fatalf("expected pass-through MachineDetection")
	}
}

func TestTwilioCreateCallRejected(t *testing.T) {
	stub := &stubTwilio{err: &twilioclient.TwilioRestError{Code: 21211, Status: 400, Message: "invalid To"}}
	c := newTestTwilio(t, stub)

	_, err := c.CreateCall(context.Background(), CreateCallRequest{ConversationID: "c", To: "x", From: "y"})
	assertKind(t, err, ErrBadRequest)
	var te *Error
	if !errors.As(err, &te) || te.StatusCode != 400 {
		t.Fatalf("expected status 400 in error, got %v", err)
	}
}

func TestTwilioEndCall(t *testing.T) {
	cases := []struct {
		name   string
		status string
		err    error
		want   bool
		kind   error
	}{
		{"completed", "completed", nil, true, nil},
		{"canceled", "canceled", nil, true, nil},
		{"in progress", "in-progress", nil, false, nil},
		{"not in progress", "", &twilioclient.TwilioRestError{Code: 21220, Status: 400}, true, nil},
		{"not found", "", &twilioclient.TwilioRestError{Code: 20404, Status: 404}, false, ErrBadRequest},
		{"server error", "", &twilioclient.TwilioRestError{Code: 20500, Status: 500}, false, ErrProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubTwilio{status: tc.status, err: tc.err}
			c := newTestTwilio(t, stub)

			ok, err := c.EndCall(context.Background(), "CA1")
			if tc.kind != nil {
				assertKind(t, err, tc.kind)
			} else if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if ok != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, ok)
			}
			if stub.updates != 1 || *stub.updated.Status != "completed" {
				t.Fatalf("expected one UpdateCall with Status=completed")
			}
		})
	}
}

func TestTwilioEndCallTimeout(t *testing.T) {
	stub := &stubTwilio{status: "completed", block: make(chan struct{})}
	defer close(stub.block)
	c := newTestTwilio(t, stub)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ok, err := c.EndCall(ctx, "CA1")
	if ok {
		t.Fatalf("timed out end call must not report success")
	}
	assertKind(t, err, ErrTransport)
}

func TestTwilioStreamDirective(t *testing.T) {
	c := newTestTwilio(t, &stubTwilio{})
	d, err := c.StreamDirective("conv-5")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	body := string(d.Body)
	for _, want := range []string{"<Response>", "<Connect>", `url="wss://voice.example.com/ws/conv-5"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in twiml: %s", want, body)
		}
	}
	if d.ContentType != "application/xml" {
		t.Fatalf("unexpected content type %q", d.ContentType)
	}
}
