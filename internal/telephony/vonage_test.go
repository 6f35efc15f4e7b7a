package telephony

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"telephony-bridge/internal/calls"

	"github.com/golang-jwt/jwt/v5"
)

func newTestVonage(t *testing.T, h http.HandlerFunc) (*VonageClient, func()) {
	t.Helper()
	_, pemKey := testRSAKey(t)
	srv := httptest.NewServer(h)
	c, err := NewVonageClient(NewSession(0), testAddr, calls.VonageCredentials{
		APIKey: "k", APISecret: "s", ApplicationID: "app-1", PrivateKey: pemKey,
	}, discardLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.base = srv.URL
	return c, srv.Close
}

func TestVonageCreateCall(t *testing.T) {
	key, pemKey := testRSAKey(t)
	var got vonageCreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/calls" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return &key.PublicKey, nil })
		if err != nil || !tok.Valid {
			t.Errorf("invalid bearer token: %v", err)
		} else if claims := tok.Claims.(jwt.MapClaims); claims["application_id"] != "app-1" || claims["jti"] == "" {
			t.Errorf("unexpected claims %v", claims)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"v-123","status":"started"}`))
	}))
	defer srv.Close()

	c, err := NewVonageClient(NewSession(0), testAddr, calls.VonageCredentials{
		APIKey: "k", APISecret: "s", ApplicationID: "app-1", PrivateKey: pemKey,
	}, discardLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.base = srv.URL

	id, err := c.CreateCall(context.Background(), CreateCallRequest{
		ConversationID: "conv-1", To: "+15550001", From: "+15550002", Record: true, Digits: "123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id != "v-123" {
		t.Fatalf("expected v-123, got %q", id)
	}
	if got.To[0].Number != "15550001" || got.From.Number != "15550002" {
		t.Fatalf("expected numbers without '+', got %+v / %+v", got.To, got.From)
	}
	if len(got.NCCO) != 2 || got.NCCO[0].Action != "record" || got.NCCO[1].Action != "connect" {
		t.Fatalf("unexpected ncco %+v", got.NCCO)
	}
	if got.EventURL[0] != "https://voice.example.com/events" {
		t.Fatalf("unexpected event url %v", got.EventURL)
	}
}

func TestVonageEndCall(t *testing.T) {
	var body map[string]string
	c, done := newTestVonage(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/v1/calls/v-123" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})
	defer done()

	ok, err := c.EndCall(context.Background(), "v-123")
	if err != nil || !ok {
		t.Fatalf("expected success, got %v %v", ok, err)
	}
	if body["action"] != "hangup" {
		t.Fatalf("expected hangup action, got %v", body)
	}
}

func TestVonageErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"unauthorized", http.StatusUnauthorized, ErrBadRequest},
		{"server error", http.StatusInternalServerError, ErrProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, done := newTestVonage(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"title":"nope"}`))
			})
			defer done()

			_, err := c.CreateCall(context.Background(), CreateCallRequest{ConversationID: "c", To: "1", From: "2"})
			assertKind(t, err, tc.kind)
			_, err = c.EndCall(context.Background(), "v-1")
			assertKind(t, err, tc.kind)
		})
	}
}

func TestVonageTimeoutIsTransport(t *testing.T) {
	release := make(chan struct{})
	c, done := newTestVonage(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	})
	defer done()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ok, err := c.EndCall(ctx, "v-1")
	if ok {
		t.Fatalf("timed out end call must not report success")
	}
	assertKind(t, err, ErrTransport)
}

func TestVonageStreamDirective(t *testing.T) {
	c, done := newTestVonage(t, func(http.ResponseWriter, *http.Request) {})
	defer done()

	d, err := c.StreamDirective("conv-9")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var ncco []map[string]any
	if err := json.Unmarshal(d.Body, &ncco); err != nil {
		t.Fatalf("ncco is not json: %v", err)
	}
	if len(ncco) != 1 || ncco[0]["action"] != "connect" {
		t.Fatalf("unexpected ncco %s", d.Body)
	}
	ep := ncco[0]["endpoint"].([]any)[0].(map[string]any)
	if ep["uri"] != "wss://voice.example.com/ws/conv-9" || ep["content-type"] != "audio/l16;rate=16000" {
		t.Fatalf("unexpected endpoint %v", ep)
	}

	c.SetRecording(true)
	d, _ = c.StreamDirective("conv-9")
	if !strings.Contains(string(d.Body), `"action":"record"`) {
		t.Fatalf("expected record action, got %s", d.Body)
	}
}
