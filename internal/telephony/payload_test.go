package telephony

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"telephony-bridge/internal/calls"
)

func TestReadPayloadJSONAndForm(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x?extra=1", strings.NewReader(`{"CallSid":"CA1","Duration":12}`))
	r.Header.Set("Content-Type", "application/json")
	p, err := ReadPayload(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.String("CallSid") != "CA1" || p.String("Duration") != "12" || p.String("extra") != "1" {
		t.Fatalf("unexpected payload %v", p)
	}

	r = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("CallUUID=U1&From=%2B1000"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p, err = ReadPayload(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.String("CallUUID") != "U1" || p.String("From") != "+1000" {
		t.Fatalf("unexpected payload %v", p)
	}
}

func TestReadPayloadBadJSONFallsBackToQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x?CallSid=CA9", strings.NewReader(`{not json`))
	r.Header.Set("Content-Type", "application/json")
	p, err := ReadPayload(r)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.String("CallSid") != "CA9" {
		t.Fatalf("expected query fallback, got %v", p)
	}
}

func TestParseInboundExotelAliases(t *testing.T) {
	in, err := ParseInbound(calls.ProviderExotel, Payload{"call_sid": "CA1", "from": "+1", "CallTo": "+2"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if in.ProviderCallID != "CA1" || in.From != "+1" || in.To != "+2" {
		t.Fatalf("unexpected inbound %+v", in)
	}

	in, _ = ParseInbound(calls.ProviderExotel, Payload{"CallSid": "canonical", "call_sid": "alias", "From": "1", "To": "2"})
	if in.ProviderCallID != "canonical" {
		t.Fatalf("expected canonical field to win, got %q", in.ProviderCallID)
	}
}

func TestParseInboundVonageSwapsDirection(t *testing.T) {
	in, err := ParseInbound(calls.ProviderVonage, Payload{"uuid": "v1", "from": "447700900000", "to": "447700900001"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if in.From != "447700900001" || in.To != "447700900000" {
		t.Fatalf("expected from/to swapped, got %+v", in)
	}
}

func TestParseInboundMissingCallID(t *testing.T) {
	_, err := ParseInbound(calls.ProviderPlivo, Payload{"From": "1"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseStatusAndRecording(t *testing.T) {
	ev, err := ParseStatus(calls.ProviderExotel, Payload{"CallSid": "CA1", "Status": "completed", "duration": "31"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.ProviderCallID != "CA1" || ev.Status != "completed" || ev.Duration != 31 {
		t.Fatalf("unexpected event %+v", ev)
	}

	n, err := ParseRecording(Payload{"RecordingUrl": "https://r/1", "CallSid": "CA1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n.RecordingURL != "https://r/1" || n.ProviderCallID != "CA1" {
		t.Fatalf("unexpected notice %+v", n)
	}
}
