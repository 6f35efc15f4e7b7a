package audit

import "time"

// Event is an immutable, append-only call event record.
//
// Invariants:
// - Events are never updated or deleted.
// - Every event names the call it belongs to (conversation id or carrier call id).
// - Recording is best-effort; webhook handlers never fail a carrier request on audit errors.
//
// Storage (Postgres): table call_events, INSERT-only.
type Event struct {
	ID string `json:"id" db:"id"`

	Type EventType `json:"type" db:"type"`

	ConversationID string `json:"conversation_id,omitempty" db:"conversation_id"`
	Provider       string `json:"provider,omitempty" db:"provider"`
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	// Status is the carrier-reported state when the event carries one.
	Status string `json:"status,omitempty" db:"status"`

	// ActorUserID and ActorRole are set for operator API actions.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	Message string `json:"message,omitempty" db:"message"`

	// Metadata is the raw carrier payload or action details as JSON.
	// It must never contain credentials.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallRegistered EventType = "call_registered"
	EventTypeCallCreated    EventType = "call_created"
	EventTypeCallEnded      EventType = "call_ended"
	EventTypeCallStatus     EventType = "call_status"
	EventTypeStreamStatus   EventType = "stream_status"
	EventTypeCallHangup     EventType = "call_hangup"
	EventTypeRecording      EventType = "recording_ready"
	EventTypeCarrierEvent   EventType = "carrier_event"
)
