package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for call events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records call lifecycle and carrier events.
//
// Callers should treat it as best-effort: log a failure, do not propagate it
// to the carrier.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ConversationID == "" && e.ProviderCallID == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// Actor identifies who triggered an operator action.
type Actor struct {
	UserID string
	Role   string
	IP     string
}

// LogOperatorAction records an operator API action against a call.
func (s *Service) LogOperatorAction(ctx context.Context, typ EventType, actor Actor, conversationID, provider, providerCallID, message string) error {
	return s.Append(ctx, Event{
		Type:           typ,
		ConversationID: conversationID,
		Provider:       provider,
		ProviderCallID: providerCallID,
		ActorUserID:    actor.UserID,
		ActorRole:      actor.Role,
		IPAddress:      actor.IP,
		Message:        message,
	})
}
