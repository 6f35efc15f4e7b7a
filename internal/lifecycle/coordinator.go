// Package lifecycle ties call configuration, carrier adapters and the
// config store together: it registers inbound calls, places and ends
// outbound calls, and answers stream directive lookups.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"telephony-bridge/internal/audit"
	"telephony-bridge/internal/calls"
	"telephony-bridge/internal/store"
	"telephony-bridge/internal/telephony"
	"telephony-bridge/pkg/logger"
)

// EventSink receives lifecycle events. Failures are logged, never returned.
type EventSink interface {
	Append(ctx context.Context, e audit.Event) error
}

// Coordinator owns no state of its own; all of it lives in the store.
type Coordinator struct {
	store    store.ConfigStore
	registry *telephony.Registry
	creds    telephony.CredentialSource
	events   EventSink
	log      *slog.Logger

	newID func() string
	// compensateTimeout bounds the hangup issued when persisting an
	// already placed call fails.
	compensateTimeout time.Duration
}

type Option func(*Coordinator)

func WithEvents(sink EventSink) Option { return func(c *Coordinator) { c.events = sink } }

func WithIDGenerator(f func() string) Option { return func(c *Coordinator) { c.newID = f } }

func New(s store.ConfigStore, reg *telephony.Registry, creds telephony.CredentialSource, log *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:             s,
		registry:          reg,
		creds:             creds,
		log:               logger.Component(log, "lifecycle"),
		newID:             calls.NewConversationID,
		compensateTimeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Profiles are optional overrides; zero values resolve to provider defaults.
type Profiles struct {
	Agent       calls.AgentProfile
	Transcriber calls.TranscriberProfile
	Synthesizer calls.SynthesizerProfile
}

// InboundCall is a carrier-announced call to register.
type InboundCall struct {
	Provider       calls.Provider
	ProviderCallID string
	// From is the bridge's number, To the caller's.
	From   string
	To     string
	Record bool
	Tags   map[string]string
	Profiles
}

// Registration is the outcome of registering or placing a call.
type Registration struct {
	ConversationID string
	Config         *calls.Config
	// Directive is the carrier response that starts media streaming.
	// It is empty for outbound calls.
	Directive telephony.Directive
}

// RegisterInbound builds, persists and answers a new inbound call.
func (c *Coordinator) RegisterInbound(ctx context.Context, in InboundCall) (Registration, error) {
	template, err := telephony.CredentialsFrom(in.Provider, c.creds)
	if err != nil {
		return Registration{}, err
	}
	variant, err := telephony.WithCallID(template, in.ProviderCallID)
	if err != nil {
		return Registration{}, err
	}
	cfg, err := calls.New(calls.Common{
		Agent:       in.Agent,
		Transcriber: in.Transcriber,
		Synthesizer: in.Synthesizer,
		FromPhone:   in.From,
		ToPhone:     in.To,
		Record:      in.Record,
		Direction:   calls.DirectionInbound,
		Tags:        in.Tags,
	}, variant)
	if err != nil {
		return Registration{}, err
	}

	id := c.newID()
	directive, err := c.directive(cfg, id)
	if err != nil {
		return Registration{}, err
	}
	if err := c.store.Save(ctx, id, cfg); err != nil {
		return Registration{}, fmt.Errorf("persist call config: %w", err)
	}

	c.log.Info("inbound call registered",
		"conversation_id", id,
		"provider", cfg.Provider(),
		"provider_call_id", cfg.ProviderCallID(),
	)
	c.publish(ctx, audit.Event{
		Type:           audit.EventTypeCallRegistered,
		ConversationID: id,
		Provider:       string(cfg.Provider()),
		ProviderCallID: cfg.ProviderCallID(),
	})
	return Registration{ConversationID: id, Config: cfg, Directive: directive}, nil
}

// OutboundCall asks the bridge to place a call.
type OutboundCall struct {
	Provider calls.Provider
	To       string
	From     string
	Record   bool
	Digits   string
	Params   map[string]string
	Tags     map[string]string
	Profiles

	// Telephony optionally supplies explicit credentials; the call id is
	// ignored. When nil, credentials come from the CredentialSource.
	Telephony calls.Telephony
}

// CreateOutboundCall places the call, then persists its configuration.
// On any adapter error nothing is stored and the adapter error is returned
// unchanged.
func (c *Coordinator) CreateOutboundCall(ctx context.Context, out OutboundCall) (Registration, error) {
	template := out.Telephony
	if template == nil {
		var err error
		if template, err = telephony.CredentialsFrom(out.Provider, c.creds); err != nil {
			return Registration{}, err
		}
	}
	common := calls.Common{
		Agent:           out.Agent,
		Transcriber:     out.Transcriber,
		Synthesizer:     out.Synthesizer,
		FromPhone:       out.From,
		ToPhone:         out.To,
		TelephonyParams: out.Params,
		Record:          out.Record,
		Direction:       calls.DirectionOutbound,
		Tags:            out.Tags,
	}
	// Validate everything except the carrier id before dialing.
	pending, err := telephony.WithCallID(template, "pending")
	if err != nil {
		return Registration{}, err
	}
	if _, err := calls.New(common, pending); err != nil {
		return Registration{}, err
	}

	client, err := c.registry.ClientFor(template)
	if err != nil {
		return Registration{}, err
	}
	id := c.newID()
	providerCallID, err := client.CreateCall(ctx, telephony.CreateCallRequest{
		ConversationID: id,
		To:             out.To,
		From:           out.From,
		Record:         out.Record,
		Digits:         out.Digits,
		Params:         out.Params,
	})
	if err != nil {
		c.log.Warn("outbound call failed", "conversation_id", id, "provider", template.Provider(), "err", err)
		return Registration{}, err
	}

	variant, err := telephony.WithCallID(template, providerCallID)
	if err != nil {
		return Registration{}, err
	}
	cfg, err := calls.New(common, variant)
	if err != nil {
		c.compensate(client, id, providerCallID)
		return Registration{}, err
	}
	if err := c.store.Save(ctx, id, cfg); err != nil {
		c.compensate(client, id, providerCallID)
		return Registration{}, fmt.Errorf("persist call config: %w", err)
	}

	c.log.Info("outbound call created",
		"conversation_id", id,
		"provider", cfg.Provider(),
		"provider_call_id", providerCallID,
	)
	c.publish(ctx, audit.Event{
		Type:           audit.EventTypeCallCreated,
		ConversationID: id,
		Provider:       string(cfg.Provider()),
		ProviderCallID: providerCallID,
	})
	return Registration{ConversationID: id, Config: cfg}, nil
}

// compensate hangs up a call whose configuration could not be stored.
func (c *Coordinator) compensate(client telephony.Client, id, providerCallID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.compensateTimeout)
	defer cancel()
	if _, err := client.EndCall(ctx, providerCallID); err != nil {
		c.log.Error("hangup of unpersisted call failed", "conversation_id", id, "provider_call_id", providerCallID, "err", err)
	}
}

// EndResult reports the outcome of EndOutboundCall.
type EndResult struct {
	ID string `json:"id"`
	// Ended is the carrier's confirmation that the call terminated.
	Ended bool `json:"ended"`
}

// EndOutboundCall hangs up a stored call. store.ErrNotFound is returned
// without contacting any carrier; otherwise EndCall runs exactly once.
func (c *Coordinator) EndOutboundCall(ctx context.Context, conversationID string) (EndResult, error) {
	cfg, err := c.store.Get(ctx, conversationID)
	if err != nil {
		return EndResult{}, err
	}
	client, err := c.registry.ClientFor(cfg.Telephony())
	if err != nil {
		return EndResult{}, err
	}
	ended, err := client.EndCall(ctx, cfg.ProviderCallID())
	if err != nil {
		c.log.Warn("end call failed", "conversation_id", conversationID, "provider", cfg.Provider(), "err", err)
		return EndResult{}, err
	}

	c.log.Info("call end requested", "conversation_id", conversationID, "provider", cfg.Provider(), "ended", ended)
	c.publish(ctx, audit.Event{
		Type:           audit.EventTypeCallEnded,
		ConversationID: conversationID,
		Provider:       string(cfg.Provider()),
		ProviderCallID: cfg.ProviderCallID(),
		Status:         endStatus(ended),
	})
	return EndResult{ID: conversationID, Ended: ended}, nil
}

func endStatus(ended bool) string {
	if ended {
		return "ended"
	}
	return "unconfirmed"
}

// Config loads a stored configuration.
func (c *Coordinator) Config(ctx context.Context, conversationID string) (*calls.Config, error) {
	return c.store.Get(ctx, conversationID)
}

// StreamDirective renders the stream setup response for a stored call.
func (c *Coordinator) StreamDirective(ctx context.Context, conversationID string) (telephony.Directive, error) {
	cfg, err := c.store.Get(ctx, conversationID)
	if err != nil {
		return telephony.Directive{}, err
	}
	return c.directive(cfg, conversationID)
}

func (c *Coordinator) directive(cfg *calls.Config, conversationID string) (telephony.Directive, error) {
	client, err := c.registry.ClientFor(cfg.Telephony())
	if err != nil {
		return telephony.Directive{}, err
	}
	if r, ok := client.(telephony.RecordingDirective); ok {
		r.SetRecording(cfg.Record)
	}
	return client.StreamDirective(conversationID)
}

// Publish forwards a carrier event to the sink. Used by webhook handlers.
func (c *Coordinator) Publish(ctx context.Context, e audit.Event) {
	c.publish(ctx, e)
}

func (c *Coordinator) publish(ctx context.Context, e audit.Event) {
	if c.events == nil {
		return
	}
	if err := c.events.Append(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		c.log.Warn("call event not recorded", "type", e.Type, "conversation_id", e.ConversationID, "err", err)
	}
}
