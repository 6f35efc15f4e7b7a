// Package webhooks serves the carrier-facing HTTP routes: inbound call
// registration, stream setup, status callbacks and recording notices.
package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"telephony-bridge/internal/audit"
	"telephony-bridge/internal/calls"
	"telephony-bridge/internal/lifecycle"
	"telephony-bridge/internal/store"
	"telephony-bridge/internal/telephony"
	"telephony-bridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Coordinator is the lifecycle surface the webhook routes need.
type Coordinator interface {
	RegisterInbound(ctx context.Context, in lifecycle.InboundCall) (lifecycle.Registration, error)
	StreamDirective(ctx context.Context, conversationID string) (telephony.Directive, error)
	Publish(ctx context.Context, e audit.Event)
}

// Defaults seed calls registered from carrier webhooks.
type Defaults struct {
	Agent  calls.AgentProfile
	Record bool
}

type Handlers struct {
	Calls    Coordinator
	Addr     telephony.Addresses
	Defaults Defaults
	// TwilioVerifier, when set, rejects Twilio requests without a valid signature.
	TwilioVerifier *telephony.TwilioSignatureVerifier
}

// Register mounts the routes of every listed provider. The shared
// recording route is mounted when any provider is.
func (h *Handlers) Register(r gin.IRouter, providers ...calls.Provider) {
	if len(providers) == 0 {
		return
	}
	for _, p := range providers {
		switch p {
		case calls.ProviderTwilio:
			tw := r.Group("/twilio")
			if h.TwilioVerifier != nil {
				tw.Use(requireTwilioSignature(h.TwilioVerifier))
			}
			tw.POST("/inbound", h.registerInbound(calls.ProviderTwilio))
			tw.POST("/status/:id", h.callStatus(calls.ProviderTwilio, audit.EventTypeCallStatus, ack))
		case calls.ProviderVonage:
			r.GET("/vonage/inbound", h.registerInbound(calls.ProviderVonage))
			r.POST("/vonage/inbound", h.registerInbound(calls.ProviderVonage))
			r.GET("/events", h.callStatus(calls.ProviderVonage, audit.EventTypeCarrierEvent, emptyOK))
			r.POST("/events", h.callStatus(calls.ProviderVonage, audit.EventTypeCarrierEvent, emptyOK))
		case calls.ProviderExotel:
			r.POST("/webhooks/exotel/incoming", h.registerInbound(calls.ProviderExotel))
			r.GET("/exotel/websocket", h.exotelWebsocket)
			r.POST("/webhooks/exotel/status", h.callStatus(calls.ProviderExotel, audit.EventTypeCallStatus, ack))
			r.POST("/webhooks/exotel/recording", h.recording(ack))
		case calls.ProviderPlivo:
			pl := r.Group("/plivo")
			pl.POST("/inbound", h.registerInbound(calls.ProviderPlivo))
			pl.GET("/answer/:id", h.plivoAnswer)
			pl.POST("/answer/:id", h.plivoAnswer)
			pl.POST("/status/:id", h.callStatus(calls.ProviderPlivo, audit.EventTypeStreamStatus, ack))
			pl.POST("/hangup/:id", h.callStatus(calls.ProviderPlivo, audit.EventTypeCallHangup, ack))
		}
	}
	r.POST("/recordings/:id", h.recording(emptyOK))
}

func (h *Handlers) registerInbound(p calls.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c).With("provider", p)

		payload, err := telephony.ReadPayload(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		in, err := telephony.ParseInbound(p, payload)
		if err != nil {
			log.Warn("inbound webhook rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		reg, err := h.Calls.RegisterInbound(c.Request.Context(), lifecycle.InboundCall{
			Provider:       p,
			ProviderCallID: in.ProviderCallID,
			From:           in.From,
			To:             in.To,
			Record:         h.Defaults.Record,
			Profiles:       lifecycle.Profiles{Agent: h.Defaults.Agent},
		})
		if err != nil {
			status := registrationStatus(err)
			if status >= http.StatusInternalServerError {
				log.Error("inbound registration failed", "provider_call_id", in.ProviderCallID, "err", err)
				c.AbortWithStatusJSON(status, gin.H{"error": "registration failed"})
				return
			}
			log.Warn("inbound registration rejected", "provider_call_id", in.ProviderCallID, "err", err)
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}

		log.Info("inbound call answered", "conversation_id", reg.ConversationID, "provider_call_id", in.ProviderCallID)
		writeDirective(c, reg.Directive)
	}
}

// registrationStatus maps a registration failure to an HTTP status:
// anything the caller sent wrong is a 400, the rest is ours.
func registrationStatus(err error) int {
	switch {
	case errors.Is(err, calls.ErrValidation),
		errors.Is(err, calls.ErrUnsupportedProvider),
		errors.Is(err, telephony.ErrMalformedPayload),
		errors.Is(err, telephony.ErrMissingCredentials),
		errors.Is(err, telephony.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) exotelWebsocket(c *gin.Context) {
	id := c.Query("conversation_id")
	d, err := telephony.ExotelWebsocketDirective(h.Addr, id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "conversation_id required"})
		return
	}
	writeDirective(c, d)
}

func (h *Handlers) plivoAnswer(c *gin.Context) {
	id := c.Param("id")
	d, err := h.Calls.StreamDirective(c.Request.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown conversation"})
		return
	case err != nil:
		logger.FromGin(c).Error("plivo answer failed", "conversation_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "answer failed"})
		return
	}
	writeDirective(c, d)
}

type responder func(c *gin.Context)

func ack(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }

func emptyOK(c *gin.Context) { c.Status(http.StatusOK) }

// callStatus publishes carrier status traffic. Carriers retry on non-2xx,
// so parse and sink failures are logged and still acknowledged.
func (h *Handlers) callStatus(p calls.Provider, typ audit.EventType, respond responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c).With("provider", p)
		payload, err := telephony.ReadPayload(c.Request)
		if err != nil {
			log.Warn("status webhook unreadable", "err", err)
			respond(c)
			return
		}
		ev, err := telephony.ParseStatus(p, payload)
		if err != nil {
			log.Warn("status webhook unparsed", "err", err)
			respond(c)
			return
		}

		conversationID := c.Param("id")
		log.Debug("call status", "conversation_id", conversationID, "provider_call_id", ev.ProviderCallID, "status", ev.Status, "event", ev.Event)
		h.publish(c, log, audit.Event{
			Type:           typ,
			ConversationID: conversationID,
			Provider:       string(p),
			ProviderCallID: ev.ProviderCallID,
			Status:         ev.Status,
			Message:        ev.Event,
			Metadata:       metadata(payload),
		})
		respond(c)
	}
}

func (h *Handlers) recording(respond responder) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromGin(c)
		payload, err := telephony.ReadPayload(c.Request)
		if err != nil {
			log.Warn("recording webhook unreadable", "err", err)
			respond(c)
			return
		}
		n, err := telephony.ParseRecording(payload)
		if err != nil {
			log.Warn("recording webhook unparsed", "err", err)
			respond(c)
			return
		}

		conversationID := c.Param("id")
		log.Info("recording ready", "conversation_id", conversationID, "provider_call_id", n.ProviderCallID, "recording_id", n.RecordingID)
		h.publish(c, log, audit.Event{
			Type:           audit.EventTypeRecording,
			ConversationID: conversationID,
			ProviderCallID: n.ProviderCallID,
			Message:        n.RecordingURL,
			Metadata:       metadata(payload),
		})
		respond(c)
	}
}

func (h *Handlers) publish(c *gin.Context, log *slog.Logger, e audit.Event) {
	if e.ConversationID == "" && e.ProviderCallID == "" {
		log.Warn("carrier event without call reference dropped", "type", e.Type)
		return
	}
	h.Calls.Publish(c.Request.Context(), e)
}

func metadata(p telephony.Payload) string {
	if len(p) == 0 {
		return ""
	}
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}

func writeDirective(c *gin.Context, d telephony.Directive) {
	c.Data(http.StatusOK, d.ContentType, d.Body)
}

func requireTwilioSignature(v *telephony.TwilioSignatureVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.Verify(c.Request) {
			logger.FromGin(c).Warn("twilio signature rejected", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}
