package httpapi

import (
	"context"
	"errors"
	"net/http"

	"telephony-bridge/internal/audit"
	"telephony-bridge/internal/auth"
	"telephony-bridge/internal/calls"
	"telephony-bridge/internal/lifecycle"
	"telephony-bridge/internal/store"
	"telephony-bridge/internal/telephony"
	"telephony-bridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CallService is the lifecycle surface the operator API drives.
type CallService interface {
	CreateOutboundCall(ctx context.Context, out lifecycle.OutboundCall) (lifecycle.Registration, error)
	EndOutboundCall(ctx context.Context, conversationID string) (lifecycle.EndResult, error)
	Config(ctx context.Context, conversationID string) (*calls.Config, error)
}

// ActionLog records who did what to a call.
type ActionLog interface {
	LogOperatorAction(ctx context.Context, typ audit.EventType, actor audit.Actor, conversationID, provider, providerCallID, message string) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Calls CallService
	Audit ActionLog
}

type createCallRequest struct {
	Provider        string                   `json:"provider"`
	To              string                   `json:"to"`
	From            string                   `json:"from"`
	Record          bool                     `json:"record"`
	Digits          string                   `json:"digits"`
	TelephonyParams map[string]string        `json:"telephony_params"`
	Agent           calls.AgentProfile       `json:"agent"`
	Transcriber     calls.TranscriberProfile `json:"transcriber"`
	Synthesizer     calls.SynthesizerProfile `json:"synthesizer"`
	Tags            map[string]string        `json:"tags"`
}

// CreateCall places an outbound call.
// RBAC: operator or admin.
func (h Handlers) CreateCall(c *gin.Context) {
	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := calls.ParseProvider(req.Provider)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.Calls.CreateOutboundCall(c.Request.Context(), lifecycle.OutboundCall{
		Provider: p,
		To:       req.To,
		From:     req.From,
		Record:   req.Record,
		Digits:   req.Digits,
		Params:   req.TelephonyParams,
		Tags:     req.Tags,
		Profiles: lifecycle.Profiles{
			Agent:       req.Agent,
			Transcriber: req.Transcriber,
			Synthesizer: req.Synthesizer,
		},
	})
	if err != nil {
		h.fail(c, "create call failed", err)
		return
	}

	h.logAction(c, audit.EventTypeCallCreated, reg.ConversationID, reg.Config, "outbound call placed")
	c.JSON(http.StatusCreated, gin.H{"id": reg.ConversationID, "provider_call_id": reg.Config.ProviderCallID()})
}

// EndCall hangs up a stored call.
// RBAC: operator or admin.
func (h Handlers) EndCall(c *gin.Context) {
	id := c.Param("id")
	res, err := h.Calls.EndOutboundCall(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "end call failed", err)
		return
	}
	h.logAction(c, audit.EventTypeCallEnded, id, nil, "end requested")
	c.JSON(http.StatusOK, res)
}

// GetCall returns a stored configuration without credentials.
// RBAC: any known role.
func (h Handlers) GetCall(c *gin.Context) {
	id := c.Param("id")
	cfg, err := h.Calls.Config(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "call lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, newCallView(id, cfg))
}

func Healthz(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }

func (h Handlers) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	log := logger.FromGin(c)
	if status >= http.StatusInternalServerError {
		log.Error(msg, "err", err, "status", status)
	} else {
		log.Warn(msg, "err", err, "status", status)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": publicMessage(status, err)})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calls.ErrValidation),
		errors.Is(err, calls.ErrUnsupportedProvider),
		errors.Is(err, telephony.ErrMissingCredentials),
		errors.Is(err, telephony.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, telephony.ErrTransport):
		return http.StatusGatewayTimeout
	case errors.Is(err, telephony.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(status int, err error) string {
	switch status {
	case http.StatusNotFound:
		return "call not found"
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusGatewayTimeout:
		return "carrier unreachable"
	case http.StatusBadGateway:
		return "carrier rejected the request"
	default:
		return "internal error"
	}
}

func (h Handlers) logAction(c *gin.Context, typ audit.EventType, id string, cfg *calls.Config, message string) {
	if h.Audit == nil {
		return
	}
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	actor := audit.Actor{UserID: uid, Role: role, IP: c.ClientIP()}

	var provider, providerCallID string
	if cfg != nil {
		provider, providerCallID = string(cfg.Provider()), cfg.ProviderCallID()
	}
	if err := h.Audit.LogOperatorAction(c.Request.Context(), typ, actor, id, provider, providerCallID, message); err != nil {
		logger.FromGin(c).Warn("operator action not recorded", "type", typ, "conversation_id", id, "err", err)
	}
}

type audioView struct {
	SamplingRate int    `json:"sampling_rate"`
	Encoding     string `json:"encoding"`
	ChunkSize    int    `json:"chunk_size"`
	ContentType  string `json:"content_type"`
}

// callView is the operator-facing shape of a stored configuration.
// Credentials never leave the process through it.
type callView struct {
	ID              string                   `json:"id"`
	Provider        calls.Provider           `json:"provider"`
	ProviderCallID  string                   `json:"provider_call_id"`
	Direction       calls.Direction          `json:"direction"`
	From            string                   `json:"from"`
	To              string                   `json:"to"`
	Record          bool                     `json:"record"`
	Audio           audioView                `json:"audio"`
	Agent           calls.AgentProfile       `json:"agent"`
	Transcriber     calls.TranscriberProfile `json:"transcriber"`
	Synthesizer     calls.SynthesizerProfile `json:"synthesizer"`
	TelephonyParams map[string]string        `json:"telephony_params,omitempty"`
	Tags            map[string]string        `json:"tags,omitempty"`
}

func newCallView(id string, cfg *calls.Config) callView {
	a := cfg.AudioProfile()
	return callView{
		ID:             id,
		Provider:       cfg.Provider(),
		ProviderCallID: cfg.ProviderCallID(),
		Direction:      cfg.Direction,
		From:           cfg.FromPhone,
		To:             cfg.ToPhone,
		Record:         cfg.Record,
		Audio: audioView{
			SamplingRate: a.SamplingRate,
			Encoding:     string(a.Encoding),
			ChunkSize:    a.ChunkSize,
			ContentType:  a.ContentType,
		},
		Agent:           cfg.Agent,
		Transcriber:     cfg.Transcriber,
		Synthesizer:     cfg.Synthesizer,
		TelephonyParams: cfg.TelephonyParams,
		Tags:            cfg.Tags,
	}
}

// Me echoes the caller's identity.
func Me(c *gin.Context) {
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
}
