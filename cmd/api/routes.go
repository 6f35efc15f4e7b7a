package main

import (
	"log/slog"

	"telephony-bridge/internal/audit"
	"telephony-bridge/internal/calls"
	"telephony-bridge/internal/config"
	"telephony-bridge/internal/httpapi"
	"telephony-bridge/internal/lifecycle"
	"telephony-bridge/internal/rbac"
	"telephony-bridge/internal/telephony"
	"telephony-bridge/internal/webhooks"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	cfg         config.Config
	addr        telephony.Addresses
	coordinator *lifecycle.Coordinator
	audit       *audit.Service
	authMW      gin.HandlerFunc
	log         *slog.Logger
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", httpapi.Healthz)

	// Carrier webhooks (public). Only providers with credentials get routes.
	wh := &webhooks.Handlers{
		Calls: d.coordinator,
		Addr:  d.addr,
		Defaults: webhooks.Defaults{
			Agent: calls.AgentProfile{
				Type:           d.cfg.Inbound.AgentType,
				Prompt:         d.cfg.Inbound.AgentPrompt,
				InitialMessage: d.cfg.Inbound.InitialMessage,
			},
			Record: d.cfg.Inbound.Record,
		},
	}
	if token := d.cfg.Credential(telephony.KeyTwilioAuthToken); token != "" {
		wh.TwilioVerifier = telephony.NewTwilioSignatureVerifier(token, d.addr)
	}
	enabled := configuredProviders(d.cfg)
	wh.Register(r, enabled...)
	d.log.Info("carrier routes mounted", "providers", enabled)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(d.authMW)
	{
		h := httpapi.Handlers{Calls: d.coordinator, Audit: d.audit}

		v1.GET("/me", httpapi.Me)

		callsGroup := v1.Group("/calls")
		callsGroup.GET("/:id", rbac.Viewers(), h.GetCall)
		callsGroup.POST("", rbac.Operators(), h.CreateCall)
		callsGroup.POST("/:id/end", rbac.Operators(), h.EndCall)
	}
}

// configuredProviders lists providers whose credentials are complete.
func configuredProviders(src telephony.CredentialSource) []calls.Provider {
	var out []calls.Provider
	for _, p := range calls.Providers {
		if _, err := telephony.CredentialsFrom(p, src); err == nil {
			out = append(out, p)
		}
	}
	return out
}
