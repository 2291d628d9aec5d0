package main

import (
	"net/http"

	"revox-adapter/internal/config"
	"revox-adapter/internal/credentials"
	"revox-adapter/internal/httpapi"
	"revox-adapter/internal/webhook"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	cfg         config.Config
	authMW      gin.HandlerFunc
	credentials credentials.Store
	webhook     webhook.Handler
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Revox call-completion webhook (public; signature-checked when WEBHOOK_SECRET is set).
	r.POST(d.cfg.Webhook.Path, d.webhook.HandleCallCompleted)

	v1 := r.Group("/v1")
	v1.Use(d.authMW)
	{
		h := httpapi.Handlers{
			Credentials: d.credentials,
			NewClient:   httpapi.NewClientFactory(d.cfg.Revox.HTTPTimeout),
		}
		v1.POST("/dispatch", h.Dispatch)
		v1.GET("/voices", h.Voices)
		v1.GET("/credentials/check", h.CredentialCheck)
	}
}
