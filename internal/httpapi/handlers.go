package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"revox-adapter/internal/auth"
	"revox-adapter/internal/credentials"
	"revox-adapter/internal/dispatch"
	"revox-adapter/internal/revox"
	"revox-adapter/internal/voice"
	"revox-adapter/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RevoxAPI is the slice of the Revox client the handlers use.
type RevoxAPI interface {
	dispatch.Transport
	voice.Fetcher
	CheckAuth(ctx context.Context) error
}

// ClientFactory builds a Revox client for one workspace's credentials.
type ClientFactory func(revox.Credentials) (RevoxAPI, error)

// NewClientFactory returns a factory producing real HTTP clients with the given timeout.
func NewClientFactory(timeout time.Duration) ClientFactory {
	return func(creds revox.Credentials) (RevoxAPI, error) {
		client, err := revox.New(revox.Config{Credentials: creds, Timeout: timeout})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Credentials credentials.Store
	NewClient   ClientFactory
}

type dispatchRequest struct {
	Operation      dispatch.Operation `json:"operation"`
	ContinueOnFail bool               `json:"continue_on_fail"`
	Items          []dispatch.Item    `json:"items"`
}

type dispatchResponse struct {
	Items []dispatch.OutputItem `json:"items"`
}

// Dispatch runs one operation over a batch of items with the caller's workspace credentials.
func (h Handlers) Dispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	if req.Operation == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "operation required"})
		return
	}

	client, ok := h.clientFor(c)
	if !ok {
		return
	}

	out, err := dispatch.New(client).Run(c.Request.Context(), req.Operation, req.Items, dispatch.Options{
		ContinueOnFail: req.ContinueOnFail,
	})
	if err != nil {
		var itemErr *dispatch.ItemError
		if errors.As(err, &itemErr) {
			c.AbortWithStatusJSON(runErrorStatus(itemErr.Err), gin.H{"error": itemErr.Err.Error(), "item_index": itemErr.Index})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dispatchResponse{Items: out})
}

// Voices lists selectable voices as {name, value} options.
func (h Handlers) Voices(c *gin.Context) {
	client, ok := h.clientFor(c)
	if !ok {
		return
	}
	opts, err := voice.LoadOptions(c.Request.Context(), client)
	if err != nil {
		logger.FromGin(c).Warn("voice catalog unavailable", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"voices": opts})
}

// CredentialCheck probes the workspace's API key against the auth-status endpoint.
func (h Handlers) CredentialCheck(c *gin.Context) {
	client, ok := h.clientFor(c)
	if !ok {
		return
	}
	if err := client.CheckAuth(c.Request.Context()); err != nil {
		var apiErr *revox.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": apiErr.Message})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// clientFor resolves the workspace's credentials and builds a client.
// On failure it writes the response and returns false.
func (h Handlers) clientFor(c *gin.Context) (RevoxAPI, bool) {
	if h.Credentials == nil || h.NewClient == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "revox client not configured"})
		return nil, false
	}
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return nil, false
	}

	creds, err := h.Credentials.Lookup(c.Request.Context(), workspaceID)
	if errors.Is(err, credentials.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no revox credentials for workspace"})
		return nil, false
	}
	if err != nil {
		logger.FromGin(c).Error("credential lookup failed", "workspace_id", workspaceID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "credential lookup failed"})
		return nil, false
	}

	client, err := h.NewClient(creds)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return client, true
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrValidation), errors.Is(err, dispatch.ErrShape):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dispatch.ErrUnknownOperation):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
