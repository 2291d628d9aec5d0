package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"revox-adapter/internal/auth"
	"revox-adapter/internal/config"
	"revox-adapter/internal/credentials"
	"revox-adapter/internal/revox"
	"revox-adapter/internal/webhook"

	"github.com/gin-gonic/gin"
)

type capturePublisher struct {
	events []webhook.Event
}

func (p *capturePublisher) Publish(ctx context.Context, e webhook.Event) error {
	p.events = append(p.events, e)
	return nil
}

func testRouter(t *testing.T, pub webhook.Publisher) (*gin.Engine, *auth.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Revox:   config.RevoxConfig{HTTPTimeout: time.Second},
		Webhook: config.WebhookConfig{Path: "/webhooks/revox", PublicURL: "https://adapter.example.com/webhooks/revox"},
	}
	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret"})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	r := gin.New()
	registerRoutes(r, routeDeps{
		cfg:         cfg,
		authMW:      auth.RequireAccessToken(m),
		credentials: credentials.StaticStore{Credentials: revox.Credentials{APIKey: "rvx"}},
		webhook: webhook.Handler{
			Normalizer: webhook.Normalizer{WebhookURL: cfg.Webhook.PublicURL, Now: time.Now},
			Filter:     webhook.FilterAll,
			Publisher:  pub,
		},
	})
	return r, m
}

func TestHealthz(t *testing.T) {
	r, _ := testRouter(t, &capturePublisher{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestWebhookRouteIsPublic(t *testing.T) {
	pub := &capturePublisher{}
	r, _ := testRouter(t, pub)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/revox", bytes.NewBufferString(`{"call_id":"c1","result":"human"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted || len(pub.events) != 1 {
		t.Fatalf("expected accepted event, got %d (%d events)", w.Code, len(pub.events))
	}
	if pub.events[0].WebhookURL != "https://adapter.example.com/webhooks/revox" {
		t.Fatalf("unexpected webhook url %q", pub.events[0].WebhookURL)
	}
}

func TestV1RequiresToken(t *testing.T) {
	r, m := testRouter(t, &capturePublisher{})

	for _, path := range []string{"/v1/voices", "/v1/credentials/check"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}

	tok, err := m.Issue(time.Now(), "s", "ws-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch", bytes.NewBufferString(`{"operation":"nope"}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown operation past auth, got %d", w.Code)
	}
}
