// Package revox provides a small client for the Revox AI calling API.
package revox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://www.getrevox.com/"

// API paths.
const (
	PathCall       = "/api/call"
	PathVoices     = "/api/voices"
	PathAuthStatus = "/api/auth-status"
)

// Credentials identify a Revox account.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// Config configures the client.
type Config struct {
	Credentials
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the Revox REST API with bearer-token auth.
// It never retries: placing a call must happen at most once per request.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a client. The API key is required.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("revox: api key is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("revox: invalid base url %q", baseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Request describes one outbound API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// APIError is returned for HTTP responses with status >= 400.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("revox: http %d: %s", e.StatusCode, e.Message)
}

// Do sends r and decodes the JSON object response.
// Numbers are kept as json.Number so ids and counts round-trip unchanged.
func (c *Client) Do(ctx context.Context, r Request) (map[string]any, error) {
	endpoint := c.baseURL + r.Path
	if len(r.Query) > 0 {
		endpoint += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("revox: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("revox: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("revox: %s %s: %w", r.Method, r.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("revox: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}

	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("revox: failed to parse response: %w", err)
	}
	return out, nil
}

// CheckAuth probes the auth-status endpoint to validate the API key.
func (c *Client) CheckAuth(ctx context.Context) error {
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: PathAuthStatus})
	return err
}

// Voices fetches the raw voice catalog response.
func (c *Client) Voices(ctx context.Context) (map[string]any, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: PathVoices})
}

func errorMessage(raw []byte, status string) string {
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if s, ok := body.Error.(string); ok && s != "" {
			return s
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return status
}
