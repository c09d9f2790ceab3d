// Package gemini is a minimal client for the Gemini generateContent API,
// limited to describing a single image.
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the public Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// maxLoggedBody caps response bodies written to debug logs.
const maxLoggedBody = 2048

// Client performs blocking describe calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, e.g. to inject a transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// WithTimeout bounds each request. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a new API client
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		logger:     logger.With("component", "gemini"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(model, apiKey string) string {
	q := url.Values{"key": {apiKey}}
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?%s", c.baseURL, url.PathEscape(model), q.Encode())
}

// Describe sends the image and prompt and returns the model's description.
//
// A response body is always turned into text: the first candidate's text,
// or an *APIError carrying the service's error message, or NoDescription.
// Failures that leave no body to parse are returned as *TransportError.
func (c *Client) Describe(ctx context.Context, req Request) (string, error) {
	payload, err := buildPayload(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	if c.logger.Enabled(ctx, slog.LevelDebug) {
		if body, err := describePayload(req); err != nil {
			c.logger.Debug("failed to describe request", "error", err)
		} else {
			c.logger.Debug("sending request",
				"model", req.Model,
				"image_bytes", len(req.Image),
				"payload", body)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(req.Model, req.APIKey), bytes.NewReader(payload))
	if err != nil {
		return "", newTransportError("build", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", newTransportError("post", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newTransportError("read", err)
	}

	c.logger.Debug("response received",
		"status", resp.StatusCode,
		"bytes", len(body),
		"body", truncate(body, maxLoggedBody))

	parsed := ParseResponse(body)
	switch parsed.Kind {
	case KindAPIError:
		c.logger.Warn("API returned an error", "status", resp.StatusCode, "message", parsed.Text)
		return "", &APIError{StatusCode: resp.StatusCode, Message: parsed.Text}
	case KindFallback:
		c.logger.Warn("could not find a description in response",
			"status", resp.StatusCode, "body", truncate(body, maxLoggedBody))
	}
	return parsed.Text, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
