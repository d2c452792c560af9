package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dashkit/authcore/auth"
	"github.com/dashkit/authcore/config"
	"github.com/dashkit/authcore/pkg/apierr"
)

// Client talks to the dashboard's REST backend. Requests pass through a
// middleware chain; WithAuth installs bearer attachment and the
// refresh-and-retry-once cycle.
type Client struct {
	baseURL string
	cfg     *config.Config
	raw     *http.Client // used directly for login and refresh calls
	send    Doer         // middleware chain for authorized calls
}

// New creates a Client from config. Until WithAuth is called, requests are
// sent without credentials.
func New(cfg *config.Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	raw := &http.Client{Timeout: timeout}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		cfg:     cfg,
		raw:     raw,
		send:    raw,
	}
}

// WithAuth installs the authorization middlewares. onAuthFailure is invoked
// when an auth failure is terminal (failed refresh, or 401 after retry); the
// session manager uses it to clear state and notify subscribers.
func (c *Client) WithAuth(tokens *auth.Coordinator, onAuthFailure func()) *Client {
	c.send = Chain(c.raw,
		AuthRetry(tokens, onAuthFailure),
		BearerAuth(tokens),
	)
	return c
}

// Send issues an authorized JSON request against the backend and returns the
// raw response body. Errors are normalized into the apierr taxonomy; a
// non-2xx status is always an error, never a silent result.
func (c *Client) Send(ctx context.Context, method, path string, payload any) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("method", method).Str("path", path).Msg("Sending HTTP request")
	resp, err := c.send.Do(req)
	if err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		log.Error().Err(err).Str("method", method).Str("path", path).Msg("HTTP request failed")
		return nil, apierr.New(apierr.Network, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.New(apierr.Network, "failed to read response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("HTTP request returned non-OK status")
		return nil, apierr.FromStatus(resp.StatusCode, string(body))
	}
	return body, nil
}

// newRequest builds a JSON request. The body is buffered so GetBody can
// replay it on the auth retry.
func (c *Client) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		log.Error().Err(err).Str("method", method).Str("path", path).Msg("Failed to create HTTP request object")
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
