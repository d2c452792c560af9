package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dashkit/authcore/db"
	"github.com/dashkit/authcore/pkg/apierr"
)

// Login exchanges credentials for a token pair. The expiry is computed at
// this moment from the server-reported lifetime, so the stored pair is
// always internally consistent. The profile is non-nil only when the login
// response carries a user block.
func (c *Client) Login(ctx context.Context, creds Credentials) (*db.Token, *Profile, error) {
	body, err := c.postUnauthenticated(ctx, c.cfg.LoginPath, creds)
	if err != nil {
		return nil, nil, err
	}

	var result loginResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to parse login response: %w", err)
	}
	if result.AccessToken == "" {
		return nil, nil, fmt.Errorf("login response contained no access token")
	}

	tok := &db.Token{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(result.ExpiresIn) * time.Second).Unix(),
	}
	log.Info().Msg("Login succeeded")
	return tok, result.User, nil
}

// PerformTokenRefresh implements auth.TokenRefresher. It deliberately
// bypasses the auth middleware chain: attaching an expired bearer token or
// retrying on 401 would recurse into the coordinator.
func (c *Client) PerformTokenRefresh(ctx context.Context, refreshToken string) (string, string, int64, error) {
	payload := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}

	body, err := c.postUnauthenticated(ctx, c.cfg.RefreshPath, payload)
	if err != nil {
		return "", "", 0, err
	}

	var result tokenResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", "", 0, fmt.Errorf("failed to parse refresh response: %w", err)
	}
	if result.AccessToken == "" {
		return "", "", 0, fmt.Errorf("refresh response contained no access token")
	}
	return result.AccessToken, result.RefreshToken, result.ExpiresIn, nil
}

// FetchIdentity retrieves the current user's profile, role, and permissions
// through the authorized chain.
func (c *Client) FetchIdentity(ctx context.Context) (*Profile, error) {
	body, err := c.Send(ctx, http.MethodGet, c.cfg.IdentityPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch identity: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse identity response: %w", err)
	}
	log.Debug().Str("email", profile.Email).Str("role", string(profile.Role)).Msg("Fetched identity")
	return &profile, nil
}

// Logout notifies the server that the session is ending. Best effort: the
// local session is torn down regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Send(ctx, http.MethodPost, c.cfg.LogoutPath, nil)
	if err != nil {
		log.Debug().Err(err).Msg("Server logout notification failed")
		return err
	}
	return nil
}

// postUnauthenticated issues a JSON POST on the raw client, outside the
// middleware chain. Used for the login and refresh endpoints, which do not
// carry a bearer credential.
func (c *Client) postUnauthenticated(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.raw.Do(req)
	if err != nil {
		return nil, apierr.New(apierr.Network, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.New(apierr.Network, "failed to read response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierr.FromStatus(resp.StatusCode, string(body))
	}
	return body, nil
}
