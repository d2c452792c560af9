package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/dashkit/authcore/db"
	"github.com/dashkit/authcore/pkg/apierr"
	"github.com/dashkit/authcore/token"
)

// Coordinator owns the token refresh process. Concurrent callers of Refresh
// share a single in-flight network call and receive the same result, so at
// most one refresh runs at any time and the store is only written from one
// goroutine per refresh cycle.
type Coordinator struct {
	store     TokenStore
	refresher TokenRefresher
	buffer    time.Duration
	group     singleflight.Group
}

// NewCoordinator is the constructor for the refresh coordinator. buffer is
// subtracted from the stored expiry so tokens about to expire are treated as
// expired, absorbing clock skew and in-flight latency.
func NewCoordinator(store TokenStore, refresher TokenRefresher, buffer time.Duration) *Coordinator {
	if buffer < 0 {
		buffer = 0
	}
	return &Coordinator{
		store:     store,
		refresher: refresher,
		buffer:    buffer,
	}
}

// AccessToken returns the currently stored access token if it is still valid,
// or an empty string when no usable token exists. An expired token is treated
// identically to a missing one.
func (c *Coordinator) AccessToken(ctx context.Context) (string, error) {
	tok, err := c.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve token record: %w", err)
	}
	if tok.IsExpired(c.buffer) {
		return "", nil
	}
	if token.IsExpired(tok.AccessToken) {
		// Stored expiry and the token's own exp claim disagree; trust the claim.
		return "", nil
	}
	return tok.AccessToken, nil
}

// Refresh obtains a new access token using the stored refresh token and
// persists the resulting pair. It is single-flight: if a refresh is already
// in progress the caller joins it instead of starting another network call.
// Failure clears the store and is terminal for this attempt.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	v, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Coordinator) doRefresh(ctx context.Context) (string, error) {
	tok, err := c.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve token record: %w", err)
	}
	if tok == nil || tok.RefreshToken == "" {
		c.clear(ctx)
		return "", apierr.New(apierr.AuthExpired, "no refresh token available, please login again", nil)
	}

	access, refresh, expiresIn, err := c.refresher.PerformTokenRefresh(ctx, tok.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("Token refresh rejected by server")
		c.clear(ctx)
		return "", apierr.New(apierr.AuthExpired, "token refresh failed", err)
	}
	if refresh == "" {
		// The refresh endpoint may omit a new refresh token; keep the old one.
		refresh = tok.RefreshToken
	}

	next := &db.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second).Unix(),
	}
	if err := c.store.Upsert(ctx, next); err != nil {
		return "", fmt.Errorf("failed to save refreshed token: %w", err)
	}
	log.Info().Msg("Token refreshed and saved successfully.")
	return access, nil
}

func (c *Coordinator) clear(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to clear token store")
	}
}
