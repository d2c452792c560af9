package auth

import (
	"context"

	"github.com/dashkit/authcore/db"
)

// TokenStore defines the contract for any component that can persist a token pair.
// db.TokenRepository satisfies it.
type TokenStore interface {
	Get(ctx context.Context) (*db.Token, error)
	Upsert(ctx context.Context, token *db.Token) error
	Clear(ctx context.Context) error
}

// TokenRefresher defines the contract for any component that can exchange a
// refresh token for a new token pair.
type TokenRefresher interface {
	PerformTokenRefresh(ctx context.Context, refreshToken string) (accessToken string, newRefreshToken string, expiresIn int64, err error)
}
