package client

import (
	"github.com/google/uuid"

	"github.com/dashkit/authcore/access"
)

// Credentials are the login inputs sent to the backend.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is the authenticated user's identity as reported by the backend.
type Profile struct {
	ID          uuid.UUID            `json:"id"`
	Email       string               `json:"email"`
	Name        string               `json:"name,omitempty"`
	Role        access.Role          `json:"role"`
	Permissions access.PermissionSet `json:"permissions,omitempty"`
}

// tokenResponse is the wire shape returned by the login and refresh endpoints.
type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// loginResponse is the wire shape returned by the login endpoint. The user
// block is optional; when absent the caller fetches identity separately.
type loginResponse struct {
	tokenResponse
	User *Profile `json:"user,omitempty"`
}
