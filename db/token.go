package db

import "time"

// Token is the persisted token pair. A single row holds the current
// credentials; it is replaced wholesale on login and refresh.
type Token struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"` // unix seconds, set at storage time
}

// IsExpired reports whether the access token is expired or will expire
// within buffer. A nil or incomplete token counts as expired.
func (t *Token) IsExpired(buffer time.Duration) bool {
	if t == nil || t.AccessToken == "" || t.ExpiresAt == 0 {
		return true
	}
	return !time.Now().Add(buffer).Before(time.Unix(t.ExpiresAt, 0))
}
