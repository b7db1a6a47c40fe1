package models

import "time"

// RefreshToken is one session. Only the keyed hash of the opaque secret is
// stored; the raw value is handed to the client once and then forgotten.
type RefreshToken struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	TokenHash  string         `json:"-"`
	Client     ClientMetadata `json:"client"`
	CreatedAt  time.Time      `json:"created_at"`
	Expiration time.Time      `json:"expiration"`
	RevokedAt  *time.Time     `json:"revoked_at,omitempty"`

	// ReplacedByID is set only when the token was revoked by rotation.
	ReplacedByID *int64 `json:"-"`
}

// IsActive reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.Expiration)
}

func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsRotated reports whether a successor was issued for this token. Tokens
// revoked by logout or session revocation are not rotated.
func (t *RefreshToken) IsRotated() bool {
	return t.ReplacedByID != nil
}

// Session is the read-only view of a RefreshToken returned by session listing.
type Session struct {
	ID         int64      `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	Expiration time.Time  `json:"expiration"`
	RevokedAt  *time.Time `json:"revoked_at"`
	IsActive   bool       `json:"is_active"`
	UserAgent  string     `json:"user_agent,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
}

func NewSession(t RefreshToken, now time.Time) Session {
	return Session{
		ID:         t.ID,
		CreatedAt:  t.CreatedAt,
		Expiration: t.Expiration,
		RevokedAt:  t.RevokedAt,
		IsActive:   t.IsActive(now),
		UserAgent:  t.Client.UserAgent,
		IPAddress:  t.Client.IPAddress,
	}
}
