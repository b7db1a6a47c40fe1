package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rryowa/authsessions/internal/models"
	"github.com/rryowa/authsessions/internal/util"
)

// RefreshTokenManager mints opaque refresh tokens and derives the keyed hash
// that is the only form ever persisted.
type RefreshTokenManager struct {
	key []byte
}

func NewRefreshTokenManager(cfg *util.TokenConfig) (*RefreshTokenManager, error) {
	if len(cfg.RefreshKey) < util.MinSigningKeyLength {
		return nil, fmt.Errorf("%w: refresh token key too short", util.ErrMisconfiguration)
	}
	return &RefreshTokenManager{key: []byte(cfg.RefreshKey)}, nil
}

// Create returns the raw token for the client and an unsaved record for it.
func (m *RefreshTokenManager) Create(userID int64, lifetime time.Duration, now time.Time) (string, models.RefreshToken, error) {
	rawToken := make([]byte, util.RawTokenLength)
	if _, err := rand.Read(rawToken); err != nil {
		return "", models.RefreshToken{}, fmt.Errorf("failed to read random bytes: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(rawToken)

	return raw, models.RefreshToken{
		UserID:     userID,
		TokenHash:  m.ComputeHash(raw),
		CreatedAt:  now,
		Expiration: now.Add(lifetime),
	}, nil
}

// ComputeHash is HMAC-SHA256(key, raw) as lowercase hex.
func (m *RefreshTokenManager) ComputeHash(raw string) string {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func (m *RefreshTokenManager) Verify(raw, storedHash string) bool {
	stored, err := hex.DecodeString(storedHash)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(raw))

	return hmac.Equal(mac.Sum(nil), stored)
}
