package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rryowa/authsessions/internal/util"
)

func newRefreshTokenManagerForTest(t *testing.T) *RefreshTokenManager {
	t.Helper()
	m, err := NewRefreshTokenManager(newTokenConfigForTest())
	require.NoError(t, err)
	return m
}

func TestRefreshTokenManagerCreate(t *testing.T) {
	m := newRefreshTokenManagerForTest(t)
	now := time.Now().UTC()

	raw, record, err := m.Create(7, 24*time.Hour, now)
	require.NoError(t, err)

	assert.Len(t, raw, 43, "32 random bytes in unpadded base64url")
	assert.Equal(t, int64(7), record.UserID)
	assert.Equal(t, m.ComputeHash(raw), record.TokenHash)
	assert.NotContains(t, record.TokenHash, raw)
	assert.Equal(t, now, record.CreatedAt)
	assert.Equal(t, now.Add(24*time.Hour), record.Expiration)
	assert.Nil(t, record.RevokedAt)
	assert.Zero(t, record.ID)
}

func TestRefreshTokenManagerCreateIsRandom(t *testing.T) {
	m := newRefreshTokenManagerForTest(t)
	seen := make(map[string]struct{})
	for range 100 {
		raw, _, err := m.Create(1, time.Hour, time.Now())
		require.NoError(t, err)
		_, dup := seen[raw]
		require.False(t, dup)
		seen[raw] = struct{}{}
	}
}

func TestRefreshTokenManagerVerifyRoundTrip(t *testing.T) {
	m := newRefreshTokenManagerForTest(t)

	for range 20 {
		raw, _, err := m.Create(1, time.Hour, time.Now())
		require.NoError(t, err)
		assert.True(t, m.Verify(raw, m.ComputeHash(raw)))
		assert.Equal(t, m.ComputeHash(raw), m.ComputeHash(raw))
	}
}

func TestRefreshTokenManagerVerifyRejectsBitFlips(t *testing.T) {
	m := newRefreshTokenManagerForTest(t)
	raw, _, err := m.Create(1, time.Hour, time.Now())
	require.NoError(t, err)
	stored := m.ComputeHash(raw)

	for i := range len(raw) {
		for bit := range 8 {
			mutated := []byte(raw)
			mutated[i] ^= 1 << bit
			assert.False(t, m.Verify(string(mutated), stored), "byte %d bit %d", i, bit)
		}
	}
}

func TestRefreshTokenManagerVerifyRejectsGarbage(t *testing.T) {
	m := newRefreshTokenManagerForTest(t)
	raw, _, err := m.Create(1, time.Hour, time.Now())
	require.NoError(t, err)

	assert.False(t, m.Verify(raw, ""))
	assert.False(t, m.Verify(raw, "zz-not-hex"))
	assert.False(t, m.Verify(raw, m.ComputeHash(raw)[:10]))
}

func TestRefreshTokenManagerHashIsKeyed(t *testing.T) {
	m := newRefreshTokenManagerForTest(t)

	cfg := newTokenConfigForTest()
	cfg.RefreshKey = "fedcba9876543210fedcba9876543210"
	other, err := NewRefreshTokenManager(cfg)
	require.NoError(t, err)

	raw, _, err := m.Create(1, time.Hour, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, m.ComputeHash(raw), other.ComputeHash(raw))
	assert.False(t, other.Verify(raw, m.ComputeHash(raw)))
}

func TestNewRefreshTokenManagerShortKey(t *testing.T) {
	cfg := newTokenConfigForTest()
	cfg.RefreshKey = "short"
	_, err := NewRefreshTokenManager(cfg)
	require.ErrorIs(t, err, util.ErrMisconfiguration)
}
