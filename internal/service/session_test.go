package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rryowa/authsessions/internal/models"
	"github.com/rryowa/authsessions/internal/storage"
	"github.com/rryowa/authsessions/internal/storage/memory"
)

func newRegistryForTest(t *testing.T) (*SessionRegistry, *memory.InMemoryStorage, *models.User, time.Time) {
	t.Helper()
	store := memory.NewStorage(zap.NewNop().Sugar())
	user, err := store.CreateUser(context.Background(), models.User{Username: "alice", Role: "User"})
	require.NoError(t, err)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewSessionRegistry(store, func() time.Time { return now }), store, user, now
}

func TestSessionRegistryList(t *testing.T) {
	r, store, user, now := newRegistryForTest(t)
	ctx := context.Background()

	older, err := store.CreateSession(ctx, models.RefreshToken{UserID: user.ID, TokenHash: "a", CreatedAt: now.Add(-2 * time.Hour), Expiration: now.Add(-time.Hour)})
	require.NoError(t, err)
	newer, err := store.CreateSession(ctx, models.RefreshToken{UserID: user.ID, TokenHash: "b", CreatedAt: now.Add(-time.Hour), Expiration: now.Add(time.Hour)})
	require.NoError(t, err)

	sessions, err := r.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newer.ID, sessions[0].ID)
	assert.True(t, sessions[0].IsActive)
	assert.Equal(t, older.ID, sessions[1].ID)
	assert.False(t, sessions[1].IsActive, "expired sessions are listed but inactive")

	empty, err := r.List(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSessionRegistryRevokeOne(t *testing.T) {
	r, store, user, now := newRegistryForTest(t)
	ctx := context.Background()

	other, err := store.CreateUser(ctx, models.User{Username: "mallory", Role: "User"})
	require.NoError(t, err)
	session, err := store.CreateSession(ctx, models.RefreshToken{UserID: user.ID, TokenHash: "a", CreatedAt: now, Expiration: now.Add(time.Hour)})
	require.NoError(t, err)

	ok, err := r.RevokeOne(ctx, other.ID, session.ID)
	require.NoError(t, err)
	assert.False(t, ok, "sessions of another user are invisible")

	ok, err = r.RevokeOne(ctx, user.ID, session.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.RevokeOne(ctx, user.ID, session.ID)
	require.NoError(t, err)
	assert.True(t, ok, "revoking twice is still success")

	ok, err = r.RevokeOne(ctx, user.ID, 12345)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionRegistryRevokeAll(t *testing.T) {
	r, store, user, now := newRegistryForTest(t)
	ctx := context.Background()

	for _, hash := range []string{"a", "b", "c"} {
		_, err := store.CreateSession(ctx, models.RefreshToken{UserID: user.ID, TokenHash: hash, CreatedAt: now, Expiration: now.Add(time.Hour)})
		require.NoError(t, err)
	}

	n, err := r.RevokeAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = r.RevokeAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	sessions, err := r.List(ctx, user.ID)
	require.NoError(t, err)
	for _, s := range sessions {
		assert.False(t, s.IsActive)
		assert.NotNil(t, s.RevokedAt)
	}
}

type failingSessions struct {
	storage.SessionRepository
	err error
}

func (f failingSessions) ListUserSessions(context.Context, int64) ([]models.RefreshToken, error) {
	return nil, f.err
}

func (f failingSessions) GetUserSession(context.Context, int64, int64) (*models.RefreshToken, error) {
	return nil, f.err
}

func TestSessionRegistryPropagatesStorageErrors(t *testing.T) {
	expected := errors.New("db unavailable")
	r := NewSessionRegistry(failingSessions{err: expected}, nil)

	_, err := r.List(context.Background(), 1)
	require.ErrorIs(t, err, expected)

	_, err = r.RevokeOne(context.Background(), 1, 1)
	require.ErrorIs(t, err, expected)
}
