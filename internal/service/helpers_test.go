package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rryowa/authsessions/internal/storage/memory"
	"github.com/rryowa/authsessions/internal/util"
)

const testKey = "0123456789abcdef0123456789abcdef"

var testArgon2Params = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTokenConfigForTest() *util.TokenConfig {
	return &util.TokenConfig{
		SigningKey:         testKey,
		RefreshKey:         testKey,
		Issuer:             "test-issuer",
		Audience:           "test-audience",
		AccessTokenMinutes: 10,
		RefreshTokenDays:   7,
		RevokeAllOnReuse:   true,
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []TokenReuseEvent
}

func (n *recordingNotifier) NotifyTokenReuse(_ context.Context, event TokenReuseEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []TokenReuseEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]TokenReuseEvent(nil), n.events...)
}

type authFixture struct {
	svc      *AuthService
	store    *memory.InMemoryStorage
	clock    *fakeClock
	notifier *recordingNotifier
	refresh  *RefreshTokenManager
}

func newAuthFixture(t *testing.T, mutate ...func(*util.TokenConfig)) *authFixture {
	t.Helper()
	cfg := newTokenConfigForTest()
	for _, m := range mutate {
		m(cfg)
	}
	return newAuthFixtureWithThrottle(t, cfg, nil)
}

func newAuthFixtureWithThrottle(t *testing.T, cfg *util.TokenConfig, throttle *LoginThrottle) *authFixture {
	t.Helper()
	log := zap.NewNop().Sugar()

	tokens, err := NewTokenService(cfg)
	require.NoError(t, err)
	refresh, err := NewRefreshTokenManager(cfg)
	require.NoError(t, err)

	store := memory.NewStorage(log)
	notifier := &recordingNotifier{}
	svc, err := NewAuthService(cfg, store, NewPasswordHasher(testArgon2Params), tokens, refresh, throttle, notifier, log)
	require.NoError(t, err)

	clock := &fakeClock{now: time.Now().UTC()}
	svc.now = clock.Now

	return &authFixture{svc: svc, store: store, clock: clock, notifier: notifier, refresh: refresh}
}
