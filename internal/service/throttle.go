package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/rryowa/authsessions/internal/storage"
	"github.com/rryowa/authsessions/internal/util"
)

// LoginThrottle blocks a username after too many failed logins. Buckets are
// keyed by the exact username, matching the case-sensitive user store. A nil
// *LoginThrottle allows everything. Backend errors fail open.
type LoginThrottle struct {
	attempts storage.AttemptStorage
	cfg      *util.RateLimiterConfig
	log      *zap.SugaredLogger
}

func NewLoginThrottle(attempts storage.AttemptStorage, cfg *util.RateLimiterConfig, log *zap.SugaredLogger) *LoginThrottle {
	return &LoginThrottle{attempts: attempts, cfg: cfg, log: log}
}

func (t *LoginThrottle) Allow(ctx context.Context, username string) bool {
	if t == nil {
		return true
	}
	n, err := t.attempts.Failures(ctx, username)
	if err != nil {
		t.log.Warnw("login throttle unavailable", "error", err)
		return true
	}
	return n < int64(t.cfg.Limit)
}

func (t *LoginThrottle) Failure(ctx context.Context, username string) {
	if t == nil {
		return
	}
	n, err := t.attempts.RegisterFailure(ctx, username, t.cfg.Interval, t.cfg.BlockTime, t.cfg.Limit)
	if err != nil {
		t.log.Warnw("failed to record login failure", "error", err)
		return
	}
	if n == int64(t.cfg.Limit) {
		t.log.Warnw("login blocked after repeated failures", "username", username, "blockTime", t.cfg.BlockTime)
	}
}

func (t *LoginThrottle) Success(ctx context.Context, username string) {
	if t == nil {
		return
	}
	if err := t.attempts.Reset(ctx, username); err != nil {
		t.log.Warnw("failed to reset login attempts", "error", err)
	}
}
