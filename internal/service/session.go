package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rryowa/authsessions/internal/models"
	"github.com/rryowa/authsessions/internal/storage"
)

type SessionRegistry struct {
	sessions storage.SessionRepository
	now      func() time.Time
}

func NewSessionRegistry(sessions storage.SessionRepository, now func() time.Time) *SessionRegistry {
	if now == nil {
		now = time.Now
	}
	return &SessionRegistry{sessions: sessions, now: now}
}

// List returns every session of the user, newest first. Unknown users simply
// have no sessions.
func (r *SessionRegistry) List(ctx context.Context, userID int64) ([]models.Session, error) {
	tokens, err := r.sessions.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	now := r.now()
	views := make([]models.Session, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, models.NewSession(t, now))
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].ID > views[j].ID
		}
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}

// RevokeOne is idempotent: an already revoked session counts as success.
// It returns false only when the user owns no session with that id.
func (r *SessionRegistry) RevokeOne(ctx context.Context, userID, sessionID int64) (bool, error) {
	token, err := r.sessions.GetUserSession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get user session: %w", err)
	}
	if token.IsRevoked() {
		return true, nil
	}

	if _, err := r.sessions.RevokeSession(ctx, token.ID, r.now()); err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return true, nil
}

func (r *SessionRegistry) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	n, err := r.sessions.RevokeAllUserSessions(ctx, userID, r.now())
	if err != nil {
		return 0, fmt.Errorf("revoke all user sessions: %w", err)
	}
	return n, nil
}
