package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/authsessions/internal/models"
	"github.com/rryowa/authsessions/internal/storage"
)

// InMemoryStorage keeps users and sessions in maps guarded by one mutex. Every
// method copies entities in and out, so callers never share state with it.
type InMemoryStorage struct {
	mu sync.RWMutex

	users      map[int64]models.User
	byUsername map[string]int64
	userSeq    int64

	sessions  map[int64]models.RefreshToken
	byHash    map[string]int64
	sessionID int64

	log *zap.SugaredLogger
}

var _ storage.Storage = (*InMemoryStorage)(nil)

func NewStorage(log *zap.SugaredLogger) *InMemoryStorage {
	return &InMemoryStorage{
		users:      make(map[int64]models.User),
		byUsername: make(map[string]int64),
		sessions:   make(map[int64]models.RefreshToken),
		byHash:     make(map[string]int64),
		log:        log,
	}
}

func (m *InMemoryStorage) Ping(_ context.Context) error { return nil }

func (m *InMemoryStorage) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byUsername[user.Username]; ok {
		return nil, storage.ErrUserExists
	}
	m.userSeq++
	user.ID = m.userSeq
	m.users[user.ID] = user
	m.byUsername[user.Username] = user.ID

	m.log.Debugw("User created", "userID", user.ID, "username", user.Username)
	return &user, nil
}

func (m *InMemoryStorage) UpdateUser(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return storage.ErrUserNotFound
	}
	existing.PasswordHash = user.PasswordHash
	existing.Role = user.Role
	m.users[user.ID] = existing
	return nil
}

func (m *InMemoryStorage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	user := m.users[id]
	return &user, nil
}

func (m *InMemoryStorage) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &user, nil
}

func (m *InMemoryStorage) CreateSession(_ context.Context, token models.RefreshToken) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.createSessionLocked(token)
}

func (m *InMemoryStorage) createSessionLocked(token models.RefreshToken) (*models.RefreshToken, error) {
	if _, ok := m.users[token.UserID]; !ok {
		return nil, storage.ErrUserNotFound
	}
	if _, ok := m.byHash[token.TokenHash]; ok {
		return nil, storage.ErrTokenHashConflict
	}
	m.sessionID++
	token.ID = m.sessionID
	token.RevokedAt = copyTime(token.RevokedAt)
	token.ReplacedByID = nil
	m.sessions[token.ID] = token
	m.byHash[token.TokenHash] = token.ID

	m.log.Debugw("Session created", "sessionID", token.ID, "userID", token.UserID)
	return cloneSession(token), nil
}

func (m *InMemoryStorage) GetSessionByHash(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byHash[tokenHash]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return cloneSession(m.sessions[id]), nil
}

func (m *InMemoryStorage) GetUserSession(_ context.Context, userID, sessionID int64) (*models.RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.sessions[sessionID]
	if !ok || token.UserID != userID {
		return nil, storage.ErrSessionNotFound
	}
	return cloneSession(token), nil
}

func (m *InMemoryStorage) ListUserSessions(_ context.Context, userID int64) ([]models.RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tokens := make([]models.RefreshToken, 0)
	for _, token := range m.sessions {
		if token.UserID == userID {
			tokens = append(tokens, *cloneSession(token))
		}
	}
	return tokens, nil
}

func (m *InMemoryStorage) RevokeSession(_ context.Context, sessionID int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.revokeLocked(sessionID, now), nil
}

func (m *InMemoryStorage) revokeLocked(sessionID int64, now time.Time) bool {
	token, ok := m.sessions[sessionID]
	if !ok || token.RevokedAt != nil {
		return false
	}
	at := now
	token.RevokedAt = &at
	m.sessions[sessionID] = token
	return true
}

func (m *InMemoryStorage) RevokeAllUserSessions(_ context.Context, userID int64, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, token := range m.sessions {
		if token.UserID == userID && token.IsActive(now) && m.revokeLocked(id, now) {
			n++
		}
	}
	return n, nil
}

func (m *InMemoryStorage) RotateSessionTx(_ context.Context, oldID int64, next models.RefreshToken, now time.Time) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.sessions[oldID]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	if old.RevokedAt != nil {
		return nil, storage.ErrSessionNotActive
	}
	// Validate the successor before revoking, so a failed insert leaves the
	// old session untouched.
	if _, ok := m.byHash[next.TokenHash]; ok {
		return nil, storage.ErrTokenHashConflict
	}

	m.revokeLocked(oldID, now)
	created, err := m.createSessionLocked(next)
	if err != nil {
		m.sessions[oldID] = old
		return nil, err
	}

	rotated := m.sessions[oldID]
	replacedBy := created.ID
	rotated.ReplacedByID = &replacedBy
	m.sessions[oldID] = rotated
	return created, nil
}

func cloneSession(token models.RefreshToken) *models.RefreshToken {
	token.RevokedAt = copyTime(token.RevokedAt)
	if token.ReplacedByID != nil {
		id := *token.ReplacedByID
		token.ReplacedByID = &id
	}
	return &token
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
