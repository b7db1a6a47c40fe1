package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rryowa/authsessions/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotActive  = errors.New("session already revoked")
	ErrTokenHashConflict = errors.New("refresh token hash collision")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so repositories can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Storage is the only source of truth for users and sessions. Nothing above
// it caches entities across calls.
type Storage interface {
	UserRepository
	SessionRepository

	// RotateSessionTx revokes oldID iff it is still unrevoked and inserts next
	// in the same unit of work. ErrSessionNotActive means another caller won.
	RotateSessionTx(ctx context.Context, oldID int64, next models.RefreshToken, now time.Time) (*models.RefreshToken, error)

	Ping(ctx context.Context) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, token models.RefreshToken) (*models.RefreshToken, error)
	GetSessionByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	GetUserSession(ctx context.Context, userID, sessionID int64) (*models.RefreshToken, error)
	ListUserSessions(ctx context.Context, userID int64) ([]models.RefreshToken, error)
	// RevokeSession is a conditional update: it reports false when the
	// session was already revoked.
	RevokeSession(ctx context.Context, sessionID int64, now time.Time) (bool, error)
	RevokeAllUserSessions(ctx context.Context, userID int64, now time.Time) (int64, error)
}

// AttemptStorage counts failed logins per key inside a sliding block window.
type AttemptStorage interface {
	RegisterFailure(ctx context.Context, key string, window, blockTime time.Duration, limit int) (int64, error)
	Failures(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}
