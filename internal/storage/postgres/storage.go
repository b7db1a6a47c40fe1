package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/rryowa/authsessions/internal/models"
	"github.com/rryowa/authsessions/internal/storage"
)

const uniqueViolation = pq.ErrorCode("23505")

type Storage struct {
	db *sql.DB
	*UserRepository
	*SessionRepository
}

var _ storage.Storage = (*Storage)(nil)

func NewStorage(db *sql.DB) *Storage {
	return &Storage{
		db:                db,
		UserRepository:    NewUserRepository(db),
		SessionRepository: NewSessionRepository(db),
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RotateSessionTx выполняет транзакцию по ротации refresh-токенов.
// Старая сессия отзывается условным UPDATE, новая создается в той же транзакции,
// и старая получает ссылку replaced_by_id на новую.
func (s *Storage) RotateSessionTx(ctx context.Context, oldID int64, next models.RefreshToken, now time.Time) (*models.RefreshToken, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	sessionRepoTx := NewSessionRepository(tx)

	revoked, err := sessionRepoTx.RevokeSession(ctx, oldID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke session in tx: %w", err)
	}
	if !revoked {
		return nil, storage.ErrSessionNotActive
	}

	created, err := sessionRepoTx.CreateSession(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("failed to create new session in tx: %w", err)
	}

	if err = sessionRepoTx.setReplacedBy(ctx, oldID, created.ID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return created, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
