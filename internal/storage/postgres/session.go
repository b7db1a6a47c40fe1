package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rryowa/authsessions/internal/models"
	"github.com/rryowa/authsessions/internal/storage"
)

const sessionColumns = `id, user_id, token_hash, user_agent, ip_address, created_at, expiration, revoked_at, replaced_by_id`

type SessionRepository struct {
	db storage.DBTX
}

func NewSessionRepository(db storage.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.RefreshToken, error) {
	var (
		token     models.RefreshToken
		revokedAt  sql.NullTime
		replacedBy sql.NullInt64
	)
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.Client.UserAgent,
		&token.Client.IPAddress,
		&token.CreatedAt,
		&token.Expiration,
		&revokedAt,
		&replacedBy,
	)
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time.UTC()
		token.RevokedAt = &t
	}
	if replacedBy.Valid {
		id := replacedBy.Int64
		token.ReplacedByID = &id
	}
	token.CreatedAt = token.CreatedAt.UTC()
	token.Expiration = token.Expiration.UTC()
	return &token, nil
}

func (r *SessionRepository) CreateSession(ctx context.Context, token models.RefreshToken) (*models.RefreshToken, error) {
	query := `INSERT INTO refresh_tokens (user_id, token_hash, user_agent, ip_address, created_at, expiration) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		token.UserID,
		token.TokenHash,
		token.Client.UserAgent,
		token.Client.IPAddress,
		token.CreatedAt,
		token.Expiration,
	).Scan(&token.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrTokenHashConflict
		}
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return &token, nil
}

func (r *SessionRepository) GetSessionByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `SELECT ` + sessionColumns + ` FROM refresh_tokens WHERE token_hash = $1`
	token, err := scanSession(r.db.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return token, nil
}

func (r *SessionRepository) GetUserSession(ctx context.Context, userID, sessionID int64) (*models.RefreshToken, error) {
	query := `SELECT ` + sessionColumns + ` FROM refresh_tokens WHERE id = $1 AND user_id = $2`
	token, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %d of user %d: %w", sessionID, userID, storage.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return token, nil
}

func (r *SessionRepository) ListUserSessions(ctx context.Context, userID int64) ([]models.RefreshToken, error) {
	query := `SELECT ` + sessionColumns + ` FROM refresh_tokens WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	tokens := make([]models.RefreshToken, 0)
	for rows.Next() {
		token, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		tokens = append(tokens, *token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return tokens, nil
}

// RevokeSession only touches rows whose revoked_at is still NULL, so two
// concurrent callers can never both observe a successful revocation.
func (r *SessionRepository) RevokeSession(ctx context.Context, sessionID int64, now time.Time) (bool, error) {
	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, now, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SessionRepository) RevokeAllUserSessions(ctx context.Context, userID int64, now time.Time) (int64, error) {
	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL AND expiration > $1`
	res, err := r.db.ExecContext(ctx, query, now, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// setReplacedBy links a rotated token to its successor. Only RotateSessionTx
// calls it, inside the rotation transaction.
func (r *SessionRepository) setReplacedBy(ctx context.Context, oldID, newID int64) error {
	query := `UPDATE refresh_tokens SET replaced_by_id = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, newID, oldID); err != nil {
		return fmt.Errorf("failed to link rotated session: %w", err)
	}
	return nil
}
