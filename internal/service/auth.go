package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/authsessions/internal/models"
	"github.com/rryowa/authsessions/internal/storage"
	"github.com/rryowa/authsessions/internal/util"
)

var (
	ErrDuplicateUser       = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrTooManyAttempts     = errors.New("too many failed login attempts")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrSessionNotFound     = errors.New("session not found")
)

// dummyPassword is hashed once at startup so that logins for unknown users
// spend the same time in argon2 as logins with a wrong password.
const dummyPassword = "not-a-real-password"

type AuthService struct {
	storage  storage.Storage
	hasher   *PasswordHasher
	tokens   *TokenService
	refresh  *RefreshTokenManager
	sessions *SessionRegistry
	throttle *LoginThrottle
	notifier SecurityNotifier
	cfg      *util.TokenConfig
	log      *zap.SugaredLogger

	now       func() time.Time
	dummyHash string
}

// NewAuthService wires the use cases together. throttle and notifier are
// optional and may be nil.
func NewAuthService(
	cfg *util.TokenConfig,
	store storage.Storage,
	hasher *PasswordHasher,
	tokens *TokenService,
	refresh *RefreshTokenManager,
	throttle *LoginThrottle,
	notifier SecurityNotifier,
	log *zap.SugaredLogger,
) (*AuthService, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	s := &AuthService{
		storage:   store,
		hasher:    hasher,
		tokens:    tokens,
		refresh:   refresh,
		throttle:  throttle,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummyHash,
	}
	s.sessions = NewSessionRegistry(store, func() time.Time { return s.now() })
	return s, nil
}

func (s *AuthService) Register(ctx context.Context, username, password, role string) (*models.User, error) {
	if role == "" {
		role = util.DefaultRole
	}

	_, err := s.storage.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrDuplicateUser
	case !errors.Is(err, storage.ErrUserNotFound):
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.storage.CreateUser(ctx, models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Infow("user registered", "userID", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// Login never tells the caller whether the username exists.
func (s *AuthService) Login(ctx context.Context, username, password string, client models.ClientMetadata) (*models.TokenPair, error) {
	if !s.throttle.Allow(ctx, username) {
		return nil, ErrTooManyAttempts
	}

	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("get user by username: %w", err)
		}
		s.hasher.Verify(password, s.dummyHash)
		s.throttle.Failure(ctx, username)
		s.log.Infow("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.throttle.Failure(ctx, username)
		s.log.Infow("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}
	s.throttle.Success(ctx, username)

	now := s.now()
	rawRefresh, record, err := s.refresh.Create(user.ID, s.cfg.RefreshTTL(), now)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}
	record.Client = client

	session, err := s.storage.CreateSession(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	pair, err := s.tokenPair(*user, rawRefresh, now)
	if err != nil {
		return nil, err
	}

	s.log.Infow("user logged in", "userID", user.ID, "sessionID", session.ID)
	return pair, nil
}

// Refresh rotates the presented token. The old session is revoked and its
// successor inserted in one conditional unit, so concurrent refreshes of the
// same token yield exactly one winner; losers see ErrRefreshTokenRevoked.
// Only a rotated token presented again counts as reuse. Tokens revoked by
// logout or session revocation are rejected without touching other sessions.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string, client models.ClientMetadata) (*models.TokenPair, error) {
	if rawRefresh == "" {
		return nil, ErrInvalidRefreshToken
	}

	current, err := s.storage.GetSessionByHash(ctx, s.refresh.ComputeHash(rawRefresh))
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("get session by hash: %w", err)
	}
	if !s.refresh.Verify(rawRefresh, current.TokenHash) {
		return nil, ErrInvalidRefreshToken
	}

	now := s.now()
	if current.IsRevoked() {
		if current.IsRotated() {
			s.handleReuse(ctx, current)
		}
		return nil, ErrRefreshTokenRevoked
	}
	if !now.Before(current.Expiration) {
		return nil, ErrRefreshTokenExpired
	}

	user, err := s.storage.GetUserByID(ctx, current.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	rawNext, next, err := s.refresh.Create(user.ID, s.cfg.RefreshTTL(), now)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}
	next.Client = client
	if next.Client == (models.ClientMetadata{}) {
		next.Client = current.Client
	}

	rotated, err := s.storage.RotateSessionTx(ctx, current.ID, next, now)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotActive) {
			s.handleLostRotation(ctx, current)
			return nil, ErrRefreshTokenRevoked
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	pair, err := s.tokenPair(*user, rawNext, now)
	if err != nil {
		return nil, err
	}

	s.log.Infow("refresh token rotated", "userID", user.ID, "oldSessionID", current.ID, "sessionID", rotated.ID)
	return pair, nil
}

// handleLostRotation re-reads a token whose rotation lost the conditional
// update. It is a reuse only if another refresh replaced it; a concurrent
// logout or revocation is not.
func (s *AuthService) handleLostRotation(ctx context.Context, token *models.RefreshToken) {
	latest, err := s.storage.GetSessionByHash(ctx, token.TokenHash)
	if err != nil {
		s.log.Errorw("failed to re-read session after lost rotation", "sessionID", token.ID, "error", err)
		return
	}
	if latest.IsRotated() {
		s.handleReuse(ctx, latest)
	}
}

// handleReuse treats a second presentation of a rotated token as theft and,
// when enabled, revokes every active session of its owner.
func (s *AuthService) handleReuse(ctx context.Context, token *models.RefreshToken) {
	event := TokenReuseEvent{
		UserID:     token.UserID,
		SessionID:  token.ID,
		DetectedAt: s.now(),
	}

	if s.cfg.RevokeAllOnReuse {
		n, err := s.sessions.RevokeAll(ctx, token.UserID)
		if err != nil {
			s.log.Errorw("failed to revoke sessions after token reuse", "userID", token.UserID, "error", err)
		}
		event.RevokedSessions = n
	}

	s.log.Warnw("revoked refresh token presented again",
		"userID", token.UserID,
		"sessionID", token.ID,
		"revokedSessions", event.RevokedSessions,
	)

	if s.notifier != nil {
		s.notifier.NotifyTokenReuse(ctx, event)
	}
}

// Logout always succeeds from the caller's point of view: unknown tokens are
// treated as already logged out and storage failures are only logged.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) {
	if rawRefresh == "" {
		return
	}

	token, err := s.storage.GetSessionByHash(ctx, s.refresh.ComputeHash(rawRefresh))
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			s.log.Errorw("logout: failed to look up session", "error", err)
		}
		return
	}

	now := s.now()
	if !token.IsActive(now) {
		return
	}
	if _, err := s.storage.RevokeSession(ctx, token.ID, now); err != nil {
		s.log.Errorw("logout: failed to revoke session", "sessionID", token.ID, "error", err)
		return
	}
	s.log.Infow("session logged out", "userID", token.UserID, "sessionID", token.ID)
}

func (s *AuthService) LogoutAll(ctx context.Context, userID int64) (int64, error) {
	n, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.Infow("all sessions revoked", "userID", userID, "count", n)
	return n, nil
}

func (s *AuthService) ListSessions(ctx context.Context, userID int64) ([]models.Session, error) {
	return s.sessions.List(ctx, userID)
}

func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID int64) error {
	ok, err := s.sessions.RevokeOne(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	s.log.Infow("session revoked", "userID", userID, "sessionID", sessionID)
	return nil
}

func (s *AuthService) ParseAccessToken(token string) (*AccessClaims, error) {
	return s.tokens.ParseAccessToken(token)
}

func (s *AuthService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func (s *AuthService) tokenPair(user models.User, rawRefresh string, now time.Time) (*models.TokenPair, error) {
	accessToken, expiresIn, err := s.tokens.IssueAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		ExpiresIn:    expiresIn,
		TokenType:    util.TokenTypeBearer,
	}, nil
}
