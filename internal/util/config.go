package util

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	MinSigningKeyLength = 32
	RawTokenLength      = 32
	JWTLeeWay           = 30 * time.Second
	DefaultRole         = "User"
	AdminRole           = "Admin"
	TokenTypeBearer     = "Bearer"
)

// ErrMisconfiguration is fatal and only ever returned at startup.
var ErrMisconfiguration = errors.New("misconfiguration")

type ServerConfig struct {
	ServerAddr      string        `env:"SERVER_ADDRESS"   envDefault:"localhost:8080"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"10s"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"10s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT"     envDefault:"30s"`
	GracefulTimeout time.Duration `env:"GRACEFUL_TIMEOUT" envDefault:"5s"`
}

func NewServerConfig() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse server config: %w", err)
	}
	return &cfg, nil
}

// TokenConfig holds the process-wide signing material. It is read once at
// startup and never mutated; changing JWT_KEY invalidates every outstanding token.
type TokenConfig struct {
	SigningKey         string `env:"JWT_KEY"`
	RefreshKey         string `env:"REFRESH_TOKEN_KEY"`
	Issuer             string `env:"JWT_ISSUER"               envDefault:"authsessions"`
	Audience           string `env:"JWT_AUDIENCE"             envDefault:"authsessions-clients"`
	AccessTokenMinutes int    `env:"JWT_ACCESS_TOKEN_MINUTES" envDefault:"10"`
	RefreshTokenDays   int    `env:"JWT_REFRESH_TOKEN_DAYS"   envDefault:"7"`
	RevokeAllOnReuse   bool   `env:"REVOKE_ALL_ON_REUSE"      envDefault:"true"`
}

func NewTokenConfig() (*TokenConfig, error) {
	var cfg TokenConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse token config: %w", err)
	}
	if cfg.RefreshKey == "" {
		cfg.RefreshKey = cfg.SigningKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *TokenConfig) Validate() error {
	switch {
	case len(c.SigningKey) < MinSigningKeyLength:
		return fmt.Errorf("%w: JWT_KEY must be at least %d bytes", ErrMisconfiguration, MinSigningKeyLength)
	case len(c.RefreshKey) < MinSigningKeyLength:
		return fmt.Errorf("%w: REFRESH_TOKEN_KEY must be at least %d bytes", ErrMisconfiguration, MinSigningKeyLength)
	case c.Issuer == "" || c.Audience == "":
		return fmt.Errorf("%w: JWT_ISSUER and JWT_AUDIENCE are required", ErrMisconfiguration)
	case c.AccessTokenMinutes <= 0 || c.RefreshTokenDays <= 0:
		return fmt.Errorf("%w: token lifetimes must be positive", ErrMisconfiguration)
	}
	return nil
}

func (c *TokenConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

func (c *TokenConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenDays) * 24 * time.Hour
}

// RateLimiterConfig drives the per-username login throttle.
type RateLimiterConfig struct {
	Limit     int           `env:"RATE_LIMIT_LIMIT"      envDefault:"5"`
	Interval  time.Duration `env:"RATE_LIMIT_INTERVAL"   envDefault:"15m"`
	BlockTime time.Duration `env:"RATE_LIMIT_BLOCK_TIME" envDefault:"15m"`
}

func NewRateLimiterConfig() (*RateLimiterConfig, error) {
	var cfg RateLimiterConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse rate limiter config: %w", err)
	}
	if cfg.Limit <= 0 {
		log.Printf("Invalid RATE_LIMIT_LIMIT: %d, using default 5", cfg.Limit)
		cfg.Limit = 5
	}
	return &cfg, nil
}

func GetWebhookURL() string {
	var cfg struct {
		URL string `env:"WEBHOOK_URL"`
	}
	_ = env.Parse(&cfg)
	return cfg.URL
}
