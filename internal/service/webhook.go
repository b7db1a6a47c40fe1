package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHTTPStatusThreshold = 300
	defaultWebhookTimeout      = 5 * time.Second

	EventRefreshTokenReuse = "refresh_token_reuse"
)

// TokenReuseEvent is sent when a revoked refresh token is presented again.
type TokenReuseEvent struct {
	Event           string    `json:"event"`
	UserID          int64     `json:"user_id"`
	SessionID       int64     `json:"session_id"`
	RevokedSessions int64     `json:"revoked_sessions"`
	DetectedAt      time.Time `json:"detected_at"`
}

type SecurityNotifier interface {
	NotifyTokenReuse(ctx context.Context, event TokenReuseEvent)
}

type WebhookService struct {
	client     *http.Client
	log        *zap.SugaredLogger
	webhookURL string
}

func NewWebhookService(log *zap.SugaredLogger, webhookURL string) *WebhookService {
	return &WebhookService{
		client:     &http.Client{Timeout: defaultWebhookTimeout},
		log:        log,
		webhookURL: webhookURL,
	}
}

// NotifyTokenReuse posts asynchronously and never blocks the request that
// detected the reuse.
func (s *WebhookService) NotifyTokenReuse(ctx context.Context, event TokenReuseEvent) {
	if s.webhookURL == "" {
		return
	}
	event.Event = EventRefreshTokenReuse
	ctx = context.WithoutCancel(ctx)

	go func() {
		payload, err := json.Marshal(event)
		if err != nil {
			s.log.Errorw("failed to marshal webhook payload", "error", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(payload))
		if err != nil {
			s.log.Errorw("failed to create webhook request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Errorw("failed to send webhook", "error", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= defaultHTTPStatusThreshold {
			s.log.Warnw("webhook returned non-2xx status", "status", resp.StatusCode)
		}
	}()
}
