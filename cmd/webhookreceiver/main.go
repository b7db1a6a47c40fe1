package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/authsessions/internal/service"
	"github.com/rryowa/authsessions/internal/util"
)

const listenAddr = ":9090"

// Development sink for security webhooks: it logs every token reuse event.
func main() {
	logger := util.NewZapLogger()

	e := echo.New()
	e.HideBanner = true
	e.POST("/", func(c echo.Context) error {
		var event service.TokenReuseEvent
		if err := json.NewDecoder(c.Request().Body).Decode(&event); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Error parsing JSON")
		}

		logger.Infow("Received webhook",
			"event", event.Event,
			"userID", event.UserID,
			"sessionID", event.SessionID,
			"revokedSessions", event.RevokedSessions,
			"detectedAt", event.DetectedAt.Format(time.RFC3339),
		)
		return c.String(http.StatusOK, "Webhook received!")
	})

	logger.Infof("Webhook receiver listening on %s", listenAddr)
	if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
