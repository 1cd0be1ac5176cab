package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"taskhub/internal/response"
)

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	startedAt time.Time
}

// NewHealthHandler creates a health handler anchored at process start.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{startedAt: time.Now()}
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	return response.OK(c, http.StatusOK, "", echo.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).Seconds(),
	})
}
