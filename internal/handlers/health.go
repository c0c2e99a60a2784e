package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/services"
)

// HealthHandler reports liveness plus basic bot vitals
type HealthHandler struct {
	version   string
	sessions  *services.SessionStore
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessions *services.SessionStore) *HealthHandler {
	return &HealthHandler{
		version:   version,
		sessions:  sessions,
		startedAt: time.Now(),
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "OK",
		"service":         "School Admission Bot",
		"version":         h.version,
		"uptime":          time.Since(h.startedAt).Round(time.Second).String(),
		"active_sessions": h.sessions.Count(),
	})
}
