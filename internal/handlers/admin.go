package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/services"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/storage"
)

// AdminHandler handles monitoring operations
type AdminHandler struct {
	store    storage.Store
	sessions *services.SessionStore
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store, sessions *services.SessionStore) *AdminHandler {
	return &AdminHandler{
		store:    store,
		sessions: sessions,
	}
}

// GetUpcomingAppointments lists appointments in the next 7 days
func (h *AdminHandler) GetUpcomingAppointments(c *fiber.Ctx) error {
	now := time.Now()
	appts, err := h.store.GetAppointmentsBetween(now, now.AddDate(0, 0, 7))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load appointments",
		})
	}

	return c.JSON(fiber.Map{
		"count":        len(appts),
		"appointments": appts,
	})
}

// GetActiveSessions lists the live conversation sessions
func (h *AdminHandler) GetActiveSessions(c *fiber.Ctx) error {
	sessions := h.sessions.ActiveSessions()
	return c.JSON(fiber.Map{
		"count":    len(sessions),
		"sessions": sessions,
	})
}
