package routes

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/handlers"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/middleware"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/services"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, sessions *services.SessionStore, flow *services.Flow) {
	whatsappHandler := handlers.NewWhatsAppHandler(flow)
	adminHandler := handlers.NewAdminHandler(store, sessions)
	healthHandler := handlers.NewHealthHandler("1.0.0", sessions)

	app.Get("/health", healthHandler.Check)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// WhatsApp webhook - ENVIRONMENT-AWARE VALIDATION
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: Skip validation for ngrok
		webhooks.Post("/whatsapp", whatsappHandler.HandleWebhook)
		if os.Getenv("ENVIRONMENT") == "development" {
			println("⚠️  WhatsApp webhook validation DISABLED for development")
		}
	} else {
		// Production: Validate webhook signature
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), whatsappHandler.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if os.Getenv("ENVIRONMENT") == "development" {
		app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)
	}

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin")
	admin.Get("/appointments", adminHandler.GetUpcomingAppointments)
	admin.Get("/sessions", adminHandler.GetActiveSessions)
}
