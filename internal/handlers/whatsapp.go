package handlers

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/services"
)

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	flow *services.Flow
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(flow *services.Flow) *WhatsAppHandler {
	return &WhatsAppHandler{flow: flow}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid          string `form:"MessageSid"`
	AccountSid          string `form:"AccountSid"`
	MessagingServiceSid string `form:"MessagingServiceSid"`
	From                string `form:"From"` // WhatsApp number (whatsapp:+919876543210)
	To                  string `form:"To"`   // Your Twilio number
	Body                string `form:"Body"` // Message text
	NumMedia            string `form:"NumMedia"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	// Status callbacks arrive on the same endpoint with an empty body
	if payload.Body == "" || payload.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	from := strings.TrimPrefix(payload.From, "whatsapp:")
	log.Printf("📱 WhatsApp Message from %s: %s", from, payload.Body)

	// Replies go out through the channel inside the flow, so the webhook
	// only needs to acknowledge. Processing happens off the request path:
	// Twilio retries on slow responses, and the flow may block on the
	// oracle and database.
	go func() {
		if err := h.flow.HandleMessage(from, payload.Body, time.Now()); err != nil {
			log.Printf("Error processing message from %s: %v", from, err)
		}
	}()

	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload is the development payload for testing without Twilio
type TestWebhookPayload struct {
	From       string     `json:"from"`
	Message    string     `json:"message"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

// HandleTestWebhook processes test WhatsApp messages (for development).
// Unlike the real webhook it runs synchronously so the caller sees errors.
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook received from %s: %s", payload.From, payload.Message)

	receivedAt := time.Now()
	if payload.ReceivedAt != nil {
		receivedAt = *payload.ReceivedAt
	}

	if err := h.flow.HandleMessage(payload.From, payload.Message, receivedAt); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{"success": true})
}
