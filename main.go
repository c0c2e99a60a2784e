package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/database"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/jobs"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/models"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/routes"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/services"
	"github.com/1hm544i5f1ll1/schoolwhatsadmission-bot/internal/storage"
)

func main() {
	// Load .env file for local development
	err := godotenv.Load(".env")
	if err != nil {
		err = godotenv.Load("environments/.env.development")
		if err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	// Initialize storage
	var store storage.Store

	// Check if we should use memory store (for testing)
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		// Connect to database
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		// Run migrations
		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Student{},
			&models.StudentContactInfo{},
			&models.Guardian{},
			&models.Appointment{},
			&models.UserMessage{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Initialize Twilio service
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Fatal("Failed to initialize Twilio service:", err)
	}
	log.Println("✅ Twilio service initialized")

	// Initialize oracle client
	oracle, err := services.NewHTTPOracle()
	if err != nil {
		log.Fatal("Failed to initialize oracle client:", err)
	}
	log.Println("✅ Oracle client initialized")

	// Load the FAQ knowledge document
	knowledgePath := os.Getenv("KNOWLEDGE_FILE")
	if knowledgePath == "" {
		knowledgePath = "input.txt"
	}
	knowledge := services.LoadKnowledge(knowledgePath)

	// Set global instances
	storage.SetStore(store)
	services.SetTwilioService(twilioService)

	// Wire up the conversation flow
	sessions := services.NewSessionStore()
	allocator := services.NewSlotAllocator(store)
	flow := services.NewFlow(store, sessions, oracle, twilioService, allocator, knowledge)

	// Start the appointment reminder job
	reminderJob := jobs.NewReminderJob(store, twilioService)
	reminderJob.Start()

	log.Println("✅ All services initialized and scheduled jobs started")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "School Admission Bot v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Per-sender rate limiting on the webhook: one user cannot flood the bot
	app.Use("/webhook", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if from := c.FormValue("From"); from != "" {
				return from
			}
			return c.IP()
		},
	}))

	// Root endpoint with service status
	app.Get("/", func(c *fiber.Ctx) error {
		response := fiber.Map{
			"service": "School Admission Bot",
			"version": "1.0.0",
			"status":  "healthy",
			"storage": getStorageType(),
			"whatsapp": fiber.Map{
				"configured": os.Getenv("TWILIO_ACCOUNT_SID") != "",
			},
		}

		// Add database status if using database
		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			dbStatus := "connected"
			if err != nil {
				dbStatus = "error: " + err.Error()
			} else if err := sqlDB.Ping(); err != nil {
				dbStatus = "error: " + err.Error()
			}

			var studentCount, appointmentCount int64
			database.DB.Model(&models.Student{}).Count(&studentCount)
			database.DB.Model(&models.Appointment{}).Count(&appointmentCount)

			response["database"] = fiber.Map{
				"status":       dbStatus,
				"students":     studentCount,
				"appointments": appointmentCount,
			}
		}

		response["services"] = fiber.Map{
			"sessions":  sessions.Count(),
			"reminders": "running",
		}

		return c.JSON(response)
	})

	// Setup routes
	routes.SetupRoutes(app, store, sessions, flow)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping reminder job...")
		reminderJob.Stop()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 School Admission Bot starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("📱 WhatsApp: %s", getWhatsAppStatus())
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getWhatsAppStatus() string {
	if os.Getenv("TWILIO_ACCOUNT_SID") == "" {
		return "Not configured"
	}
	return "Configured"
}
