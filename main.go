package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"mailhaven/auth"
	"mailhaven/config"
	"mailhaven/crypto"
	"mailhaven/handlers/api"
	"mailhaven/mail"
	"mailhaven/middleware"
	"mailhaven/scheduler"
	"mailhaven/storage"
	"mailhaven/utils"
)

func main() {
	utils.Log.Info("Initializing mailhaven...")

	cfg, err := config.LoadConfig("config.toml")
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	encryptionKey := crypto.DeriveKey(cfg.Encryption.Secret)
	if cfg.JWT.Secret == "" {
		utils.Log.Warn("no JWT secret configured; issued tokens will not survive a restart")
		secret, err := storage.GenerateSecureToken(32)
		if err != nil {
			utils.Log.Error("Failed to generate JWT secret: %v", err)
			os.Exit(1)
		}
		cfg.JWT.Secret = secret
	}

	db, err := storage.InitDB(cfg.DataDir)
	if err != nil {
		utils.Log.Error("Failed to open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	accountStore := storage.NewAccountStore(db, encryptionKey, cfg.Platform)
	userStore := storage.NewUserStore(db)
	scheduleStore := storage.NewScheduleStore(db)

	hasher := auth.NewHasher(cfg.JWT.Secret, cfg.Auth.PasswordScheme)
	tokens := auth.NewTokenManager(cfg.JWT.Secret)
	authService := auth.NewService(userStore, hasher, tokens, utils.Log)

	sender := mail.NewSMTPSender(cfg.SMTP)
	if !cfg.SMTP.RelayConfigured() {
		utils.Log.Warn("shared SMTP relay is not configured; scheduled sends will fail until it is")
	}

	sched := scheduler.New(scheduleStore, sender, utils.Log)
	if cfg.Scheduler.Enabled {
		sched.Start()
		defer sched.Stop()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	// Add global middleware
	app.Use(recover.New())  // Recover from panics
	app.Use(logger.New())   // Request logging
	app.Use(compress.New()) // Response compression
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "no-referrer",
	}))

	authHandler := api.NewAuthHandler(authService)
	accountHandler := api.NewAccountHandler(accountStore)
	scheduleHandler := api.NewScheduleHandler(scheduleStore)

	// Public routes, rate-limited so credential guessing cannot run hot
	authRoutes := app.Group("/api/auth", middleware.RateLimiter(20, time.Minute))
	authRoutes.Post("/signup", authHandler.Signup)
	authRoutes.Post("/login", authHandler.Login)

	// Protected routes group
	protected := app.Group("/api", middleware.RequireAuth(tokens))
	{
		protected.Post("/accounts", accountHandler.CreateAccount)
		protected.Get("/accounts", accountHandler.GetAccounts)
		protected.Get("/accounts/active", accountHandler.GetActiveAccount)
		protected.Post("/accounts/test", accountHandler.TestConnection)
		protected.Post("/accounts/:id/activate", accountHandler.ActivateAccount)
		protected.Put("/accounts/:id/password", accountHandler.UpdatePassword)
		protected.Delete("/accounts/:id", accountHandler.DeleteAccount)

		protected.Post("/schedule", scheduleHandler.ScheduleEmail)
		protected.Get("/schedule", scheduleHandler.GetScheduledEmails)
		protected.Delete("/schedule/:id", scheduleHandler.CancelScheduledEmail)
	}

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Shut down cleanly on SIGINT/SIGTERM: stop accepting requests,
	// then let the deferred scheduler Stop drain any in-flight tick.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		utils.Log.Info("shutting down...")
		_ = app.Shutdown()
	}()

	utils.Log.Info("Starting server on port %d...", cfg.Server.Port)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		utils.Log.Error("Error starting server: %v", err)
	}
}

// errorHandler maps service errors onto HTTP responses. Ownership
// mismatches answer as 404 so one user cannot probe for another's
// record ids; vault and transport failures stay opaque to callers.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var appErr *utils.AppError
	var fiberErr *fiber.Error
	var transportErr *utils.TransportError

	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		if code >= 500 {
			utils.Log.Error("Application error: %v", appErr)
		}
	case errors.Is(err, utils.ErrNotFound), errors.Is(err, utils.ErrUnauthorized):
		code = fiber.StatusNotFound
		message = "not found"
	case errors.Is(err, utils.ErrAlreadyExists):
		code = fiber.StatusConflict
		message = "already exists"
	case errors.Is(err, utils.ErrInvalidCredentials):
		code = fiber.StatusUnauthorized
		message = "invalid email or password"
	case errors.Is(err, utils.ErrCorruptCiphertext):
		utils.Log.Error("Vault decrypt failure (was the encryption secret rotated?): %v", err)
		message = "internal error"
	case errors.As(err, &transportErr):
		utils.Log.Error("Transport failure: %v", transportErr)
		code = fiber.StatusBadGateway
		message = "mail transport failure"
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	default:
		utils.Log.Error("Unhandled error: %v", err)
		message = "internal error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
