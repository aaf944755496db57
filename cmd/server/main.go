// Command server runs the no-dues clearance API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avissapr/nodues/internal/certificates"
	"github.com/avissapr/nodues/internal/clearance"
	"github.com/avissapr/nodues/internal/config"
	"github.com/avissapr/nodues/internal/database"
	"github.com/avissapr/nodues/internal/handlers"
	"github.com/avissapr/nodues/internal/metrics"
	"github.com/avissapr/nodues/internal/middleware"
	"github.com/avissapr/nodues/internal/models"
	"github.com/avissapr/nodues/internal/notify"
	"github.com/avissapr/nodues/internal/repository"
	"github.com/avissapr/nodues/internal/security"
	"github.com/avissapr/nodues/internal/services"
	"github.com/avissapr/nodues/internal/store"
)

func main() {
	logger := security.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Critical("failed to load configuration", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Critical("failed to run migrations", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.Connect(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	cancel()
	if err != nil {
		logger.Critical("failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	secCfg := security.DefaultSecurityConfig()
	secCfg.SessionSecure = cfg.SessionSecureCookie

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	notifier := notify.NewManager(cfg.NotifyBufferSize, logger)
	notifier.Start()
	defer notifier.Stop()

	records := store.NewPGStore(db)
	pipeline := certificates.NewPipeline(certificates.NewPDFRenderer(), certificates.Config{
		OutputDir:       cfg.CertificateDir,
		MaxConcurrent:   cfg.CertMaxConcurrent,
		RenderTimeout:   cfg.CertRenderTimeout,
		MaxArtifactSize: cfg.CertMaxArtifactMB << 20,
	}, logger, m)

	svc := clearance.NewService(records, pipeline, notifier, logger, m)

	employees := repository.NewEmployeeRepository(db)
	auth := services.NewAuthService(employees, secCfg)
	validator := security.NewValidationService(secCfg)
	lockout := security.NewAccountLockout(secCfg.AccountLockoutThreshold, secCfg.AccountLockoutDuration)

	sessions := session.New(session.Config{
		Expiration:     secCfg.SessionTimeout,
		KeyLookup:      "cookie:" + secCfg.SessionCookieName,
		CookieSecure:   secCfg.SessionSecure,
		CookieHTTPOnly: secCfg.SessionHTTPOnly,
		CookieSameSite: secCfg.SessionSameSite,
	})

	loginLimiter := security.NewRateLimiter(secCfg.LoginRateLimit, time.Minute/time.Duration(secCfg.LoginRateLimit))
	submitLimiter := security.NewRateLimiter(secCfg.RateLimitSubmit, time.Hour/time.Duration(secCfg.RateLimitSubmit))
	subFormLimiter := security.NewRateLimiter(secCfg.RateLimitSubForm, time.Minute/time.Duration(secCfg.RateLimitSubForm))
	downloadLimiter := security.NewRateLimiter(secCfg.RateLimitDownload, time.Minute/time.Duration(secCfg.RateLimitDownload))
	defer func() {
		loginLimiter.Stop()
		submitLimiter.Stop()
		subFormLimiter.Stop()
		downloadLimiter.Stop()
	}()

	authHandler := handlers.NewAuthHandler(auth, sessions, lockout, validator, logger)
	employeeHandler := handlers.NewEmployeeHandler(svc, validator, secCfg, logger)
	adminHandler := handlers.NewAdminHandler(svc, validator, logger)

	app := fiber.New(fiber.Config{
		AppName:   "nodues",
		BodyLimit: secCfg.MaxUploadSize,
	})
	app.Use(recover.New())
	app.Use(requestLogger(logger))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := app.Group("/api")
	api.Post("/auth/login", middleware.RateLimit(loginLimiter, logger), authHandler.Login)
	api.Post("/auth/logout", authHandler.Logout)

	authed := api.Group("", middleware.AuthRequired(sessions, logger))
	authed.Get("/auth/me", authHandler.Me)

	authed.Post("/applications", middleware.RateLimit(submitLimiter, logger), employeeHandler.Submit)
	authed.Post("/applications/forms/:formName", middleware.RateLimit(subFormLimiter, logger), employeeHandler.SaveSubForm)
	authed.Post("/applications/final-submit", employeeHandler.FinalSubmit)
	authed.Get("/applications/current", employeeHandler.Tracking)
	authed.Get("/certificates", employeeHandler.Certificates)
	authed.Get("/certificates/:id/download", middleware.RateLimit(downloadLimiter, logger), employeeHandler.DownloadCertificate)
	authed.Get("/history", employeeHandler.History)

	staff := authed.Group("/admin", middleware.RoleRequired(logger, models.RoleHOD, models.RoleIT))
	staff.Get("/applications", adminHandler.ListApplications)
	staff.Get("/applications/:id", adminHandler.GetApplication)
	staff.Post("/applications/:id/forms", adminHandler.AssignForms)
	staff.Post("/applications/:id/reject", adminHandler.Reject)

	hod := authed.Group("/hod", middleware.RoleRequired(logger, models.RoleHOD))
	hod.Post("/applications/:id/approve", adminHandler.ApproveHOD)

	it := authed.Group("/it", middleware.RoleRequired(logger, models.RoleIT))
	it.Post("/applications/:id/process", adminHandler.ProcessIT)

	authed.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	authed.Get("/ws/notifications", websocket.New(func(conn *websocket.Conn) {
		notifier.HandleWebSocket(conn)
	}))

	go func() {
		logger.Info("server listening on :" + cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Critical("server stopped", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown failed", err)
	}
}

// requestLogger emits one structured line per handled request.
func requestLogger(logger *security.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.HTTPRequest(c.Method(), c.Path(), c.Response().StatusCode(),
			time.Since(start).Milliseconds(), c.IP(), c.Get(fiber.HeaderUserAgent))
		return err
	}
}
