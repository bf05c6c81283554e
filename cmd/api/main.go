package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"corretor_backend/internal/controller"
	"corretor_backend/internal/model"
	"corretor_backend/pkg/config"
	"corretor_backend/pkg/cron"
	"corretor_backend/pkg/database"
	"corretor_backend/pkg/email"
	"corretor_backend/pkg/metrics"
	"corretor_backend/pkg/seed"
	"corretor_backend/pkg/utils/jwt"
	"corretor_backend/pkg/utils/storage"
)

func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Server.BodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Printf("[API] %s %s: %v", c.Method(), c.Path(), err)
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Integration-Secret, X-Signature",
	}))
	app.Use(metrics.Middleware())

	setupRoutes(app, cfg)
	return app
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Could not load configuration:", err)
	}

	jwt.Configure(cfg.JWT.Secret, cfg.JWT.TTL)

	if err := email.InitEmailService(cfg.Email); err != nil {
		log.Printf("Email service disabled: %v", err)
	}

	if err := database.InitDB(cfg.Database); err != nil {
		log.Fatal("Could not connect to database:", err)
	}
	if err := database.MigrateDatabase(database.GetDB(), model.All()...); err != nil {
		log.Fatal("Could not migrate database:", err)
	}

	seed.SeedAdmin(database.GetDB(), cfg.Seed)
	if !cfg.IsProduction() {
		seed.SeedDemoProperties(database.GetDB())
	}

	var uploader storage.Uploader
	s3Storage, err := storage.NewS3Storage(context.Background(), cfg.Storage)
	if err != nil {
		log.Printf("Image uploads disabled: %v", err)
	} else {
		uploader = s3Storage
	}
	controller.Init(cfg.Integration.PublicSiteURL, cfg.Seed.AdminEmail, uploader)

	if cfg.Cron.Enabled {
		scheduler, err := cron.InitLeadMetricsCron(database.GetDB(), cfg.Cron.MetricsSpec)
		if err != nil {
			log.Printf("Could not initialize lead metrics cron: %v", err)
		} else {
			defer scheduler.Stop()
		}
	}

	app := newApp(cfg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server is running on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
