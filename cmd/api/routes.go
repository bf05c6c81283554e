package main

import (
	"github.com/gofiber/fiber/v2"

	"corretor_backend/internal/controller"
	"corretor_backend/internal/middleware"
	"corretor_backend/pkg/config"
	"corretor_backend/pkg/metrics"
)

func setupRoutes(app *fiber.App, cfg *config.Config) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.LoginLimiter(), controller.Register)
	auth.Post("/login", middleware.LoginLimiter(), controller.Login)

	// Public Routes
	api.Get("/properties", middleware.OptionalAuth(), controller.ListProperties)
	api.Get("/properties/featured", controller.GetFeaturedProperties)
	api.Get("/properties/:id", middleware.OptionalAuth(), controller.GetProperty)
	api.Get("/properties/:id/images", middleware.LoadProperty(), controller.ListPropertyImages)
	api.Post("/leads", middleware.PublicFormLimiter(), controller.CreateLead)
	api.Get("/reviews", controller.ListReviews)
	api.Post("/analytics/events", middleware.PublicFormLimiter(), controller.TrackEvent)

	// WhatsApp automation routes
	integration := api.Group("/integration", middleware.IntegrationAuth(cfg.Integration.Secret))
	integration.Post("/whatsapp/messages", controller.IngestWhatsAppMessage)
	integration.Get("/whatsapp/messages/pending", controller.ListPendingMessages)
	integration.Put("/whatsapp/messages/:messageId/processed", controller.MarkMessageProcessed)
	integration.Post("/leads", controller.SaveWhatsAppLead)
	integration.Post("/ai-context", controller.SaveAIContext)
	integration.Get("/history", controller.GetAIHistory)
	integration.Post("/client-interests", controller.SaveClientInterest)
	integration.Post("/match-properties", controller.MatchPropertiesForClient)
	integration.Post("/qualification", controller.UpdateLeadQualification)
	integration.Get("/webhook-logs", controller.GetWebhookLogs)

	// Protected Routes. Everything mounted below this point needs a token.
	protected := api.Group("", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)
	protected.Put("/me", controller.UpdateProfile)

	leads := protected.Group("/leads")
	leads.Get("/", controller.ListLeads)
	leads.Get("/follow-up", controller.GetFollowUpLeads)
	leads.Get("/stage/:stage", controller.GetLeadsByStage)
	leads.Get("/:id", controller.GetLead)
	leads.Get("/:id/matches", controller.GetLeadMatches)
	leads.Put("/:id", controller.UpdateLead)
	leads.Put("/:id/stage", controller.UpdateLeadStage)
	leads.Get("/:id/interactions", controller.ListInteractions)
	leads.Post("/:id/interactions", controller.CreateInteraction)

	owners := protected.Group("/owners")
	owners.Get("/", controller.ListOwners)
	owners.Get("/search", controller.SearchOwners)
	owners.Get("/:id", controller.GetOwner)

	// Admin Routes
	admin := protected.Group("", middleware.RequireAdmin())

	admin.Post("/properties", controller.CreateProperty)
	admin.Put("/properties/:id", controller.UpdateProperty)
	admin.Delete("/properties/:id", controller.DeleteProperty)
	admin.Post("/properties/:id/images", middleware.LoadProperty(), controller.AddPropertyImage)
	admin.Post("/properties/:id/images/upload", middleware.LoadProperty(), controller.UploadPropertyImage)
	admin.Put("/property-images/:id/primary", controller.SetPrimaryImage)
	admin.Put("/property-images/:id/order", controller.UpdateImageOrder)
	admin.Delete("/property-images/:id", controller.DeletePropertyImage)

	admin.Delete("/leads/:id", controller.DeleteLead)

	admin.Post("/owners", controller.CreateOwner)
	admin.Put("/owners/:id", controller.UpdateOwner)
	admin.Delete("/owners/:id", controller.DeleteOwner)

	admin.Get("/admin/reviews", controller.ListAllReviews)
	admin.Post("/admin/reviews", controller.CreateReview)
	admin.Put("/admin/reviews/:id/approve", controller.ApproveReview)
	admin.Delete("/admin/reviews/:id", controller.DeleteReview)

	admin.Get("/dashboard/stats", controller.GetDashboardStats)
	admin.Get("/analytics/metrics", controller.GetAnalyticsMetrics)
	admin.Get("/analytics/campaigns", controller.ListCampaigns)
	admin.Post("/analytics/campaigns", controller.CreateCampaign)

	admin.Get("/financial/transactions", controller.ListTransactions)
	admin.Post("/financial/transactions", controller.CreateTransaction)
	admin.Get("/financial/commissions", controller.ListCommissions)
	admin.Post("/financial/commissions", controller.CreateCommission)
	admin.Get("/financial/summary", controller.GetFinancialSummary)
}
