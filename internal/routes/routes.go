package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/internal/handler"
	"github.com/msgpilot/backend/internal/middleware"
	"github.com/msgpilot/backend/pkg/jwt"
	"github.com/redis/go-redis/v9"
)

// Setup configures all API routes. redisClient may be nil, which disables
// rate limiting.
func Setup(
	router *gin.Engine,
	billingHandler *handler.BillingHandler,
	webhookHandler *handler.WebhookHandler,
	adminHandler *handler.AdminHandler,
	usageHandler *handler.UsageHandler,
	auditLogger *middleware.AuditLogger,
	jwtManager *jwt.Manager,
	redisClient *redis.Client,
	internalAPIKey string,
) {
	api := router.Group("/api/v1", middleware.I18n())

	// Public catalog
	api.GET("/plans", billingHandler.ListPlans)

	// Processor notifications (authenticated by IP, hash and signature)
	api.POST("/webhooks/paypro", webhookHandler.PayProIPN)

	// Dashboard billing (JWT)
	authed := api.Group("", middleware.JWTAuth(jwtManager))
	billingLimit := middleware.RateLimit(redisClient, middleware.BillingActionRateLimitConfig())

	authed.POST("/checkout", billingLimit, billingHandler.CreateCheckout)
	subscription := authed.Group("/subscription")
	{
		subscription.GET("", billingHandler.GetSubscription)
		subscription.POST("/trial", middleware.Audit(auditLogger, "trial"), billingHandler.StartTrial)
		subscription.POST("/cancel", billingLimit, middleware.Audit(auditLogger, "cancel"), billingHandler.CancelSubscription)
		subscription.POST("/resume", billingLimit, middleware.Audit(auditLogger, "resume"), billingHandler.ResumeSubscription)
	}

	// Operator review
	admin := authed.Group("/admin", middleware.RequireAdmin())
	admin.GET("/billing/events", adminHandler.ListBillingEvents)
	admin.GET("/audit-logs", adminHandler.ListAuditLogs)
	admin.POST("/subscriptions/:user_id/terminate", middleware.Audit(auditLogger, "terminate"), adminHandler.TerminateSubscription)

	// Service-to-service
	internal := router.Group("/internal/v1", middleware.InternalAPIKey(internalAPIKey))
	internal.POST("/usage/messages", usageHandler.ConsumeMessages)
}
