package api

import (
	v1 "github.com/flexprice/paysync/internal/api/v1"
	"github.com/flexprice/paysync/internal/auth"
	"github.com/flexprice/paysync/internal/config"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/rest/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Payment      *v1.PaymentHandler
	Subscription *v1.SubscriptionHandler
	Invoice      *v1.InvoiceHandler
	Webhook      *v1.WebhookHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, authProvider auth.Provider, logger *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	public := router.Group("/v1")
	{
		webhooks := public.Group("/webhooks")
		webhooks.Use(middleware.RateLimitMiddleware(cfg.Webhook.RateLimitPerMinute, logger))
		webhooks.POST("/paystack", handlers.Webhook.HandlePaystackWebhook)
	}

	private := router.Group("/v1")
	private.Use(middleware.AuthenticateMiddleware(authProvider, logger))
	{
		payments := private.Group("/payments")
		{
			payments.POST("/initialize", handlers.Payment.InitializePayment)
			payments.GET("/verify/:reference", handlers.Payment.VerifyPayment)
			payments.GET("", handlers.Payment.ListPayments)
			payments.GET("/:reference", handlers.Payment.GetPayment)
		}

		subscriptions := private.Group("/subscriptions")
		{
			subscriptions.POST("/upgrade", handlers.Subscription.UpgradeSubscription)
			subscriptions.GET("/current", handlers.Subscription.GetCurrentSubscription)
			subscriptions.GET("", handlers.Subscription.ListSubscriptions)
			subscriptions.GET("/:id", handlers.Subscription.GetSubscription)
		}

		invoices := private.Group("/invoices")
		{
			invoices.GET("", handlers.Invoice.ListInvoices)
			invoices.GET("/:id", handlers.Invoice.GetInvoice)
		}
	}

	return router
}
