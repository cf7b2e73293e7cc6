package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	_ "github.com/flexprice/paysync/docs/swagger"

	"github.com/flexprice/paysync/internal/api"
	v1 "github.com/flexprice/paysync/internal/api/v1"
	"github.com/flexprice/paysync/internal/auth"
	"github.com/flexprice/paysync/internal/cache"
	"github.com/flexprice/paysync/internal/config"
	"github.com/flexprice/paysync/internal/domain/plan"
	"github.com/flexprice/paysync/internal/httpclient"
	"github.com/flexprice/paysync/internal/idempotency"
	"github.com/flexprice/paysync/internal/integration/paystack"
	"github.com/flexprice/paysync/internal/integration/paystack/webhook"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/postgres"
	pubsubRouter "github.com/flexprice/paysync/internal/pubsub/router"
	"github.com/flexprice/paysync/internal/repository"
	"github.com/flexprice/paysync/internal/sentry"
	"github.com/flexprice/paysync/internal/service"
	"github.com/flexprice/paysync/internal/types"
	"github.com/flexprice/paysync/internal/validator"
	notifications "github.com/flexprice/paysync/internal/webhook"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// @title Paysync API
// @version 1.0
// @description Payment reconciliation and subscription billing over Paystack
// @BasePath /v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		// Validator is package level and must exist before any request
		fx.Invoke(validator.NewValidator),
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Replay cache
			cache.NewInMemoryCache,

			// References
			idempotency.NewGenerator,

			// Plans
			plan.NewCatalog,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Gateway
			paystack.NewClient,
			webhook.NewVerifier,

			// Auth
			auth.NewProvider,

			// PubSub
			pubsubRouter.NewRouter,
		),
		sentry.Module(),
		postgres.Module(),
		repository.Module(),
	)

	// Notification module (must be initialised before services)
	opts = append(opts, notifications.Module)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewReconciliationService,
			service.NewPaymentService,
			service.NewSubscriptionService,
			service.NewInvoiceService,
			service.NewGatewayWebhookService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			startAPIServer,
			startMessageRouter,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	db *postgres.DB,
	verifier *webhook.Verifier,
	paymentService service.PaymentService,
	subscriptionService service.SubscriptionService,
	invoiceService service.InvoiceService,
	gatewayWebhookService service.GatewayWebhookService,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(db, logger),
		Payment:      v1.NewPaymentHandler(paymentService, logger),
		Subscription: v1.NewSubscriptionHandler(subscriptionService, logger),
		Invoice:      v1.NewInvoiceHandler(invoiceService, logger),
		Webhook:      v1.NewWebhookHandler(gatewayWebhookService, verifier.Header(), logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, authProvider auth.Provider, logger *logger.Logger) *gin.Engine {
	if cfg.Logging.Level != types.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(handlers, cfg, authProvider, logger)
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down API server")
			if cfg.Server.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
				defer cancel()
			}
			return srv.Shutdown(ctx)
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	webhookService *notifications.WebhookService,
	logger *logger.Logger,
) {
	// Register handlers before starting the router
	webhookService.RegisterHandler(router)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting message router")
			go func() {
				if err := router.Run(context.Background()); err != nil {
					logger.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping message router")
			if err := router.Close(); err != nil {
				return err
			}
			return webhookService.Stop()
		},
	})
}
