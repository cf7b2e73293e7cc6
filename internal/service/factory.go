package service

import (
	"github.com/flexprice/paysync/internal/cache"
	"github.com/flexprice/paysync/internal/config"
	"github.com/flexprice/paysync/internal/domain/invoice"
	"github.com/flexprice/paysync/internal/domain/payment"
	"github.com/flexprice/paysync/internal/domain/plan"
	"github.com/flexprice/paysync/internal/domain/subscription"
	"github.com/flexprice/paysync/internal/idempotency"
	"github.com/flexprice/paysync/internal/integration/paystack"
	"github.com/flexprice/paysync/internal/integration/paystack/webhook"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/postgres"
	"github.com/flexprice/paysync/internal/sentry"
	webhookPublisher "github.com/flexprice/paysync/internal/webhook/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Sentry *sentry.Service

	// Repositories
	PaymentRepo payment.Repository
	SubRepo     subscription.Repository
	InvoiceRepo invoice.Repository
	PlanCatalog plan.Catalog

	// Gateway
	Gateway         paystack.PaystackClient
	WebhookVerifier *webhook.Verifier

	// Replay cache and key generation
	Cache       cache.Cache
	Idempotency *idempotency.Generator

	// Publishers
	WebhookPublisher webhookPublisher.WebhookPublisher
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentry.Service,
	paymentRepo payment.Repository,
	subRepo subscription.Repository,
	invoiceRepo invoice.Repository,
	planCatalog plan.Catalog,
	gateway paystack.PaystackClient,
	webhookVerifier *webhook.Verifier,
	cache cache.Cache,
	idempotency *idempotency.Generator,
	webhookPublisher webhookPublisher.WebhookPublisher,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		Sentry:           sentry,
		PaymentRepo:      paymentRepo,
		SubRepo:          subRepo,
		InvoiceRepo:      invoiceRepo,
		PlanCatalog:      planCatalog,
		Gateway:          gateway,
		WebhookVerifier:  webhookVerifier,
		Cache:            cache,
		Idempotency:      idempotency,
		WebhookPublisher: webhookPublisher,
	}
}
