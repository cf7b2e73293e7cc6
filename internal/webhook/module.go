package webhook

import (
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/pubsub"
	"github.com/flexprice/paysync/internal/pubsub/memory"
	"github.com/flexprice/paysync/internal/service"
	"github.com/flexprice/paysync/internal/webhook/handler"
	"github.com/flexprice/paysync/internal/webhook/payload"
	"github.com/flexprice/paysync/internal/webhook/publisher"
	"go.uber.org/fx"
)

// Module provides all webhook-related dependencies
var Module = fx.Options(
	fx.Provide(
		// PubSub carrying notification events
		providePubSub,
	),

	fx.Provide(
		publisher.NewPublisher,
		handler.NewHandler,
		providePayloadBuilderFactory,
		NewWebhookService,
	),
)

// providePayloadBuilderFactory creates a new payload builder factory with all required services
func providePayloadBuilderFactory(
	paymentService service.PaymentService,
	subscriptionService service.SubscriptionService,
	invoiceService service.InvoiceService,
) payload.PayloadBuilderFactory {
	services := payload.NewServices(
		paymentService,
		subscriptionService,
		invoiceService,
	)
	return payload.NewPayloadBuilderFactory(services)
}

func providePubSub(logger *logger.Logger) pubsub.PubSub {
	return memory.NewPubSub(logger)
}
