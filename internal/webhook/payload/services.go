package payload

import "github.com/flexprice/paysync/internal/service"

// Services container for all services needed by payload builders
type Services struct {
	PaymentService      service.PaymentService
	SubscriptionService service.SubscriptionService
	InvoiceService      service.InvoiceService
}

// NewServices creates a new Services container
func NewServices(
	paymentService service.PaymentService,
	subscriptionService service.SubscriptionService,
	invoiceService service.InvoiceService,
) *Services {
	return &Services{
		PaymentService:      paymentService,
		SubscriptionService: subscriptionService,
		InvoiceService:      invoiceService,
	}
}
