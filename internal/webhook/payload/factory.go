package payload

import (
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
)

// PayloadBuilderFactory interface for getting event-specific payload builders
type PayloadBuilderFactory interface {
	GetBuilder(eventType string) (PayloadBuilder, error)
}

type payloadBuilderFactory struct {
	builders map[string]func() PayloadBuilder
	services *Services
}

// NewPayloadBuilderFactory creates a new factory with registered builders
func NewPayloadBuilderFactory(services *Services) PayloadBuilderFactory {
	f := &payloadBuilderFactory{
		builders: make(map[string]func() PayloadBuilder),
		services: services,
	}

	// payment builders
	f.builders[types.WebhookEventPaymentSuccess] = func() PayloadBuilder {
		return NewPaymentPayloadBuilder(f.services)
	}
	f.builders[types.WebhookEventPaymentFailed] = func() PayloadBuilder {
		return NewPaymentPayloadBuilder(f.services)
	}

	// subscription builders
	f.builders[types.WebhookEventSubscriptionActivated] = func() PayloadBuilder {
		return NewSubscriptionPayloadBuilder(f.services)
	}
	f.builders[types.WebhookEventSubscriptionCancelled] = func() PayloadBuilder {
		return NewSubscriptionPayloadBuilder(f.services)
	}

	// invoice builders
	f.builders[types.WebhookEventInvoicePaid] = func() PayloadBuilder {
		return NewInvoicePayloadBuilder(f.services)
	}

	return f
}

// GetBuilder returns a payload builder for the given event type
func (f *payloadBuilderFactory) GetBuilder(eventType string) (PayloadBuilder, error) {
	builderFn, ok := f.builders[eventType]
	if !ok {
		return nil, ierr.NewErrorf("no builder registered for event type: %s", eventType).
			WithHint("Unsupported notification event").
			WithReportableDetails(map[string]any{"event_type": eventType}).
			Mark(ierr.ErrValidation)
	}

	return builderFn(), nil
}
