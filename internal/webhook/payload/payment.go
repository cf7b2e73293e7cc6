package payload

import (
	"context"
	"encoding/json"

	ierr "github.com/flexprice/paysync/internal/errors"
	webhookDto "github.com/flexprice/paysync/internal/webhook/dto"
)

type PaymentPayloadBuilder struct {
	services *Services
}

func NewPaymentPayloadBuilder(services *Services) PayloadBuilder {
	return &PaymentPayloadBuilder{services: services}
}

func (b *PaymentPayloadBuilder) BuildPayload(ctx context.Context, eventType string, data json.RawMessage) (json.RawMessage, error) {
	var parsedPayload webhookDto.InternalPaymentEvent

	err := json.Unmarshal(data, &parsedPayload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to unmarshal payment event payload").
			Mark(ierr.ErrValidation)
	}

	reference, tenantID := parsedPayload.Reference, parsedPayload.TenantID
	if reference == "" || tenantID == "" {
		return nil, ierr.NewError("invalid payment event").
			WithHint("Please provide a valid payment reference and tenant ID").
			WithReportableDetails(map[string]any{
				"reference": reference,
				"tenant_id": tenantID,
			}).
			Mark(ierr.ErrValidation)
	}

	payment, err := b.services.PaymentService.GetPayment(ctx, reference)
	if err != nil {
		return nil, err
	}

	return json.Marshal(webhookDto.NewPaymentWebhookPayload(eventType, payment))
}
