package payload

import (
	"context"
	"encoding/json"

	ierr "github.com/flexprice/paysync/internal/errors"
	webhookDto "github.com/flexprice/paysync/internal/webhook/dto"
)

type SubscriptionPayloadBuilder struct {
	services *Services
}

func NewSubscriptionPayloadBuilder(services *Services) PayloadBuilder {
	return SubscriptionPayloadBuilder{
		services: services,
	}
}

func (b SubscriptionPayloadBuilder) BuildPayload(ctx context.Context, eventType string, data json.RawMessage) (json.RawMessage, error) {
	var parsedPayload webhookDto.InternalSubscriptionEvent

	err := json.Unmarshal(data, &parsedPayload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to unmarshal subscription event payload").
			Mark(ierr.ErrValidation)
	}

	subscriptionID, tenantID := parsedPayload.SubscriptionID, parsedPayload.TenantID
	if subscriptionID == "" || tenantID == "" {
		return nil, ierr.NewError("invalid subscription event").
			WithHint("Please provide a valid subscription ID and tenant ID").
			WithReportableDetails(map[string]any{
				"subscription_id": subscriptionID,
				"tenant_id":       tenantID,
			}).
			Mark(ierr.ErrValidation)
	}

	subscription, err := b.services.SubscriptionService.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	return json.Marshal(webhookDto.NewSubscriptionWebhookPayload(eventType, subscription))
}
