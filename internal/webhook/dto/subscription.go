package webhookDto

import "github.com/flexprice/paysync/internal/api/dto"

type InternalSubscriptionEvent struct {
	SubscriptionID string `json:"subscription_id"`
	TenantID       string `json:"tenant_id"`
}

type SubscriptionWebhookPayload struct {
	EventType    string                    `json:"event_type"`
	Subscription *dto.SubscriptionResponse `json:"subscription"`
}

func NewSubscriptionWebhookPayload(eventType string, sub *dto.SubscriptionResponse) *SubscriptionWebhookPayload {
	return &SubscriptionWebhookPayload{EventType: eventType, Subscription: sub}
}
