package webhookDto

import "github.com/flexprice/paysync/internal/api/dto"

type InternalPaymentEvent struct {
	Reference string `json:"reference"`
	TenantID  string `json:"tenant_id"`
}

type PaymentWebhookPayload struct {
	EventType string               `json:"event_type"`
	Payment   *dto.PaymentResponse `json:"payment"`
}

func NewPaymentWebhookPayload(eventType string, payment *dto.PaymentResponse) *PaymentWebhookPayload {
	return &PaymentWebhookPayload{EventType: eventType, Payment: payment}
}
