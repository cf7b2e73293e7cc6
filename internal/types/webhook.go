package types

import (
	"encoding/json"
	"time"
)

// WebhookEvent represents an outbound notification delivered to a tenant
type WebhookEvent struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_name"`
	TenantID  string          `json:"tenant_id"`
	UserID    string          `json:"user_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// payment event names
const (
	WebhookEventPaymentSuccess = "payment.success"
	WebhookEventPaymentFailed  = "payment.failed"
)

// subscription event names
const (
	WebhookEventSubscriptionActivated = "subscription.activated"
	WebhookEventSubscriptionCancelled = "subscription.cancelled"
)

// invoice event names
const (
	WebhookEventInvoicePaid = "invoice.paid"
)
