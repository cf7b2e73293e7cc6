package dto

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// WebhookAckResponse acknowledges a gateway webhook delivery
type WebhookAckResponse struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
}

// webhook acknowledgement outcomes
const (
	WebhookStatusProcessed = "processed"
	WebhookStatusDuplicate = "duplicate"
	WebhookStatusIgnored   = "ignored"
)
