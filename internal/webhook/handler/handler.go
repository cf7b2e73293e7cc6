package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/paysync/internal/config"
	"github.com/flexprice/paysync/internal/httpclient"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/pubsub"
	pubsubRouter "github.com/flexprice/paysync/internal/pubsub/router"
	"github.com/flexprice/paysync/internal/types"
	"github.com/flexprice/paysync/internal/webhook/payload"
	"github.com/samber/lo"
)

// DeliveryHeader carries the delivery id so receivers can drop repeats
const DeliveryHeader = "X-Paysync-Delivery"

// Handler interface for processing webhook events
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

// Delivery is the body posted to a tenant endpoint
type Delivery struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_name"`
	TenantID  string          `json:"tenant_id"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// handler delivers published events to tenant endpoints
type handler struct {
	pubSub  pubsub.PubSub
	config  *config.Webhook
	factory payload.PayloadBuilderFactory
	client  httpclient.Client
	logger  *logger.Logger
}

// NewHandler creates a new notification handler
func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	factory payload.PayloadBuilderFactory,
	client httpclient.Client,
	logger *logger.Logger,
) (Handler, error) {
	return &handler{
		pubSub:  pubSub,
		config:  &cfg.Webhook,
		factory: factory,
		client:  client,
		logger:  logger,
	}, nil
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"webhook_handler",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// processMessage processes a single webhook message
func (h *handler) processMessage(msg *message.Message) error {
	var event types.WebhookEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal webhook event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil // Don't retry on unmarshal errors
	}

	ctx := msg.Context()
	ctx = types.SetTenantID(ctx, event.TenantID)
	ctx = types.SetUserID(ctx, event.UserID)

	return h.deliver(ctx, &event, msg.UUID)
}

// deliver posts event to the tenant's endpoint when one is configured
func (h *handler) deliver(ctx context.Context, event *types.WebhookEvent, messageUUID string) error {
	tenantCfg, ok := h.config.Tenants[event.TenantID]
	if !ok {
		h.logger.Debugw("no webhook endpoint configured for tenant",
			"tenant_id", event.TenantID,
			"message_uuid", messageUUID,
		)
		return nil
	}

	if !tenantCfg.Enabled || tenantCfg.Endpoint == "" {
		h.logger.Debugw("webhooks disabled for tenant",
			"tenant_id", event.TenantID,
			"message_uuid", messageUUID,
		)
		return nil
	}

	if lo.Contains(tenantCfg.ExcludedEvents, event.EventName) {
		h.logger.Debugw("event excluded for tenant",
			"tenant_id", event.TenantID,
			"event", event.EventName,
		)
		return nil
	}

	builder, err := h.factory.GetBuilder(event.EventName)
	if err != nil {
		return err
	}

	data, err := builder.BuildPayload(ctx, event.EventName, event.Payload)
	if err != nil {
		return err
	}

	delivery := Delivery{
		ID:        types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_DELIVERY),
		EventName: event.EventName,
		TenantID:  event.TenantID,
		CreatedAt: event.Timestamp,
		Data:      data,
	}
	body, err := json.Marshal(delivery)
	if err != nil {
		return err
	}

	headers := lo.Assign(tenantCfg.Headers, map[string]string{
		"Content-Type": "application/json",
		DeliveryHeader: delivery.ID,
	})

	resp, err := h.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     tenantCfg.Endpoint,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		h.logger.Errorw("failed to send webhook",
			"error", err,
			"delivery_id", delivery.ID,
			"message_uuid", messageUUID,
			"tenant_id", event.TenantID,
			"event", event.EventName,
		)
		return err
	}

	h.logger.Infow("webhook sent successfully",
		"delivery_id", delivery.ID,
		"message_uuid", messageUUID,
		"tenant_id", event.TenantID,
		"event", event.EventName,
		"status_code", resp.StatusCode,
	)

	return nil
}
