package service

import (
	"context"

	"github.com/flexprice/paysync/internal/api/dto"
	"github.com/flexprice/paysync/internal/cache"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/integration/paystack/webhook"
	"github.com/flexprice/paysync/internal/types"
)

// GatewayWebhookService handles deliveries pushed by the payment gateway
type GatewayWebhookService interface {
	// HandlePaystackWebhook authenticates rawBody against signature and feeds
	// charge results into reconciliation. Nothing is read or written before
	// the signature checks out.
	HandlePaystackWebhook(ctx context.Context, rawBody []byte, signature string) (*dto.WebhookAckResponse, error)
}

type gatewayWebhookService struct {
	ServiceParams
	reconciler ReconciliationService
}

func NewGatewayWebhookService(params ServiceParams, reconciler ReconciliationService) GatewayWebhookService {
	return &gatewayWebhookService{
		ServiceParams: params,
		reconciler:    reconciler,
	}
}

func (s *gatewayWebhookService) HandlePaystackWebhook(ctx context.Context, rawBody []byte, signature string) (*dto.WebhookAckResponse, error) {
	if !s.WebhookVerifier.Verify(rawBody, signature) {
		s.Logger.Warnw("rejected paystack webhook with invalid signature",
			"request_id", types.GetRequestID(ctx),
			"signature_present", signature != "",
			"body_size", len(rawBody))
		s.Sentry.CaptureSecurityEvent(ctx, "paystack webhook signature verification failed", map[string]string{
			"provider":   "paystack",
			"request_id": types.GetRequestID(ctx),
		})
		return nil, ierr.NewError("invalid webhook signature").
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrSignatureInvalid)
	}

	deliveryKey := cache.PrefixWebhookDelivery + s.Idempotency.DeliveryKey(rawBody)
	if s.seen(ctx, deliveryKey) {
		s.Logger.Infow("duplicate paystack webhook delivery acknowledged", "delivery_key", deliveryKey)
		return ack(dto.WebhookStatusDuplicate), nil
	}

	event, err := webhook.Parse(rawBody)
	if err != nil {
		s.Logger.Warnw("malformed paystack webhook", "error", err)
		return nil, err
	}

	switch ev := event.(type) {
	case *webhook.ChargeSuccess:
		reference := ev.Reference()
		result, err := s.reconciler.Reconcile(ctx, reference, ev.Outcome())
		if err != nil {
			if ierr.IsNotFound(err) {
				// not one of ours, acknowledge so the gateway stops retrying
				s.Logger.Warnw("paystack webhook for unknown payment", "reference", reference)
				s.remember(ctx, deliveryKey)
				return ack(dto.WebhookStatusIgnored), nil
			}
			s.Logger.Errorw("failed to reconcile paystack webhook",
				"reference", reference,
				"error", err)
			return nil, err
		}

		s.Logger.Infow("processed paystack webhook",
			"event", ev.EventType(),
			"reference", reference,
			"applied", result.Applied,
			"status", result.Payment.Status)
		s.remember(ctx, deliveryKey)
		return ack(dto.WebhookStatusProcessed), nil

	case *webhook.UnknownEvent:
		s.Logger.Infow("ignoring unhandled paystack webhook event", "event", ev.EventType())
		s.remember(ctx, deliveryKey)
		return ack(dto.WebhookStatusIgnored), nil

	default:
		return ack(dto.WebhookStatusIgnored), nil
	}
}

func (s *gatewayWebhookService) seen(ctx context.Context, key string) bool {
	span := cache.StartCacheSpan(ctx, "webhook_delivery", "get", map[string]interface{}{"key": key})
	defer cache.FinishSpan(span)

	_, found := s.Cache.Get(ctx, key)
	cache.SetSpanSuccess(span)
	return found
}

func (s *gatewayWebhookService) remember(ctx context.Context, key string) {
	span := cache.StartCacheSpan(ctx, "webhook_delivery", "set", map[string]interface{}{"key": key})
	defer cache.FinishSpan(span)

	s.Cache.Set(ctx, key, true, s.Config.Webhook.ReplayTTL)
	cache.SetSpanSuccess(span)
}

func ack(status string) *dto.WebhookAckResponse {
	return &dto.WebhookAckResponse{Received: true, Status: status}
}
