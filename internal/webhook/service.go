package webhook

import (
	"fmt"

	"github.com/flexprice/paysync/internal/config"
	"github.com/flexprice/paysync/internal/logger"
	pubsubRouter "github.com/flexprice/paysync/internal/pubsub/router"
	"github.com/flexprice/paysync/internal/webhook/handler"
	"github.com/flexprice/paysync/internal/webhook/publisher"
)

// WebhookService orchestrates outbound tenant notifications
type WebhookService struct {
	config    *config.Configuration
	publisher publisher.WebhookPublisher
	handler   handler.Handler
	logger    *logger.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	cfg *config.Configuration,
	publisher publisher.WebhookPublisher,
	h handler.Handler,
	l *logger.Logger,
) *WebhookService {
	return &WebhookService{
		config:    cfg,
		publisher: publisher,
		handler:   h,
		logger:    l,
	}
}

// RegisterHandler subscribes the delivery handler on router
func (s *WebhookService) RegisterHandler(router *pubsubRouter.Router) {
	if !s.config.Webhook.Enabled {
		s.logger.Info("webhook notifications disabled")
		return
	}

	s.handler.RegisterHandler(router)
	s.logger.Infow("webhook notifications enabled",
		"topic", s.config.Webhook.Topic,
		"tenants", len(s.config.Webhook.Tenants))
}

// Stop closes the publisher
func (s *WebhookService) Stop() error {
	s.logger.Debug("stopping webhook service")

	if err := s.publisher.Close(); err != nil {
		s.logger.Errorw("failed to close webhook publisher", "error", err)
		return fmt.Errorf("failed to close webhook publisher: %w", err)
	}

	s.logger.Info("webhook service stopped successfully")
	return nil
}
