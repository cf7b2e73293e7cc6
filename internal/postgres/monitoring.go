package postgres

import (
	"context"

	"github.com/flexprice/paysync/internal/logger"
	sentryService "github.com/flexprice/paysync/internal/sentry"
)

// SentryClient wraps a client with a sentry span per transaction
type SentryClient struct {
	client IClient
	sentry *sentryService.Service
	logger *logger.Logger
}

func NewSentryClient(client IClient, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return &SentryClient{
		client: client,
		sentry: sentry,
		logger: logger,
	}
}

func (c *SentryClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	span, spanCtx := c.sentry.StartDBSpan(ctx, "postgres.transaction", map[string]interface{}{
		"operation": "transaction",
	})
	defer sentryService.FinishSpan(span)

	return c.client.WithTx(spanCtx, fn)
}
