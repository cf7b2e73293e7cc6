package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/paysync/internal/domain/invoice"
	"github.com/flexprice/paysync/internal/domain/payment"
	"github.com/flexprice/paysync/internal/domain/subscription"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/types"
	webhookDto "github.com/flexprice/paysync/internal/webhook/dto"
	"github.com/samber/lo"
)

// ReconcileResult is the state of a payment after an outcome was offered to it
type ReconcileResult struct {
	// Applied is true only for the call that moved the payment out of pending
	Applied      bool
	Payment      *payment.Payment
	Subscription *subscription.Subscription
	Invoice      *invoice.Invoice
	// Cancelled lists the subscriptions replaced by the activation
	Cancelled []*subscription.Subscription
}

// ReconciliationService is the single entry point that applies gateway
// outcomes. The verify endpoint, the gateway webhook and checkout failures all
// go through Reconcile.
type ReconciliationService interface {
	// Reconcile applies outcome to the payment identified by reference. It is
	// idempotent: once the payment is terminal every further call returns the
	// stored state with Applied=false.
	Reconcile(ctx context.Context, reference string, outcome *types.TransactionOutcome) (*ReconcileResult, error)
	// CurrentState loads the subscription and invoice a payment is tied to
	// without applying anything
	CurrentState(ctx context.Context, p *payment.Payment) (*ReconcileResult, error)
}

type reconciliationService struct {
	ServiceParams
	now func() time.Time
}

func NewReconciliationService(params ServiceParams) ReconciliationService {
	return &reconciliationService{
		ServiceParams: params,
		now:           time.Now,
	}
}

func (s *reconciliationService) Reconcile(ctx context.Context, reference string, outcome *types.TransactionOutcome) (*ReconcileResult, error) {
	if outcome == nil {
		return nil, ierr.NewError("outcome is required").
			WithHint("Transaction outcome is required").
			Mark(ierr.ErrValidation)
	}

	p, err := s.PaymentRepo.GetByReference(ctx, reference)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("reconciliation requested for unknown payment",
				"reference", reference,
				"outcome", outcome.Status)
			return nil, ierr.WithError(err).
				WithHintf("Payment %s not found", reference).
				WithReportableDetails(map[string]any{"reference": reference}).
				Mark(ierr.ErrPaymentNotFound)
		}
		return nil, err
	}

	// references are global, the payment decides which tenant we act for
	ctx = types.SetTenantID(ctx, p.TenantID)
	log := s.Logger.WithContext(ctx)

	if !outcome.IsTerminal() {
		log.Debugw("gateway outcome not settled, nothing to apply",
			"reference", reference,
			"gateway_status", outcome.GatewayStatus)
		return s.CurrentState(ctx, p)
	}

	if p.IsTerminal() {
		if p.Status != outcome.Status {
			log.Warnw("ignoring outcome that conflicts with settled payment",
				"reference", reference,
				"stored_status", p.Status,
				"outcome_status", outcome.Status)
		}
		return s.CurrentState(ctx, p)
	}

	var (
		result  *ReconcileResult
		attempt int
	)

	operation := func() error {
		attempt++
		res, err := s.apply(ctx, log, reference, outcome)
		if err != nil {
			if ierr.IsRetryableStorage(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warnw("reconciliation attempt failed, retrying",
			"reference", reference,
			"attempt", attempt,
			"wait", wait,
			"error", err)
	}

	if err := backoff.RetryNotify(operation, s.retryPolicy(ctx), notify); err != nil {
		if !ierr.IsRetryableStorage(err) {
			return nil, err
		}

		log.Errorw("reconciliation retries exhausted, payment left pending",
			"reference", reference,
			"attempts", attempt,
			"error", err)
		s.Sentry.CaptureException(err)

		return nil, ierr.WithError(err).
			WithHint("Payment could not be reconciled, please retry").
			WithReportableDetails(map[string]any{
				"reference": reference,
				"attempts":  attempt,
			}).
			Mark(ierr.ErrStorageConflict)
	}

	if !result.Applied {
		// lost the race to another reconciliation of the same reference
		return s.CurrentState(ctx, result.Payment)
	}

	log.Infow("reconciled payment",
		"reference", reference,
		"status", result.Payment.Status,
		"subscription_id", lo.FromPtr(subscriptionID(result.Subscription)),
		"invoice_number", invoiceNumber(result.Invoice),
		"cancelled", len(result.Cancelled),
		"attempts", attempt)

	if result.Payment.Status == types.PaymentStatusSuccess {
		s.reportAmountMismatch(log, result.Payment, outcome)
	}

	s.publishEvents(ctx, result)
	return result, nil
}

// reportAmountMismatch alerts when the gateway settled a different amount or
// currency than the payment asked for. The payment still settles and the
// invoice bills the stored amount.
func (s *reconciliationService) reportAmountMismatch(log *logger.Logger, p *payment.Payment, outcome *types.TransactionOutcome) {
	if outcome.Amount.Equal(p.Amount) && (outcome.Currency == "" || outcome.Currency == p.Currency) {
		return
	}

	log.Warnw("gateway amount differs from payment amount",
		"reference", p.Reference,
		"payment_amount", p.Amount.String(),
		"payment_currency", p.Currency,
		"gateway_amount", outcome.Amount.String(),
		"gateway_currency", outcome.Currency)

	s.Sentry.CaptureException(ierr.NewErrorf("payment %s settled with %s %s, expected %s %s",
		p.Reference, outcome.Amount.String(), outcome.Currency, p.Amount.String(), p.Currency).
		WithHint("Gateway settled amount differs from payment amount").
		WithReportableDetails(map[string]any{
			"reference":        p.Reference,
			"payment_amount":   p.Amount.String(),
			"payment_currency": p.Currency,
			"gateway_amount":   outcome.Amount.String(),
			"gateway_currency": outcome.Currency,
		}).
		Mark(ierr.ErrInvalidOperation))
}

// apply runs one attempt of the transition under the payment row lock
func (s *reconciliationService) apply(ctx context.Context, log *logger.Logger, reference string, outcome *types.TransactionOutcome) (*ReconcileResult, error) {
	result := &ReconcileResult{}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.PaymentRepo.GetByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		result.Payment = p

		if p.IsTerminal() {
			return nil
		}

		now := s.now().UTC()
		if outcome.GatewayReference != "" {
			p.GatewayReference = lo.ToPtr(outcome.GatewayReference)
		}
		data := types.GatewayData(outcome.RawPayload)

		if outcome.Status == types.PaymentStatusFailed {
			if err := s.PaymentRepo.MarkTerminal(ctx, p, types.PaymentStatusFailed, data); err != nil {
				return err
			}
			result.Applied = true
			return nil
		}

		if err := s.PaymentRepo.MarkTerminal(ctx, p, types.PaymentStatusSuccess, data); err != nil {
			return err
		}

		sub, err := s.pendingSubscription(ctx, p)
		if err != nil {
			return err
		}

		if sub != nil {
			cancelled, err := s.SubRepo.CancelActive(ctx, sub.ID, now)
			if err != nil {
				return err
			}

			sub.Activate(now)
			if err := s.SubRepo.Activate(ctx, sub); err != nil {
				return err
			}
			result.Subscription = sub
			result.Cancelled = cancelled
		}

		number, err := s.InvoiceRepo.GetNextInvoiceNumber(ctx, now)
		if err != nil {
			return err
		}

		inv := invoice.NewPaid(ctx, number, p.Reference, subscriptionID(sub), p.Amount, p.Currency, now)
		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			return err
		}
		result.Invoice = inv
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// pendingSubscription picks the subscription a successful payment activates:
// the linked one while it is still pending, otherwise the tenant's latest
// pending one. A payment with neither is a one-off charge.
func (s *reconciliationService) pendingSubscription(ctx context.Context, p *payment.Payment) (*subscription.Subscription, error) {
	if p.SubscriptionID != nil {
		sub, err := s.SubRepo.Get(ctx, *p.SubscriptionID)
		if err == nil && sub.IsPending() {
			return sub, nil
		}
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}
	}

	sub, err := s.SubRepo.GetLatestPending(ctx)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (s *reconciliationService) CurrentState(ctx context.Context, p *payment.Payment) (*ReconcileResult, error) {
	ctx = types.SetTenantID(ctx, p.TenantID)
	result := &ReconcileResult{Payment: p}

	if p.Status == types.PaymentStatusSuccess {
		inv, err := s.InvoiceRepo.GetByPaymentReference(ctx, p.Reference)
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}
		result.Invoice = inv
	}

	subID := p.SubscriptionID
	if result.Invoice != nil && result.Invoice.SubscriptionID != nil {
		subID = result.Invoice.SubscriptionID
	}
	if subID != nil {
		sub, err := s.SubRepo.Get(ctx, *subID)
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}
		result.Subscription = sub
	}

	return result, nil
}

func (s *reconciliationService) retryPolicy(ctx context.Context) backoff.BackOffContext {
	cfg := s.Config.Reconciliation

	b := backoff.NewExponentialBackOff()
	if cfg.InitialBackoff > 0 {
		b.InitialInterval = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		b.MaxInterval = cfg.MaxBackoff
	}
	// bounded by attempts, not by wall time
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
}

func (s *reconciliationService) publishEvents(ctx context.Context, result *ReconcileResult) {
	tenantID := result.Payment.TenantID

	eventName := types.WebhookEventPaymentSuccess
	if result.Payment.Status == types.PaymentStatusFailed {
		eventName = types.WebhookEventPaymentFailed
	}
	s.publishWebhookEvent(ctx, eventName, tenantID, &webhookDto.InternalPaymentEvent{
		Reference: result.Payment.Reference,
		TenantID:  tenantID,
	})

	for _, sub := range result.Cancelled {
		s.publishWebhookEvent(ctx, types.WebhookEventSubscriptionCancelled, tenantID, &webhookDto.InternalSubscriptionEvent{
			SubscriptionID: sub.ID,
			TenantID:       tenantID,
		})
	}

	if result.Subscription != nil {
		s.publishWebhookEvent(ctx, types.WebhookEventSubscriptionActivated, tenantID, &webhookDto.InternalSubscriptionEvent{
			SubscriptionID: result.Subscription.ID,
			TenantID:       tenantID,
		})
	}

	if result.Invoice != nil {
		s.publishWebhookEvent(ctx, types.WebhookEventInvoicePaid, tenantID, &webhookDto.InternalInvoiceEvent{
			InvoiceID: result.Invoice.ID,
			TenantID:  tenantID,
		})
	}
}

func (s *reconciliationService) publishWebhookEvent(ctx context.Context, eventName, tenantID string, internalEvent interface{}) {
	if s.WebhookPublisher == nil {
		s.Logger.Warnw("webhook publisher not initialized", "event", eventName)
		return
	}

	webhookPayload, err := json.Marshal(internalEvent)
	if err != nil {
		s.Logger.Errorw("failed to marshal webhook payload", "error", err)
		return
	}

	webhookEvent := &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: eventName,
		TenantID:  tenantID,
		UserID:    types.GetUserID(ctx),
		Timestamp: time.Now().UTC(),
		Payload:   json.RawMessage(webhookPayload),
	}
	if err := s.WebhookPublisher.PublishWebhook(ctx, webhookEvent); err != nil {
		s.Logger.Errorf("failed to publish %s event: %v", webhookEvent.EventName, err)
	}
}

func subscriptionID(sub *subscription.Subscription) *string {
	if sub == nil {
		return nil
	}
	return lo.ToPtr(sub.ID)
}

func invoiceNumber(inv *invoice.Invoice) string {
	if inv == nil {
		return ""
	}
	return inv.InvoiceNumber
}
