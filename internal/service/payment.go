package service

import (
	"context"
	"encoding/json"

	"github.com/flexprice/paysync/internal/api/dto"
	"github.com/flexprice/paysync/internal/domain/payment"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/integration/paystack"
	"github.com/flexprice/paysync/internal/types"
	"github.com/flexprice/paysync/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// maxReferenceAttempts bounds reference regeneration on a uniqueness conflict
const maxReferenceAttempts = 3

// PaymentService defines the interface for payment operations
type PaymentService interface {
	// InitializePayment creates a pending payment and opens a gateway checkout for it
	InitializePayment(ctx context.Context, req dto.InitializePaymentRequest) (*dto.InitializePaymentResponse, error)
	// VerifyPayment asks the gateway for the outcome of a payment and reconciles it
	VerifyPayment(ctx context.Context, reference string) (*dto.VerifyPaymentResponse, error)
	GetPayment(ctx context.Context, reference string) (*dto.PaymentResponse, error)
	ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error)
}

type paymentService struct {
	ServiceParams
	reconciler ReconciliationService
}

// NewPaymentService creates a new payment service
func NewPaymentService(params ServiceParams, reconciler ReconciliationService) PaymentService {
	return &paymentService{
		ServiceParams: params,
		reconciler:    reconciler,
	}
}

func (s *paymentService) InitializePayment(ctx context.Context, req dto.InitializePaymentRequest) (*dto.InitializePaymentResponse, error) {
	if err := requireTenant(ctx); err != nil {
		return nil, err
	}
	if err := validator.ValidateRequest(&req); err != nil {
		return nil, err
	}

	currency := lo.Ternary(req.Currency == "", s.Config.Gateway.DefaultCurrency, req.Currency)

	var p *payment.Payment
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = createPayment(ctx, s.ServiceParams, req.Email, req.Amount, currency, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return startCheckout(ctx, s.ServiceParams, s.reconciler, p, req.CallbackURL)
}

func (s *paymentService) VerifyPayment(ctx context.Context, reference string) (*dto.VerifyPaymentResponse, error) {
	p, err := s.getTenantPayment(ctx, reference)
	if err != nil {
		return nil, err
	}

	if p.IsTerminal() {
		state, err := s.reconciler.CurrentState(ctx, p)
		if err != nil {
			return nil, err
		}
		return newVerifyPaymentResponse(state), nil
	}

	outcome, err := s.Gateway.FetchTransactionStatus(ctx, reference)
	if err != nil {
		if !ierr.IsTransactionNotFound(err) {
			return nil, err
		}
		// checkout not started yet, the client keeps polling
		s.Logger.Debugw("gateway has no transaction yet", "reference", reference)
		state, err := s.reconciler.CurrentState(ctx, p)
		if err != nil {
			return nil, err
		}
		return newVerifyPaymentResponse(state), nil
	}

	result, err := s.reconciler.Reconcile(ctx, reference, outcome)
	if err != nil {
		return nil, err
	}
	return newVerifyPaymentResponse(result), nil
}

func (s *paymentService) GetPayment(ctx context.Context, reference string) (*dto.PaymentResponse, error) {
	p, err := s.getTenantPayment(ctx, reference)
	if err != nil {
		return nil, err
	}
	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	if err := requireTenant(ctx); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation)
	}

	payments, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	response := types.NewListResponse(
		lo.Map(payments, func(p *payment.Payment, _ int) *dto.PaymentResponse {
			return dto.NewPaymentResponse(p)
		}),
		filter.GetLimit(),
		filter.GetOffset(),
	)
	return &response, nil
}

// getTenantPayment hides payments of other tenants behind a not found
func (s *paymentService) getTenantPayment(ctx context.Context, reference string) (*payment.Payment, error) {
	if err := requireTenant(ctx); err != nil {
		return nil, err
	}

	p, err := s.PaymentRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if p.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewErrorf("payment %s not found", reference).
			WithHintf("Payment %s not found", reference).
			WithReportableDetails(map[string]any{"reference": reference}).
			Mark(ierr.ErrPaymentNotFound)
	}
	return p, nil
}

// createPayment inserts a pending payment under a fresh reference. Each
// insert runs in its own savepoint so a reference collision can be retried
// inside the caller's transaction.
func createPayment(ctx context.Context, params ServiceParams, email string, amount decimal.Decimal, currency string, subscriptionID *string) (*payment.Payment, error) {
	var lastErr error
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		p := payment.New(ctx, params.Idempotency.GenerateReference(), email, amount, currency)
		p.SubscriptionID = subscriptionID

		err := params.DB.WithTx(ctx, func(ctx context.Context) error {
			return params.PaymentRepo.Create(ctx, p)
		})
		if err == nil {
			params.Logger.Infow("created payment",
				"reference", p.Reference,
				"tenant_id", p.TenantID,
				"amount", p.Amount.String(),
				"currency", p.Currency,
				"subscription_id", lo.FromPtr(subscriptionID))
			return p, nil
		}
		if !ierr.IsAlreadyExists(err) {
			return nil, err
		}

		params.Logger.Warnw("payment reference collision, regenerating",
			"reference", p.Reference,
			"attempt", attempt)
		lastErr = err
	}

	return nil, ierr.WithError(lastErr).
		WithHint("Could not allocate a payment reference, please retry").
		Mark(ierr.ErrStorageConflict)
}

// startCheckout opens the gateway checkout for a pending payment. A rejection
// is fed back as a failed outcome so the payment ends failed; an unavailable
// gateway leaves it pending for a later verify.
func startCheckout(ctx context.Context, params ServiceParams, reconciler ReconciliationService, p *payment.Payment, callbackURL string) (*dto.InitializePaymentResponse, error) {
	amountMinor, err := types.ToMinorUnits(p.Amount)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Amount must have at most two decimal places").
			Mark(ierr.ErrValidation)
	}

	res, err := params.Gateway.InitializeTransaction(ctx, paystack.InitializeTransactionRequest{
		Email:       p.Email,
		AmountMinor: amountMinor,
		Reference:   p.Reference,
		Currency:    p.Currency,
		CallbackURL: callbackURL,
	})
	if err != nil {
		if ierr.IsGatewayRejected(err) {
			raw, _ := json.Marshal(map[string]string{
				"status":  "rejected",
				"message": err.Error(),
			})
			outcome := &types.TransactionOutcome{
				Status:        types.PaymentStatusFailed,
				GatewayStatus: "rejected",
				Amount:        p.Amount,
				Currency:      p.Currency,
				RawPayload:    raw,
			}
			if _, rErr := reconciler.Reconcile(ctx, p.Reference, outcome); rErr != nil {
				params.Logger.Errorw("failed to record gateway rejection",
					"reference", p.Reference,
					"error", rErr)
			}
		} else {
			params.Logger.Warnw("checkout not started, payment left pending",
				"reference", p.Reference,
				"error", err)
		}
		return nil, err
	}

	response := &dto.InitializePaymentResponse{
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Reference:        p.Reference,
	}
	if p.SubscriptionID != nil {
		response.SubscriptionID = *p.SubscriptionID
	}
	return response, nil
}

func newVerifyPaymentResponse(result *ReconcileResult) *dto.VerifyPaymentResponse {
	return &dto.VerifyPaymentResponse{
		Payment:      dto.NewPaymentResponse(result.Payment),
		Subscription: dto.NewSubscriptionResponse(result.Subscription),
		Invoice:      dto.NewInvoiceResponse(result.Invoice),
		Applied:      result.Applied,
	}
}

func requireTenant(ctx context.Context) error {
	if err := types.ValidateTenantContext(ctx); err != nil {
		return ierr.WithError(err).
			WithHint("Tenant context is required").
			Mark(ierr.ErrUnauthorized)
	}
	return nil
}
