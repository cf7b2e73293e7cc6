package service

import (
	"context"

	"github.com/flexprice/paysync/internal/api/dto"
	"github.com/flexprice/paysync/internal/domain/payment"
	"github.com/flexprice/paysync/internal/domain/subscription"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
	"github.com/flexprice/paysync/internal/validator"
	"github.com/samber/lo"
)

type SubscriptionService interface {
	// UpgradeSubscription creates a pending subscription with its linked
	// payment and opens the checkout. The subscription activates when the
	// payment reconciles as successful.
	UpgradeSubscription(ctx context.Context, req dto.UpgradeSubscriptionRequest) (*dto.InitializePaymentResponse, error)
	GetCurrentSubscription(ctx context.Context) (*dto.SubscriptionResponse, error)
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, filter *types.SubscriptionFilter) (*dto.ListSubscriptionsResponse, error)
}

type subscriptionService struct {
	ServiceParams
	reconciler ReconciliationService
}

func NewSubscriptionService(params ServiceParams, reconciler ReconciliationService) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
		reconciler:    reconciler,
	}
}

func (s *subscriptionService) UpgradeSubscription(ctx context.Context, req dto.UpgradeSubscriptionRequest) (*dto.InitializePaymentResponse, error) {
	if err := requireTenant(ctx); err != nil {
		return nil, err
	}
	if err := validator.ValidateRequest(&req); err != nil {
		return nil, err
	}

	email := lo.Ternary(req.Email == "", types.GetUserEmail(ctx), req.Email)
	if email == "" {
		return nil, ierr.NewError("no payer email").
			WithHint("Email is required when the user has none on file").
			Mark(ierr.ErrValidation)
	}

	amount, currency, err := s.PlanCatalog.Price(req.PlanID, req.BillingCycle)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, ierr.NewErrorf("plan %s has no price for %s billing", req.PlanID, req.BillingCycle).
			WithHint("This plan cannot be purchased").
			WithReportableDetails(map[string]any{
				"plan_id":       req.PlanID,
				"billing_cycle": req.BillingCycle,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	var (
		sub *subscription.Subscription
		p   *payment.Payment
	)
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub = subscription.New(ctx, req.PlanID, req.BillingCycle, amount, currency)
		if err := s.SubRepo.Create(ctx, sub); err != nil {
			return err
		}

		var err error
		p, err = createPayment(ctx, s.ServiceParams, email, amount, currency, lo.ToPtr(sub.ID))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created pending subscription",
		"subscription_id", sub.ID,
		"plan_id", sub.PlanID,
		"billing_cycle", sub.BillingCycle,
		"reference", p.Reference)

	return startCheckout(ctx, s.ServiceParams, s.reconciler, p, req.CallbackURL)
}

func (s *subscriptionService) GetCurrentSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	if err := requireTenant(ctx); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.GetActive(ctx)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHint("No active subscription").
				Mark(ierr.ErrNotFound)
		}
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	if err := requireTenant(ctx); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, filter *types.SubscriptionFilter) (*dto.ListSubscriptionsResponse, error) {
	if err := requireTenant(ctx); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation)
	}

	subs, err := s.SubRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	response := types.NewListResponse(
		lo.Map(subs, func(sub *subscription.Subscription, _ int) *dto.SubscriptionResponse {
			return dto.NewSubscriptionResponse(sub)
		}),
		filter.GetLimit(),
		filter.GetOffset(),
	)
	return &response, nil
}
