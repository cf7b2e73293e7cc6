package dto

import (
	"time"

	"github.com/flexprice/paysync/internal/domain/subscription"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// UpgradeSubscriptionRequest moves the tenant onto a plan once payment settles
type UpgradeSubscriptionRequest struct {
	PlanID       string             `json:"plan_id" validate:"required"`
	BillingCycle types.BillingCycle `json:"billing_cycle" validate:"required"`
	// Email defaults to the email of the authenticated user
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	CallbackURL string `json:"callback_url,omitempty" validate:"omitempty,url"`
}

func (r *UpgradeSubscriptionRequest) Validate() error {
	if err := r.BillingCycle.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Billing cycle must be monthly or yearly").
			WithReportableDetails(map[string]any{"billing_cycle": r.BillingCycle}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionResponse represents a subscription response
type SubscriptionResponse struct {
	ID                 string                   `json:"id"`
	PlanID             string                   `json:"plan_id"`
	Status             types.SubscriptionStatus `json:"status"`
	Amount             decimal.Decimal          `json:"amount"`
	Currency           string                   `json:"currency"`
	BillingCycle       types.BillingCycle       `json:"billing_cycle"`
	CurrentPeriodStart *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time               `json:"current_period_end,omitempty"`
	CancelledAt        *time.Time               `json:"cancelled_at,omitempty"`
	TenantID           string                   `json:"tenant_id"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

func NewSubscriptionResponse(s *subscription.Subscription) *SubscriptionResponse {
	if s == nil {
		return nil
	}
	return &SubscriptionResponse{
		ID:                 s.ID,
		PlanID:             s.PlanID,
		Status:             s.Status,
		Amount:             s.Amount,
		Currency:           s.Currency,
		BillingCycle:       s.BillingCycle,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CancelledAt:        s.CancelledAt,
		TenantID:           s.TenantID,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// ListSubscriptionsResponse represents a paginated list of subscriptions
type ListSubscriptionsResponse = types.ListResponse[*SubscriptionResponse]
