package subscription

import (
	"context"
	"time"

	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription is a tenant's enrollment in a plan
type Subscription struct {
	ID                 string                   `db:"id" json:"id"`
	PlanID             string                   `db:"plan_id" json:"plan_id"`
	Status             types.SubscriptionStatus `db:"status" json:"status"`
	Amount             decimal.Decimal          `db:"amount" json:"amount"`
	Currency           string                   `db:"currency" json:"currency"`
	BillingCycle       types.BillingCycle       `db:"billing_cycle" json:"billing_cycle"`
	CurrentPeriodStart *time.Time               `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time               `db:"current_period_end" json:"current_period_end,omitempty"`
	CancelledAt        *time.Time               `db:"cancelled_at" json:"cancelled_at,omitempty"`

	types.BaseModel
}

// New builds a pending subscription for the tenant carried by ctx
func New(ctx context.Context, planID string, cycle types.BillingCycle, amount decimal.Decimal, currency string) *Subscription {
	return &Subscription{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:       planID,
		Status:       types.SubscriptionStatusPending,
		Amount:       amount,
		Currency:     types.NormalizeCurrency(currency),
		BillingCycle: cycle,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
}

func (s *Subscription) Validate() error {
	if s.TenantID == "" {
		return ierr.NewError("missing tenant").
			WithHint("Subscription must belong to a tenant").
			Mark(ierr.ErrValidation)
	}
	if s.PlanID == "" {
		return ierr.NewError("missing plan").
			WithHint("Plan is required").
			Mark(ierr.ErrValidation)
	}
	if s.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if err := s.BillingCycle.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Billing cycle must be monthly or yearly").
			Mark(ierr.ErrValidation)
	}
	if err := s.Status.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Subscription status is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Activate starts the first billing period at now
func (s *Subscription) Activate(now time.Time) {
	end := s.BillingCycle.NextPeriodEnd(now)
	s.Status = types.SubscriptionStatusActive
	s.CurrentPeriodStart = &now
	s.CurrentPeriodEnd = &end
	s.UpdatedAt = now
}

func (s *Subscription) IsPending() bool {
	return s.Status == types.SubscriptionStatusPending
}

func (s *Subscription) TableName() string {
	return "subscriptions"
}
