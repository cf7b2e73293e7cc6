package payment

import (
	"context"
	"strings"

	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// Payment is one gateway charge attempt, keyed by its reference
type Payment struct {
	// ID is the internal identifier, prefixed with pay_
	ID string `db:"id" json:"id"`
	// Reference is generated by us, sent to the gateway and never changes.
	// It is the idempotency key for every reconciliation of this payment.
	Reference string `db:"reference" json:"reference"`
	// Email of the payer as sent to the gateway
	Email string `db:"email" json:"email"`
	// Amount in major units
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// Currency is a three-letter ISO code (GHS, NGN, ...)
	Currency string `db:"currency" json:"currency"`
	// Status moves from pending to exactly one terminal status
	Status types.PaymentStatus `db:"status" json:"status"`
	// SubscriptionID links the pending subscription created alongside this payment (optional)
	SubscriptionID *string `db:"subscription_id" json:"subscription_id,omitempty"`
	// GatewayReference is the gateway's own transaction id once known (optional)
	GatewayReference *string `db:"gateway_reference" json:"gateway_reference,omitempty"`
	// GatewayTransactionData is the last raw gateway response applied to this payment
	GatewayTransactionData types.GatewayData `db:"gateway_transaction_data" json:"gateway_transaction_data,omitempty"`

	types.BaseModel
}

// New builds a pending payment for the tenant carried by ctx
func New(ctx context.Context, reference, email string, amount decimal.Decimal, currency string) *Payment {
	return &Payment{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		Reference: reference,
		Email:     strings.TrimSpace(email),
		Amount:    amount,
		Currency:  types.NormalizeCurrency(currency),
		Status:    types.PaymentStatusPending,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

// Validate validates the payment
func (p *Payment) Validate() error {
	if p.Reference == "" {
		return ierr.NewError("missing payment reference").
			WithHint("Payment reference is required").
			Mark(ierr.ErrValidation)
	}
	if p.TenantID == "" {
		return ierr.NewError("missing tenant").
			WithHint("Payment must belong to a tenant").
			Mark(ierr.ErrValidation)
	}
	if p.Email == "" {
		return ierr.NewError("missing email").
			WithHint("Payer email is required").
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			WithReportableDetails(map[string]any{"amount": p.Amount.String()}).
			Mark(ierr.ErrValidation)
	}
	if _, err := types.ToMinorUnits(p.Amount); err != nil {
		return ierr.WithError(err).
			WithHint("Amount must have at most two decimal places").
			Mark(ierr.ErrValidation)
	}
	if err := types.ValidateCurrency(p.Currency); err != nil {
		return ierr.WithError(err).
			WithHint("Currency is not supported").
			WithReportableDetails(map[string]any{"currency": p.Currency}).
			Mark(ierr.ErrValidation)
	}
	if err := p.Status.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Payment status is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal reports whether the payment has been settled either way
func (p *Payment) IsTerminal() bool {
	return p.Status.IsTerminal()
}

func (p *Payment) TableName() string {
	return "payments"
}
