package invoice

import (
	"context"
	"time"

	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice records a billed amount. Invoices are created by reconciliation
// and never deleted.
type Invoice struct {
	ID               string              `db:"id" json:"id"`
	SubscriptionID   *string             `db:"subscription_id" json:"subscription_id,omitempty"`
	PaymentReference string              `db:"payment_reference" json:"payment_reference"`
	InvoiceNumber    string              `db:"invoice_number" json:"invoice_number"`
	Amount           decimal.Decimal     `db:"amount" json:"amount"`
	Currency         string              `db:"currency" json:"currency"`
	Status           types.InvoiceStatus `db:"status" json:"status"`
	PaidAt           *time.Time          `db:"paid_at" json:"paid_at,omitempty"`

	types.BaseModel
}

// NewPaid builds a paid invoice for a settled payment
func NewPaid(ctx context.Context, number, paymentReference string, subscriptionID *string, amount decimal.Decimal, currency string, paidAt time.Time) *Invoice {
	base := types.GetDefaultBaseModel(ctx)
	base.CreatedAt = paidAt
	base.UpdatedAt = paidAt
	return &Invoice{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		SubscriptionID:   subscriptionID,
		PaymentReference: paymentReference,
		InvoiceNumber:    number,
		Amount:           amount,
		Currency:         currency,
		Status:           types.InvoiceStatusPaid,
		PaidAt:           &paidAt,
		BaseModel:        base,
	}
}

func (i *Invoice) Validate() error {
	if i.TenantID == "" {
		return ierr.NewError("missing tenant").
			WithHint("Invoice must belong to a tenant").
			Mark(ierr.ErrValidation)
	}
	if i.InvoiceNumber == "" {
		return ierr.NewError("missing invoice number").
			WithHint("Invoice number is required").
			Mark(ierr.ErrValidation)
	}
	if i.PaymentReference == "" {
		return ierr.NewError("missing payment reference").
			WithHint("Invoice must reference a payment").
			Mark(ierr.ErrValidation)
	}
	if i.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if err := i.Status.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Invoice status is invalid").
			Mark(ierr.ErrValidation)
	}
	if i.Status == types.InvoiceStatusPaid && i.PaidAt == nil {
		return ierr.NewError("paid invoice without paid_at").
			WithHint("Paid invoices need a payment time").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (i *Invoice) TableName() string {
	return "invoices"
}
