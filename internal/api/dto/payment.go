package dto

import (
	"time"

	"github.com/flexprice/paysync/internal/domain/payment"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// InitializePaymentRequest starts a one-off payment through the gateway
type InitializePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Email       string          `json:"email" validate:"required,email"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	CallbackURL string          `json:"callback_url,omitempty" validate:"omitempty,url"`
}

func (r *InitializePaymentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ierr.NewError("amount must be greater than 0").
			WithHint("Amount must be greater than 0").
			WithReportableDetails(map[string]any{"amount": r.Amount.String()}).
			Mark(ierr.ErrValidation)
	}
	if _, err := types.ToMinorUnits(r.Amount); err != nil {
		return ierr.WithError(err).
			WithHint("Amount must have at most two decimal places").
			Mark(ierr.ErrValidation)
	}
	if r.Currency != "" {
		if err := types.ValidateCurrency(r.Currency); err != nil {
			return ierr.WithError(err).
				WithHint("Currency is not supported").
				WithReportableDetails(map[string]any{"currency": r.Currency}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// InitializePaymentResponse is what the client needs to send the payer to checkout
type InitializePaymentResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
	SubscriptionID   string `json:"subscription_id,omitempty"`
}

// PaymentResponse represents a payment response
type PaymentResponse struct {
	ID               string              `json:"id"`
	Reference        string              `json:"reference"`
	Email            string              `json:"email"`
	Amount           decimal.Decimal     `json:"amount"`
	Currency         string              `json:"currency"`
	CurrencySymbol   string              `json:"currency_symbol"`
	Status           types.PaymentStatus `json:"status"`
	SubscriptionID   *string             `json:"subscription_id,omitempty"`
	GatewayReference *string             `json:"gateway_reference,omitempty"`
	TenantID         string              `json:"tenant_id"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		ID:               p.ID,
		Reference:        p.Reference,
		Email:            p.Email,
		Amount:           p.Amount,
		Currency:         p.Currency,
		CurrencySymbol:   types.GetCurrencySymbol(p.Currency),
		Status:           p.Status,
		SubscriptionID:   p.SubscriptionID,
		GatewayReference: p.GatewayReference,
		TenantID:         p.TenantID,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// VerifyPaymentResponse is the state of a payment after verification
type VerifyPaymentResponse struct {
	Payment      *PaymentResponse      `json:"payment"`
	Subscription *SubscriptionResponse `json:"subscription,omitempty"`
	Invoice      *InvoiceResponse      `json:"invoice,omitempty"`
	// Applied is true only for the call that moved the payment to a terminal status
	Applied bool `json:"applied"`
}

// ListPaymentsResponse represents a paginated list of payments
type ListPaymentsResponse = types.ListResponse[*PaymentResponse]
