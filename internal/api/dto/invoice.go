package dto

import (
	"time"

	"github.com/flexprice/paysync/internal/domain/invoice"
	"github.com/flexprice/paysync/internal/types"
	"github.com/shopspring/decimal"
)

// InvoiceResponse represents an invoice response
type InvoiceResponse struct {
	ID               string              `json:"id"`
	InvoiceNumber    string              `json:"invoice_number"`
	SubscriptionID   *string             `json:"subscription_id,omitempty"`
	PaymentReference string              `json:"payment_reference"`
	Amount           decimal.Decimal     `json:"amount"`
	Currency         string              `json:"currency"`
	CurrencySymbol   string              `json:"currency_symbol"`
	Status           types.InvoiceStatus `json:"status"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	TenantID         string              `json:"tenant_id"`
	CreatedAt        time.Time           `json:"created_at"`
}

func NewInvoiceResponse(i *invoice.Invoice) *InvoiceResponse {
	if i == nil {
		return nil
	}
	return &InvoiceResponse{
		ID:               i.ID,
		InvoiceNumber:    i.InvoiceNumber,
		SubscriptionID:   i.SubscriptionID,
		PaymentReference: i.PaymentReference,
		Amount:           i.Amount,
		Currency:         i.Currency,
		CurrencySymbol:   types.GetCurrencySymbol(i.Currency),
		Status:           i.Status,
		PaidAt:           i.PaidAt,
		TenantID:         i.TenantID,
		CreatedAt:        i.CreatedAt,
	}
}

// ListInvoicesResponse represents a paginated list of invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]
