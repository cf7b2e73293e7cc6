package paystack

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/flexprice/paysync/internal/types"
)

// Gateway transaction statuses as reported by Paystack
const (
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusReversed   = "reversed"
	StatusAbandoned  = "abandoned"
	StatusOngoing    = "ongoing"
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusQueued     = "queued"
)

// InitializeTransactionRequest starts a hosted checkout for a payment
type InitializeTransactionRequest struct {
	Email string `json:"email"`
	// AmountMinor is the amount in the currency's minor unit (pesewas, kobo)
	AmountMinor int64  `json:"amount"`
	Reference   string `json:"reference"`
	Currency    string `json:"currency,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// InitializeTransactionResult is what the payer needs to complete checkout
type InitializeTransactionResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	GatewayReference string `json:"reference"`
}

// envelope is the common shape of every Paystack response
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Customer is the payer block embedded in transaction payloads
type Customer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// TransactionData is the transaction object shared by the verify endpoint and
// charge webhooks
type TransactionData struct {
	ID              int64      `json:"id"`
	Status          string     `json:"status"`
	Reference       string     `json:"reference"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	GatewayResponse string     `json:"gateway_response"`
	Channel         string     `json:"channel"`
	PaidAt          *time.Time `json:"paid_at"`
	CreatedAt       *time.Time `json:"created_at"`
	Customer        Customer   `json:"customer"`
}

// MapStatus folds a gateway status into a payment status. Anything the
// gateway has not settled is pending.
func MapStatus(gatewayStatus string) types.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(gatewayStatus)) {
	case StatusSuccess:
		return types.PaymentStatusSuccess
	case StatusFailed, StatusReversed:
		return types.PaymentStatusFailed
	default:
		return types.PaymentStatusPending
	}
}

// ToOutcome normalizes a gateway transaction. raw is kept verbatim on the outcome.
func (t *TransactionData) ToOutcome(raw json.RawMessage) *types.TransactionOutcome {
	outcome := &types.TransactionOutcome{
		Status:        MapStatus(t.Status),
		GatewayStatus: t.Status,
		Amount:        types.FromMinorUnits(t.Amount),
		Currency:      types.NormalizeCurrency(t.Currency),
		PaidAt:        t.PaidAt,
		RawPayload:    raw,
	}
	if t.ID != 0 {
		outcome.GatewayReference = strconv.FormatInt(t.ID, 10)
	}
	return outcome
}
