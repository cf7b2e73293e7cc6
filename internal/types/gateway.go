package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionOutcome is the normalized result of a gateway transaction as
// seen by either the verify call or a webhook delivery.
type TransactionOutcome struct {
	// Status is pending for anything the gateway has not settled yet
	Status PaymentStatus `json:"status"`

	// GatewayStatus is the raw status string reported by the gateway
	GatewayStatus string `json:"gateway_status"`

	// Amount in major units, converted from the gateway's minor units
	Amount decimal.Decimal `json:"amount"`

	Currency string `json:"currency"`

	// GatewayReference is the gateway's own id for the transaction
	GatewayReference string `json:"gateway_reference,omitempty"`

	PaidAt *time.Time `json:"paid_at,omitempty"`

	// RawPayload is persisted verbatim on the payment record
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
}

// IsTerminal reports whether the outcome settles the payment
func (o TransactionOutcome) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// GatewayData holds the last gateway response stored on a payment as JSONB
type GatewayData json.RawMessage

// Scan implements the sql.Scanner interface for GatewayData
func (g *GatewayData) Scan(value interface{}) error {
	if value == nil {
		*g = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*g = append(GatewayData(nil), v...)
	case string:
		*g = GatewayData(v)
	default:
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for GatewayData
func (g GatewayData) Value() (driver.Value, error) {
	if len(g) == 0 {
		return nil, nil
	}
	if !json.Valid(g) {
		return nil, fmt.Errorf("gateway data is not valid json")
	}
	return string(g), nil
}

func (g GatewayData) MarshalJSON() ([]byte, error) {
	if len(g) == 0 {
		return []byte("null"), nil
	}
	return []byte(g), nil
}

func (g *GatewayData) UnmarshalJSON(data []byte) error {
	*g = append((*g)[0:0], data...)
	return nil
}
