package webhook

import (
	"encoding/json"

	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/integration/paystack"
	"github.com/flexprice/paysync/internal/types"
)

// PaystackEventType is the value of the top level "event" field
type PaystackEventType string

const (
	EventChargeSuccess       PaystackEventType = "charge.success"
	EventSubscriptionCreate  PaystackEventType = "subscription.create"
	EventSubscriptionDisable PaystackEventType = "subscription.disable"
	EventTransferSuccess     PaystackEventType = "transfer.success"
	EventTransferFailed      PaystackEventType = "transfer.failed"
)

// envelope is decoded first to pick the concrete event
type envelope struct {
	Event PaystackEventType `json:"event"`
	Data  json.RawMessage   `json:"data"`
}

// Event is one verified webhook delivery. The concrete type is either
// *ChargeSuccess or *UnknownEvent.
type Event interface {
	EventType() PaystackEventType
	isEvent()
}

// ChargeSuccess reports a settled charge. It is the only event that moves
// billing state.
type ChargeSuccess struct {
	Data paystack.TransactionData
	// Raw is the data object exactly as delivered
	Raw json.RawMessage
}

func (e *ChargeSuccess) EventType() PaystackEventType { return EventChargeSuccess }
func (e *ChargeSuccess) isEvent()                     {}

// Reference is our payment reference echoed back by the gateway
func (e *ChargeSuccess) Reference() string {
	return e.Data.Reference
}

// Outcome normalizes the charge for reconciliation
func (e *ChargeSuccess) Outcome() *types.TransactionOutcome {
	return e.Data.ToOutcome(e.Raw)
}

// UnknownEvent is any event we acknowledge without acting on
type UnknownEvent struct {
	Name PaystackEventType
	Raw  json.RawMessage
}

func (e *UnknownEvent) EventType() PaystackEventType { return e.Name }
func (e *UnknownEvent) isEvent()                     {}

// Parse decodes a verified webhook body
func Parse(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook payload is not valid JSON").
			Mark(ierr.ErrValidation)
	}
	if env.Event == "" {
		return nil, ierr.NewError("webhook payload has no event").
			WithHint("Webhook payload is missing the event name").
			Mark(ierr.ErrValidation)
	}

	switch env.Event {
	case EventChargeSuccess:
		var data paystack.TransactionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, ierr.WithError(err).
				WithHint("charge.success payload could not be decoded").
				Mark(ierr.ErrValidation)
		}
		if data.Reference == "" {
			return nil, ierr.NewError("charge.success without reference").
				WithHint("charge.success payload is missing the reference").
				Mark(ierr.ErrValidation)
		}
		return &ChargeSuccess{Data: data, Raw: env.Data}, nil
	default:
		return &UnknownEvent{Name: env.Event, Raw: env.Data}, nil
	}
}
