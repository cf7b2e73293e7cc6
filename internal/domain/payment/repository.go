package payment

import (
	"context"

	"github.com/flexprice/paysync/internal/types"
)

// Repository defines the interface for payment persistence
type Repository interface {
	// Create inserts a pending payment. A duplicate reference fails with ErrAlreadyExists.
	Create(ctx context.Context, payment *Payment) error
	// GetByReference looks a payment up across tenants; references are globally unique.
	GetByReference(ctx context.Context, reference string) (*Payment, error)
	// GetByReferenceForUpdate is GetByReference holding a row lock until the
	// surrounding transaction ends. It must be called inside WithTx.
	GetByReferenceForUpdate(ctx context.Context, reference string) (*Payment, error)
	// MarkTerminal moves a pending payment to status. Fails with
	// ErrVersionConflict when the payment is no longer pending.
	MarkTerminal(ctx context.Context, payment *Payment, status types.PaymentStatus, data types.GatewayData) error
	// List returns the payments of the tenant in ctx
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
}
