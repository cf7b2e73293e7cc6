package invoice

import (
	"context"
	"time"

	"github.com/flexprice/paysync/internal/types"
)

// Repository defines invoice persistence, scoped to the tenant in ctx
type Repository interface {
	// Create inserts an invoice. A duplicate number or payment reference fails
	// with ErrAlreadyExists.
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByPaymentReference(ctx context.Context, reference string) (*Invoice, error)
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)
	// GetNextInvoiceNumber allocates the next number of the month containing at.
	// Numbers are unique across tenants.
	GetNextInvoiceNumber(ctx context.Context, at time.Time) (string, error)
}
