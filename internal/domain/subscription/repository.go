package subscription

import (
	"context"
	"time"

	"github.com/flexprice/paysync/internal/types"
)

// Repository defines subscription persistence. All methods are scoped to the
// tenant carried by ctx.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	// GetLatestPending returns the most recently created pending subscription
	GetLatestPending(ctx context.Context) (*Subscription, error)
	// GetActive returns the tenant's active subscription
	GetActive(ctx context.Context) (*Subscription, error)
	// Activate moves a pending subscription to active with its first period.
	// Fails with ErrVersionConflict when the subscription is no longer pending.
	Activate(ctx context.Context, sub *Subscription) error
	// CancelActive cancels every active subscription except exceptID and
	// returns the ones it cancelled
	CancelActive(ctx context.Context, exceptID string, at time.Time) ([]*Subscription, error)
	List(ctx context.Context, filter *types.SubscriptionFilter) ([]*Subscription, error)
}
