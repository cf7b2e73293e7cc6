package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/paysync/internal/domain/subscription"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
)

var _ subscription.Repository = (*InMemorySubscriptionStore)(nil)

// InMemorySubscriptionStore implements subscription.Repository. Like the
// partial unique index of the postgres schema it refuses a second active
// subscription per tenant.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
	// serializes the active check with the status change
	activeMu sync.Mutex
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore(copySubscription),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	c := *sub
	return &c
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, sub.ID, sub)
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !CheckTenantFilter(ctx, sub.TenantID) {
		return nil, ierr.NewErrorf("subscription %s not found", id).
			WithHint("Subscription not found").
			WithReportableDetails(map[string]any{"subscription_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return sub, nil
}

func (s *InMemorySubscriptionStore) GetLatestPending(ctx context.Context) (*subscription.Subscription, error) {
	return s.findByStatus(ctx, types.SubscriptionStatusPending)
}

func (s *InMemorySubscriptionStore) GetActive(ctx context.Context) (*subscription.Subscription, error) {
	return s.findByStatus(ctx, types.SubscriptionStatusActive)
}

func (s *InMemorySubscriptionStore) findByStatus(ctx context.Context, status types.SubscriptionStatus) (*subscription.Subscription, error) {
	sub, ok := s.InMemoryStore.Find(ctx,
		func(ctx context.Context, sub *subscription.Subscription) bool {
			return CheckTenantFilter(ctx, sub.TenantID) && sub.Status == status
		},
		byCreatedAt("desc", func(sub *subscription.Subscription) (time.Time, string) {
			return sub.CreatedAt, sub.ID
		}),
	)
	if !ok {
		return nil, ierr.NewErrorf("no %s subscription", status).
			WithHint("Subscription not found").
			WithReportableDetails(map[string]any{"status": status}).
			Mark(ierr.ErrNotFound)
	}
	return sub, nil
}

func (s *InMemorySubscriptionStore) Activate(ctx context.Context, sub *subscription.Subscription) error {
	if err := s.lockTenant(ctx); err != nil {
		return err
	}

	s.activeMu.Lock()
	defer s.activeMu.Unlock()

	if active, err := s.GetActive(ctx); err == nil && active.ID != sub.ID {
		return ierr.NewError("tenant already has an active subscription").
			WithHint("Tenant already has an active subscription").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"active_id":       active.ID,
			}).
			Mark(ierr.ErrStorageConflict)
	}

	_, err := s.InMemoryStore.Update(ctx, sub.ID, func(stored *subscription.Subscription) (*subscription.Subscription, error) {
		if stored.TenantID != sub.TenantID || stored.Status != types.SubscriptionStatusPending {
			return nil, ierr.NewErrorf("subscription %s is no longer pending", sub.ID).
				WithHint("Subscription was changed concurrently").
				WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
				Mark(ierr.ErrVersionConflict)
		}
		stored.Status = types.SubscriptionStatusActive
		stored.CurrentPeriodStart = sub.CurrentPeriodStart
		stored.CurrentPeriodEnd = sub.CurrentPeriodEnd
		stored.UpdatedAt = sub.UpdatedAt
		stored.UpdatedBy = types.GetUserID(ctx)
		return stored, nil
	})
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.WithError(err).
				WithHint("Subscription was changed concurrently").
				Mark(ierr.ErrVersionConflict)
		}
		return err
	}

	sub.Status = types.SubscriptionStatusActive
	return nil
}

func (s *InMemorySubscriptionStore) CancelActive(ctx context.Context, exceptID string, at time.Time) ([]*subscription.Subscription, error) {
	if err := s.lockTenant(ctx); err != nil {
		return nil, err
	}

	s.activeMu.Lock()
	defer s.activeMu.Unlock()

	active := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, sub *subscription.Subscription) bool {
		return CheckTenantFilter(ctx, sub.TenantID) &&
			sub.Status == types.SubscriptionStatusActive &&
			sub.ID != exceptID
	}, nil)

	cancelled := make([]*subscription.Subscription, 0, len(active))
	for _, sub := range active {
		updated, err := s.InMemoryStore.Update(ctx, sub.ID, func(stored *subscription.Subscription) (*subscription.Subscription, error) {
			stored.Status = types.SubscriptionStatusCancelled
			stored.CancelledAt = &at
			stored.UpdatedAt = at
			stored.UpdatedBy = types.GetUserID(ctx)
			return stored, nil
		})
		if err != nil {
			return nil, err
		}
		cancelled = append(cancelled, updated)
	}
	return cancelled, nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	return s.InMemoryStore.List(ctx, filter.QueryFilter,
		func(ctx context.Context, sub *subscription.Subscription) bool {
			if !CheckTenantFilter(ctx, sub.TenantID) {
				return false
			}
			return filter.Status == nil || sub.Status == *filter.Status
		},
		byCreatedAt(filter.GetOrder(), func(sub *subscription.Subscription) (time.Time, string) {
			return sub.CreatedAt, sub.ID
		}),
	), nil
}

// lockTenant serializes activations of one tenant for the rest of the transaction
func (s *InMemorySubscriptionStore) lockTenant(ctx context.Context) error {
	if !InTx(ctx) {
		return nil
	}
	return LockRow(ctx, "subscription_tenant:"+types.GetTenantID(ctx))
}
