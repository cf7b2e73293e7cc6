package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flexprice/paysync/internal/domain/subscription"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/postgres"
	"github.com/flexprice/paysync/internal/types"
)

const subscriptionColumns = `
	id, tenant_id, plan_id, status, amount, currency, billing_cycle,
	current_period_start, current_period_end, cancelled_at,
	created_at, updated_at, created_by, updated_by`

// partial unique index guarding one active subscription per tenant
const idxOneActivePerTenant = "idx_subscriptions_one_active_per_tenant"

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	span := StartRepositorySpan(ctx, "subscription", "create", map[string]interface{}{
		"subscription_id": sub.ID,
	})
	defer FinishSpan(span)

	if err := sub.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO subscriptions (
			id,
			tenant_id,
			plan_id,
			status,
			amount,
			currency,
			billing_cycle,
			current_period_start,
			current_period_end,
			cancelled_at,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:tenant_id,
			:plan_id,
			:status,
			:amount,
			:currency,
			:billing_cycle,
			:current_period_start,
			:current_period_end,
			:cancelled_at,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		SetSpanError(span, err)
		return postgres.MapError(err, "create subscription")
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE
			id = :id AND
			tenant_id = :tenant_id`

	return r.getOne(ctx, "get", query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
}

func (r *subscriptionRepository) GetLatestPending(ctx context.Context) (*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE
			tenant_id = :tenant_id AND
			status = :status
		ORDER BY created_at DESC
		LIMIT 1`

	return r.getOne(ctx, "get_latest_pending", query, map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.SubscriptionStatusPending,
	})
}

func (r *subscriptionRepository) GetActive(ctx context.Context) (*subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE
			tenant_id = :tenant_id AND
			status = :status
		LIMIT 1`

	return r.getOne(ctx, "get_active", query, map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.SubscriptionStatusActive,
	})
}

func (r *subscriptionRepository) getOne(ctx context.Context, op, query string, params map[string]interface{}) (*subscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", op, params)
	defer FinishSpan(span)

	var sub subscription.Subscription
	if err := r.db.NamedGetContext(ctx, &sub, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHint("Subscription not found").
				WithReportableDetails(params).
				Mark(ierr.ErrNotFound)
		}
		SetSpanError(span, err)
		return nil, postgres.MapError(err, "get subscription")
	}
	return &sub, nil
}

func (r *subscriptionRepository) Activate(ctx context.Context, sub *subscription.Subscription) error {
	span := StartRepositorySpan(ctx, "subscription", "activate", map[string]interface{}{
		"subscription_id": sub.ID,
	})
	defer FinishSpan(span)

	query := `
		UPDATE subscriptions
		SET
			status = :status,
			current_period_start = :current_period_start,
			current_period_end = :current_period_end,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			id = :id AND
			tenant_id = :tenant_id AND
			status = :pending`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"status":               types.SubscriptionStatusActive,
		"current_period_start": sub.CurrentPeriodStart,
		"current_period_end":   sub.CurrentPeriodEnd,
		"updated_at":           sub.UpdatedAt,
		"updated_by":           types.GetUserID(ctx),
		"id":                   sub.ID,
		"tenant_id":            sub.TenantID,
		"pending":              types.SubscriptionStatusPending,
	})
	if err != nil {
		SetSpanError(span, err)
		if postgres.IsUniqueViolation(err, idxOneActivePerTenant) {
			return ierr.WithError(err).
				WithHint("Tenant already has an active subscription").
				WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
				Mark(ierr.ErrStorageConflict)
		}
		return postgres.MapError(err, "activate subscription")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return postgres.MapError(err, "activate subscription")
	}
	if affected == 0 {
		return ierr.NewErrorf("subscription %s is no longer pending", sub.ID).
			WithHint("Subscription was changed concurrently").
			WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
			Mark(ierr.ErrVersionConflict)
	}

	sub.Status = types.SubscriptionStatusActive
	return nil
}

func (r *subscriptionRepository) CancelActive(ctx context.Context, exceptID string, at time.Time) ([]*subscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "cancel_active", map[string]interface{}{
		"except_id": exceptID,
	})
	defer FinishSpan(span)

	query := `
		UPDATE subscriptions
		SET
			status = :cancelled,
			cancelled_at = :at,
			updated_at = :at,
			updated_by = :updated_by
		WHERE
			tenant_id = :tenant_id AND
			status = :active AND
			id <> :except_id
		RETURNING ` + subscriptionColumns

	cancelled := make([]*subscription.Subscription, 0)
	err := r.db.NamedSelectContext(ctx, &cancelled, query, map[string]interface{}{
		"cancelled":  types.SubscriptionStatusCancelled,
		"active":     types.SubscriptionStatusActive,
		"at":         at,
		"updated_by": types.GetUserID(ctx),
		"tenant_id":  types.GetTenantID(ctx),
		"except_id":  exceptID,
	})
	if err != nil {
		SetSpanError(span, err)
		return nil, postgres.MapError(err, "cancel active subscriptions")
	}

	return cancelled, nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE tenant_id = :tenant_id`
	params := map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
	}
	if filter.Status != nil {
		query += ` AND status = :status`
		params["status"] = *filter.Status
	}
	query += orderBy(filter.GetOrder()) + paginate(filter.GetLimit(), filter.GetOffset())

	subs := make([]*subscription.Subscription, 0)
	if err := r.db.NamedSelectContext(ctx, &subs, query, params); err != nil {
		return nil, postgres.MapError(err, "list subscriptions")
	}
	return subs, nil
}
