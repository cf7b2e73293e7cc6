package postgres

import (
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flexprice/paysync/internal/domain/subscription"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/types"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var subscriptionRowColumns = []string{
	"id", "tenant_id", "plan_id", "status", "amount", "currency", "billing_cycle",
	"current_period_start", "current_period_end", "cancelled_at",
	"created_at", "updated_at", "created_by", "updated_by",
}

func (s *RepositorySuite) TestSubscriptionGetLatestPending() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	now := time.Now().UTC()

	s.mock.ExpectQuery(`SELECT .+ FROM subscriptions WHERE tenant_id = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT 1`).
		WithArgs("tenant_acme", "pending").
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns).AddRow(
			"subs_02", "tenant_acme", "pro", "pending", "250.00", "GHS", "monthly",
			nil, nil, nil, now, now, "", "",
		))

	sub, err := repo.GetLatestPending(s.ctx)
	s.Require().NoError(err)
	s.Equal("subs_02", sub.ID)
	s.True(sub.IsPending())
	s.Equal(types.BillingCycleMonthly, sub.BillingCycle)
}

func (s *RepositorySuite) TestSubscriptionGetActiveNotFound() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectQuery(`SELECT .+ FROM subscriptions`).
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns))

	_, err := repo.GetActive(s.ctx)
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestSubscriptionActivateSecondActiveConflicts() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	sub := subscription.New(s.ctx, "pro", types.BillingCycleMonthly, decimal.NewFromInt(250), "GHS")
	sub.Activate(time.Now().UTC())

	s.mock.ExpectExec(`UPDATE subscriptions SET .+ WHERE id = \$\d+ AND tenant_id = \$\d+ AND status = \$\d+`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: idxOneActivePerTenant})

	err := repo.Activate(s.ctx, sub)
	s.True(ierr.IsStorageConflict(err))
	s.True(ierr.IsRetryableStorage(err))
}

func (s *RepositorySuite) TestSubscriptionActivateNotPending() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	sub := subscription.New(s.ctx, "pro", types.BillingCycleMonthly, decimal.NewFromInt(250), "GHS")
	sub.Activate(time.Now().UTC())

	s.mock.ExpectExec(`UPDATE subscriptions SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Activate(s.ctx, sub)
	s.True(ierr.IsVersionConflict(err))
}

func (s *RepositorySuite) TestSubscriptionCancelActive() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	now := time.Now().UTC()

	s.mock.ExpectQuery(`UPDATE subscriptions SET .+ WHERE tenant_id = \$\d+ AND status = \$\d+ AND id <> \$\d+ RETURNING`).
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns).AddRow(
			"subs_01", "tenant_acme", "basic", "cancelled", "120.00", "GHS", "monthly",
			now, now.AddDate(0, 1, 0), now, now, now, "", "",
		))

	cancelled, err := repo.CancelActive(s.ctx, "subs_02", now)
	s.Require().NoError(err)
	s.Require().Len(cancelled, 1)
	s.Equal(types.SubscriptionStatusCancelled, cancelled[0].Status)
	s.NotNil(cancelled[0].CancelledAt)
}
