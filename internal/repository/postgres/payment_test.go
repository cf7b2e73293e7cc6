package postgres

import (
	"context"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flexprice/paysync/internal/domain/payment"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/types"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var paymentRowColumns = []string{
	"id", "reference", "tenant_id", "email", "amount", "currency", "status",
	"subscription_id", "gateway_reference", "gateway_transaction_data",
	"created_at", "updated_at", "created_by", "updated_by",
}

func paymentRow(reference string, status types.PaymentStatus) *sqlmock.Rows {
	now := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	return sqlmock.NewRows(paymentRowColumns).AddRow(
		"pay_01", reference, "tenant_acme", "owner@acme.test", "120.00", "GHS", string(status),
		"subs_01", nil, nil,
		now, now, "user_1", "user_1",
	)
}

func (s *RepositorySuite) TestPaymentCreateDuplicateReference() {
	repo := NewPaymentRepository(s.db, logger.NewNoopLogger())
	p := payment.New(s.ctx, "TXN_1700000000_1234", "owner@acme.test", decimal.RequireFromString("120.00"), "GHS")

	s.mock.ExpectExec(`INSERT INTO payments`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "payments_reference_key"})

	err := repo.Create(s.ctx, p)
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *RepositorySuite) TestPaymentCreateRejectsInvalidAmount() {
	repo := NewPaymentRepository(s.db, logger.NewNoopLogger())
	p := payment.New(s.ctx, "TXN_1700000000_1234", "owner@acme.test", decimal.RequireFromString("10.005"), "GHS")

	err := repo.Create(s.ctx, p)
	s.True(ierr.IsValidation(err))
}

func (s *RepositorySuite) TestPaymentGetByReference() {
	repo := NewPaymentRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectQuery(`SELECT .+ FROM payments WHERE reference = \$1$`).
		WithArgs("TXN_1700000000_1234").
		WillReturnRows(paymentRow("TXN_1700000000_1234", types.PaymentStatusPending))

	p, err := repo.GetByReference(s.ctx, "TXN_1700000000_1234")
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPending, p.Status)
	s.True(p.Amount.Equal(decimal.NewFromInt(120)))
	s.Equal("subs_01", *p.SubscriptionID)
	s.Nil(p.GatewayReference)
}

func (s *RepositorySuite) TestPaymentGetByReferenceNotFound() {
	repo := NewPaymentRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectQuery(`SELECT .+ FROM payments WHERE reference = \$1`).
		WithArgs("TXN_missing").
		WillReturnRows(sqlmock.NewRows(paymentRowColumns))

	_, err := repo.GetByReference(s.ctx, "TXN_missing")
	s.True(ierr.Is(err, ierr.ErrPaymentNotFound))
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestPaymentLockRequiresTransaction() {
	repo := NewPaymentRepository(s.db, logger.NewNoopLogger())

	_, err := repo.GetByReferenceForUpdate(s.ctx, "TXN_1700000000_1234")
	s.Error(err)
}

func (s *RepositorySuite) TestPaymentLockAndSettleInTransaction() {
	repo := NewPaymentRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`SELECT .+ FROM payments WHERE reference = \$1 FOR UPDATE`).
		WithArgs("TXN_1700000000_1234").
		WillReturnRows(paymentRow("TXN_1700000000_1234", types.PaymentStatusPending))
	s.mock.ExpectExec(`UPDATE payments SET .+ WHERE reference = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	var settled *payment.Payment
	err := s.db.WithTx(s.ctx, func(ctx context.Context) error {
		p, err := repo.GetByReferenceForUpdate(ctx, "TXN_1700000000_1234")
		if err != nil {
			return err
		}
		if err := repo.MarkTerminal(ctx, p, types.PaymentStatusSuccess, types.GatewayData(`{"status":"success"}`)); err != nil {
			return err
		}
		settled = p
		return nil
	})
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusSuccess, settled.Status)
	s.JSONEq(`{"status":"success"}`, string(settled.GatewayTransactionData))
}

func (s *RepositorySuite) TestPaymentMarkTerminalLosesRace() {
	repo := NewPaymentRepository(s.db, logger.NewNoopLogger())
	p := payment.New(s.ctx, "TXN_1700000000_1234", "owner@acme.test", decimal.NewFromInt(120), "GHS")

	s.mock.ExpectExec(`UPDATE payments SET .+ WHERE reference = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkTerminal(s.ctx, p, types.PaymentStatusFailed, nil)
	s.True(ierr.IsVersionConflict(err))
	s.Equal(types.PaymentStatusPending, p.Status)
}

func (s *RepositorySuite) TestPaymentMarkTerminalRejectsPending() {
	repo := NewPaymentRepository(s.db, logger.NewNoopLogger())
	p := payment.New(s.ctx, "TXN_1700000000_1234", "owner@acme.test", decimal.NewFromInt(120), "GHS")

	err := repo.MarkTerminal(s.ctx, p, types.PaymentStatusPending, nil)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *RepositorySuite) TestTransactionRollsBackOnError() {
	repo := NewPaymentRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`SELECT .+ FROM payments WHERE reference = \$1 FOR UPDATE`).
		WillReturnError(&pq.Error{Code: "40P01"})
	s.mock.ExpectRollback()

	err := s.db.WithTx(s.ctx, func(ctx context.Context) error {
		_, err := repo.GetByReferenceForUpdate(ctx, "TXN_1700000000_1234")
		return err
	})
	s.True(ierr.IsVersionConflict(err))
	s.True(ierr.IsRetryableStorage(err))
}
