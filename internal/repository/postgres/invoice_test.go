package postgres

import (
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/flexprice/paysync/internal/domain/invoice"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func (s *RepositorySuite) TestInvoiceNextNumber() {
	repo := NewInvoiceRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectQuery(`INSERT INTO invoice_sequences .+ ON CONFLICT \(year_month\) DO UPDATE .+ RETURNING last_value`).
		WithArgs("202311").
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(7))

	number, err := repo.GetNextInvoiceNumber(s.ctx, time.Date(2023, 11, 30, 23, 59, 59, 0, time.UTC))
	s.Require().NoError(err)
	s.Equal("INV-202311-00007", number)
}

func (s *RepositorySuite) TestInvoiceCreateDuplicatePayment() {
	repo := NewInvoiceRepository(s.db, logger.NewNoopLogger())
	inv := invoice.NewPaid(s.ctx, "INV-202311-00001", "TXN_1700000000_1234", lo.ToPtr("subs_01"),
		decimal.NewFromInt(120), types.CurrencyGHS, time.Now().UTC())

	s.mock.ExpectExec(`INSERT INTO invoices`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "invoices_payment_reference_key"})

	err := repo.Create(s.ctx, inv)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *RepositorySuite) TestInvoiceCreate() {
	repo := NewInvoiceRepository(s.db, logger.NewNoopLogger())
	inv := invoice.NewPaid(s.ctx, "INV-202311-00001", "TXN_1700000000_1234", lo.ToPtr("subs_01"),
		decimal.NewFromInt(120), types.CurrencyGHS, time.Now().UTC())

	s.mock.ExpectExec(`INSERT INTO invoices`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(repo.Create(s.ctx, inv))
}
