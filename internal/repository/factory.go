package repository

import (
	"github.com/flexprice/paysync/internal/domain/invoice"
	"github.com/flexprice/paysync/internal/domain/payment"
	"github.com/flexprice/paysync/internal/domain/subscription"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/postgres"
	postgresRepo "github.com/flexprice/paysync/internal/repository/postgres"
	"go.uber.org/fx"
)

// Module provides the postgres backed repositories
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewPaymentRepository,
			NewSubscriptionRepository,
			NewInvoiceRepository,
		),
	)
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}
