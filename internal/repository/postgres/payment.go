package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flexprice/paysync/internal/domain/payment"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/postgres"
	"github.com/flexprice/paysync/internal/types"
)

const paymentColumns = `
	id, reference, tenant_id, email, amount, currency, status,
	subscription_id, gateway_reference, gateway_transaction_data,
	created_at, updated_at, created_by, updated_by`

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	span := StartRepositorySpan(ctx, "payment", "create", map[string]interface{}{
		"reference": p.Reference,
	})
	defer FinishSpan(span)

	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			id,
			reference,
			tenant_id,
			email,
			amount,
			currency,
			status,
			subscription_id,
			gateway_reference,
			gateway_transaction_data,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:reference,
			:tenant_id,
			:email,
			:amount,
			:currency,
			:status,
			:subscription_id,
			:gateway_reference,
			:gateway_transaction_data,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		SetSpanError(span, err)
		if postgres.IsUniqueViolation(err, "payments_reference_key") {
			return ierr.WithError(err).
				WithHint("Payment with same reference already exists").
				WithReportableDetails(map[string]any{"reference": p.Reference}).
				Mark(ierr.ErrAlreadyExists)
		}
		return postgres.MapError(err, "create payment")
	}

	return nil
}

func (r *paymentRepository) GetByReference(ctx context.Context, reference string) (*payment.Payment, error) {
	return r.getByReference(ctx, reference, false)
}

func (r *paymentRepository) GetByReferenceForUpdate(ctx context.Context, reference string) (*payment.Payment, error) {
	if _, ok := postgres.GetTx(ctx); !ok {
		return nil, ierr.NewError("row lock requested outside a transaction").
			WithHint("Payment lock requires a transaction").
			Mark(ierr.ErrSystem)
	}
	return r.getByReference(ctx, reference, true)
}

func (r *paymentRepository) getByReference(ctx context.Context, reference string, forUpdate bool) (*payment.Payment, error) {
	span := StartRepositorySpan(ctx, "payment", "get_by_reference", map[string]interface{}{
		"reference":  reference,
		"for_update": forUpdate,
	})
	defer FinishSpan(span)

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = :reference`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var p payment.Payment
	err := r.db.NamedGetContext(ctx, &p, query, map[string]interface{}{
		"reference": reference,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHintf("Payment %s not found", reference).
				WithReportableDetails(map[string]any{"reference": reference}).
				Mark(ierr.ErrPaymentNotFound)
		}
		SetSpanError(span, err)
		return nil, postgres.MapError(err, "get payment")
	}

	return &p, nil
}

func (r *paymentRepository) MarkTerminal(ctx context.Context, p *payment.Payment, status types.PaymentStatus, data types.GatewayData) error {
	span := StartRepositorySpan(ctx, "payment", "mark_terminal", map[string]interface{}{
		"reference": p.Reference,
		"status":    status,
	})
	defer FinishSpan(span)

	if !status.IsTerminal() {
		return ierr.NewErrorf("cannot move payment to %s", status).
			WithHint("Payments can only move to success or failed").
			Mark(ierr.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	query := `
		UPDATE payments
		SET
			status = :status,
			gateway_transaction_data = :gateway_transaction_data,
			gateway_reference = COALESCE(:gateway_reference, gateway_reference),
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE
			reference = :reference AND
			status = :pending`

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"status":                   status,
		"gateway_transaction_data": data,
		"gateway_reference":        p.GatewayReference,
		"updated_at":               now,
		"updated_by":               types.GetUserID(ctx),
		"reference":                p.Reference,
		"pending":                  types.PaymentStatusPending,
	})
	if err != nil {
		SetSpanError(span, err)
		return postgres.MapError(err, "update payment status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return postgres.MapError(err, "update payment status")
	}
	if affected == 0 {
		return ierr.NewErrorf("payment %s is no longer pending", p.Reference).
			WithHint("Payment was settled concurrently").
			WithReportableDetails(map[string]any{"reference": p.Reference}).
			Mark(ierr.ErrVersionConflict)
	}

	p.Status = status
	p.GatewayTransactionData = data
	p.UpdatedAt = now
	return nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = :tenant_id`
	params := map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
	}
	if filter.Status != nil {
		query += ` AND status = :status`
		params["status"] = *filter.Status
	}
	query += orderBy(filter.GetOrder()) + paginate(filter.GetLimit(), filter.GetOffset())

	payments := make([]*payment.Payment, 0)
	if err := r.db.NamedSelectContext(ctx, &payments, query, params); err != nil {
		return nil, postgres.MapError(err, "list payments")
	}
	return payments, nil
}
