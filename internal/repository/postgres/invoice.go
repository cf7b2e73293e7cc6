package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flexprice/paysync/internal/domain/invoice"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/postgres"
	"github.com/flexprice/paysync/internal/types"
)

const invoiceColumns = `
	id, tenant_id, subscription_id, payment_reference, invoice_number,
	amount, currency, status, paid_at,
	created_at, updated_at, created_by, updated_by`

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	span := StartRepositorySpan(ctx, "invoice", "create", map[string]interface{}{
		"invoice_id":        inv.ID,
		"payment_reference": inv.PaymentReference,
	})
	defer FinishSpan(span)

	if err := inv.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO invoices (
			id,
			tenant_id,
			subscription_id,
			payment_reference,
			invoice_number,
			amount,
			currency,
			status,
			paid_at,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:tenant_id,
			:subscription_id,
			:payment_reference,
			:invoice_number,
			:amount,
			:currency,
			:status,
			:paid_at,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		SetSpanError(span, err)
		if postgres.IsUniqueViolation(err, "invoices_tenant_invoice_number_key", "invoices_payment_reference_key") {
			return ierr.WithError(err).
				WithHint("Invoice with same number or payment already exists").
				WithReportableDetails(map[string]any{
					"invoice_number":    inv.InvoiceNumber,
					"payment_reference": inv.PaymentReference,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return postgres.MapError(err, "create invoice")
	}

	r.logger.Debugw("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"payment_reference", inv.PaymentReference,
	)
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE
			id = :id AND
			tenant_id = :tenant_id`

	return r.getOne(ctx, "get", query, map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	})
}

func (r *invoiceRepository) GetByPaymentReference(ctx context.Context, reference string) (*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE
			payment_reference = :payment_reference AND
			tenant_id = :tenant_id`

	return r.getOne(ctx, "get_by_payment_reference", query, map[string]interface{}{
		"payment_reference": reference,
		"tenant_id":         types.GetTenantID(ctx),
	})
}

func (r *invoiceRepository) getOne(ctx context.Context, op, query string, params map[string]interface{}) (*invoice.Invoice, error) {
	span := StartRepositorySpan(ctx, "invoice", op, params)
	defer FinishSpan(span)

	var inv invoice.Invoice
	if err := r.db.NamedGetContext(ctx, &inv, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHint("Invoice not found").
				WithReportableDetails(params).
				Mark(ierr.ErrNotFound)
		}
		SetSpanError(span, err)
		return nil, postgres.MapError(err, "get invoice")
	}
	return &inv, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = :tenant_id`
	params := map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
	}
	if filter.Status != nil {
		query += ` AND status = :status`
		params["status"] = *filter.Status
	}
	if filter.SubscriptionID != "" {
		query += ` AND subscription_id = :subscription_id`
		params["subscription_id"] = filter.SubscriptionID
	}
	query += orderBy(filter.GetOrder()) + paginate(filter.GetLimit(), filter.GetOffset())

	invoices := make([]*invoice.Invoice, 0)
	if err := r.db.NamedSelectContext(ctx, &invoices, query, params); err != nil {
		return nil, postgres.MapError(err, "list invoices")
	}
	return invoices, nil
}

func (r *invoiceRepository) GetNextInvoiceNumber(ctx context.Context, at time.Time) (string, error) {
	span := StartRepositorySpan(ctx, "invoice", "get_next_invoice_number", map[string]interface{}{})
	defer FinishSpan(span)

	yearMonth := invoice.YearMonth(at)

	query := `
		INSERT INTO invoice_sequences (year_month, last_value, created_at, updated_at)
		VALUES (:year_month, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (year_month) DO UPDATE
		SET last_value = invoice_sequences.last_value + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING last_value`

	var lastValue int64
	err := r.db.NamedGetContext(ctx, &lastValue, query, map[string]interface{}{
		"year_month": yearMonth,
	})
	if err != nil {
		SetSpanError(span, err)
		return "", ierr.WithError(err).
			WithHint("Invoice number generation failed").
			Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("generated invoice number",
		"tenant_id", types.GetTenantID(ctx),
		"year_month", yearMonth,
		"sequence", lastValue,
	)

	return invoice.FormatNumber(yearMonth, lastValue), nil
}
