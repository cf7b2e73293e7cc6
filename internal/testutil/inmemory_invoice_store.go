package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/paysync/internal/domain/invoice"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
	"github.com/samber/lo"
)

var _ invoice.Repository = (*InMemoryInvoiceStore)(nil)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]

	mu        sync.Mutex
	sequences map[string]int64
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore(copyInvoice),
		sequences:     make(map[string]int64),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	return &c
}

// Clear resets all stored data
func (s *InMemoryInvoiceStore) Clear() {
	s.InMemoryStore.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences = make(map[string]int64)
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			WithHint("Invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := inv.Validate(); err != nil {
		return err
	}

	// invoice numbers and payment references are unique across tenants
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.InMemoryStore.Find(ctx, func(ctx context.Context, existing *invoice.Invoice) bool {
		return existing.InvoiceNumber == inv.InvoiceNumber || existing.PaymentReference == inv.PaymentReference
	}, nil); dup {
		return ierr.NewError("invoice already exists").
			WithHint("An invoice with this number or payment already exists").
			WithReportableDetails(map[string]any{
				"invoice_number":    inv.InvoiceNumber,
				"payment_reference": inv.PaymentReference,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	return s.InMemoryStore.Create(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || !CheckTenantFilter(ctx, inv.TenantID) {
		return nil, ierr.NewErrorf("invoice %s not found", id).
			WithHint("Invoice not found").
			WithReportableDetails(map[string]any{"invoice_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

func (s *InMemoryInvoiceStore) GetByPaymentReference(ctx context.Context, reference string) (*invoice.Invoice, error) {
	inv, ok := s.InMemoryStore.Find(ctx, func(ctx context.Context, inv *invoice.Invoice) bool {
		return CheckTenantFilter(ctx, inv.TenantID) && inv.PaymentReference == reference
	}, nil)
	if !ok {
		return nil, ierr.NewErrorf("no invoice for payment %s", reference).
			WithHint("Invoice not found").
			WithReportableDetails(map[string]any{"reference": reference}).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	return s.InMemoryStore.List(ctx, filter.QueryFilter,
		func(ctx context.Context, inv *invoice.Invoice) bool {
			if !CheckTenantFilter(ctx, inv.TenantID) {
				return false
			}
			if filter.Status != nil && inv.Status != *filter.Status {
				return false
			}
			if filter.SubscriptionID != "" && lo.FromPtr(inv.SubscriptionID) != filter.SubscriptionID {
				return false
			}
			return true
		},
		byCreatedAt(filter.GetOrder(), func(inv *invoice.Invoice) (time.Time, string) {
			return inv.CreatedAt, inv.ID
		}),
	), nil
}

// GetNextInvoiceNumber allocates from a monthly counter shared by all tenants.
// The allocation is released if the surrounding transaction rolls back.
func (s *InMemoryInvoiceStore) GetNextInvoiceNumber(ctx context.Context, at time.Time) (string, error) {
	yearMonth := invoice.YearMonth(at)
	key := yearMonth

	if InTx(ctx) {
		if err := LockRow(ctx, "invoice_sequence:"+key); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	s.sequences[key]++
	value := s.sequences[key]
	s.mu.Unlock()

	OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.sequences[key]--
	})

	return invoice.FormatNumber(yearMonth, value), nil
}
