package testutil

import (
	"context"
	"time"

	"github.com/flexprice/paysync/internal/domain/payment"
	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
)

var _ payment.Repository = (*InMemoryPaymentStore)(nil)

// InMemoryPaymentStore implements payment.Repository, keyed by reference
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

// NewInMemoryPaymentStore creates a new in-memory payment repository
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore(copyPayment),
	}
}

func copyPayment(p *payment.Payment) *payment.Payment {
	if p == nil {
		return nil
	}
	c := *p
	if p.GatewayTransactionData != nil {
		c.GatewayTransactionData = append(types.GatewayData(nil), p.GatewayTransactionData...)
	}
	return &c
}

// Create stores a new payment
func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			WithHint("Payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if err := s.InMemoryStore.Create(ctx, p.Reference, p); err != nil {
		if ierr.IsAlreadyExists(err) {
			return ierr.WithError(err).
				WithHint("Payment with same reference already exists").
				WithReportableDetails(map[string]any{"reference": p.Reference}).
				Mark(ierr.ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func (s *InMemoryPaymentStore) GetByReference(ctx context.Context, reference string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, reference)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Payment %s not found", reference).
			WithReportableDetails(map[string]any{"reference": reference}).
			Mark(ierr.ErrPaymentNotFound)
	}
	return p, nil
}

func (s *InMemoryPaymentStore) GetByReferenceForUpdate(ctx context.Context, reference string) (*payment.Payment, error) {
	if err := LockRow(ctx, "payment:"+reference); err != nil {
		return nil, err
	}
	return s.GetByReference(ctx, reference)
}

func (s *InMemoryPaymentStore) MarkTerminal(ctx context.Context, p *payment.Payment, status types.PaymentStatus, data types.GatewayData) error {
	if !status.IsTerminal() {
		return ierr.NewErrorf("cannot move payment to %s", status).
			WithHint("Payments can only move to success or failed").
			Mark(ierr.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	_, err := s.InMemoryStore.Update(ctx, p.Reference, func(stored *payment.Payment) (*payment.Payment, error) {
		if stored.Status != types.PaymentStatusPending {
			return nil, ierr.NewErrorf("payment %s is no longer pending", p.Reference).
				WithHint("Payment was settled concurrently").
				WithReportableDetails(map[string]any{"reference": p.Reference}).
				Mark(ierr.ErrVersionConflict)
		}
		stored.Status = status
		stored.GatewayTransactionData = data
		if p.GatewayReference != nil {
			stored.GatewayReference = p.GatewayReference
		}
		stored.UpdatedAt = now
		stored.UpdatedBy = types.GetUserID(ctx)
		return stored, nil
	})
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.WithError(err).
				WithHintf("Payment %s not found", p.Reference).
				Mark(ierr.ErrPaymentNotFound)
		}
		return err
	}

	p.Status = status
	p.GatewayTransactionData = data
	p.UpdatedAt = now
	return nil
}

func (s *InMemoryPaymentStore) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	return s.InMemoryStore.List(ctx, filter.QueryFilter,
		func(ctx context.Context, p *payment.Payment) bool {
			if !CheckTenantFilter(ctx, p.TenantID) {
				return false
			}
			return filter.Status == nil || p.Status == *filter.Status
		},
		byCreatedAt(filter.GetOrder(), func(p *payment.Payment) (time.Time, string) {
			return p.CreatedAt, p.ID
		}),
	), nil
}

// byCreatedAt orders items by creation time, breaking ties on id
func byCreatedAt[T any](order string, key func(T) (time.Time, string)) SortFunc[T] {
	return func(a, b T) bool {
		ta, ia := key(a)
		tb, ib := key(b)
		if order == "asc" {
			if ta.Equal(tb) {
				return ia < ib
			}
			return ta.Before(tb)
		}
		if ta.Equal(tb) {
			return ia > ib
		}
		return ta.After(tb)
	}
}
