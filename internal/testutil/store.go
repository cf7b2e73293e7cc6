package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/types"
)

// FilterFunc is a generic filter function type
type FilterFunc[T any] func(ctx context.Context, item T) bool

// SortFunc is a generic sort function type
type SortFunc[T any] func(i, j T) bool

// InMemoryStore implements a generic in-memory store. Items are copied on the
// way in and out so callers never share state with the store, and writes made
// inside a MockPostgresClient transaction are undone on rollback.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	clone func(T) T
}

// NewInMemoryStore creates a new InMemoryStore
func NewInMemoryStore[T any](clone func(T) T) *InMemoryStore[T] {
	return &InMemoryStore[T]{
		items: make(map[string]T),
		clone: clone,
	}
}

// Create adds a new item to the store
func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; exists {
		return ierr.NewErrorf("item %s already exists", id).
			WithHint("Item already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	s.items[id] = s.clone(item)
	OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.items, id)
	})
	return nil
}

// Get retrieves an item by ID
func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[id]; exists {
		return s.clone(item), nil
	}

	var zero T
	return zero, ierr.NewErrorf("item %s not found", id).
		WithHint("Item not found").
		Mark(ierr.ErrNotFound)
}

// Find returns the first item accepted by filterFn in sort order
func (s *InMemoryStore[T]) Find(ctx context.Context, filterFn FilterFunc[T], sortFn SortFunc[T]) (T, bool) {
	items := s.List(ctx, nil, filterFn, sortFn)
	if len(items) == 0 {
		var zero T
		return zero, false
	}
	return items[0], true
}

// List retrieves the items accepted by filterFn, sorted and paginated
func (s *InMemoryStore[T]) List(ctx context.Context, filter *types.QueryFilter, filterFn FilterFunc[T], sortFn SortFunc[T]) []T {
	s.mu.RLock()
	result := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item) {
			result = append(result, s.clone(item))
		}
	}
	s.mu.RUnlock()

	if sortFn != nil {
		sort.SliceStable(result, func(i, j int) bool {
			return sortFn(result[i], result[j])
		})
	}

	if filter == nil {
		return result
	}

	start := filter.GetOffset()
	if start >= len(result) {
		return []T{}
	}
	end := start + filter.GetLimit()
	if end > len(result) {
		end = len(result)
	}
	return result[start:end]
}

// Update atomically applies fn to the stored item. fn returns the new value
// or an error that leaves the item untouched.
func (s *InMemoryStore[T]) Update(ctx context.Context, id string, fn func(T) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	prev, exists := s.items[id]
	if !exists {
		return zero, ierr.NewErrorf("item %s not found", id).
			WithHint("Item not found").
			Mark(ierr.ErrNotFound)
	}

	next, err := fn(s.clone(prev))
	if err != nil {
		return zero, err
	}

	s.items[id] = s.clone(next)
	OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items[id] = prev
	})
	return s.clone(next), nil
}

// Clear removes all items from the store
func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}

// Len returns the number of stored items
func (s *InMemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// CheckTenantFilter reports whether an item belongs to the tenant in ctx
func CheckTenantFilter(ctx context.Context, itemTenantID string) bool {
	return itemTenantID == types.GetTenantID(ctx)
}
