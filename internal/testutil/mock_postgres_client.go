package testutil

import (
	"context"
	"sync"

	ierr "github.com/flexprice/paysync/internal/errors"
	"github.com/flexprice/paysync/internal/logger"
	"github.com/flexprice/paysync/internal/postgres"
	"github.com/flexprice/paysync/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

type mockTxKey struct{}

// mockTx records the undo log and the row locks of one transaction
type mockTx struct {
	id     string
	client *MockPostgresClient

	mu   sync.Mutex
	undo []func()
	held map[string]*sync.Mutex
}

// MockPostgresClient is a transaction manager for the in-memory stores.
// Writes are applied immediately and undone when the transaction rolls back.
// Row locks taken through LockRow are held until the outermost transaction ends.
type MockPostgresClient struct {
	logger *logger.Logger

	mu             sync.Mutex
	locks          map[string]*sync.Mutex
	commitFailures int
	commitErr      error
	commits        int
	rollbacks      int
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithTx executes fn within a transaction. A nested call behaves like a savepoint.
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if tx, ok := txFromContext(ctx); ok {
		mark := tx.mark()
		if err := fn(ctx); err != nil {
			tx.rollbackTo(mark)
			return err
		}
		return nil
	}

	tx := &mockTx{
		id:     types.GenerateUUID(),
		client: c,
		held:   make(map[string]*sync.Mutex),
	}
	txCtx := context.WithValue(ctx, mockTxKey{}, tx)

	defer func() {
		if r := recover(); r != nil {
			tx.rollbackTo(0)
			tx.release()
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		c.logger.Debugw("transaction aborted", "tx_id", tx.id, "error", err)
		tx.rollbackTo(0)
		tx.release()
		c.count(false)
		return err
	}

	if err := c.takeCommitFailure(); err != nil {
		c.logger.Debugw("commit failed", "tx_id", tx.id, "error", err)
		tx.rollbackTo(0)
		tx.release()
		c.count(false)
		return err
	}

	tx.release()
	c.count(true)
	return nil
}

// InjectCommitFailures makes the next n outermost commits fail with err and
// roll back. A nil err fails with a database error.
func (c *MockPostgresClient) InjectCommitFailures(n int, err error) {
	if err == nil {
		err = ierr.NewError("injected commit failure").
			WithHint("Database is unavailable").
			Mark(ierr.ErrDatabase)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitFailures = n
	c.commitErr = err
}

// Commits returns how many outermost transactions committed
func (c *MockPostgresClient) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

// Rollbacks returns how many outermost transactions rolled back
func (c *MockPostgresClient) Rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbacks
}

// Reset clears injected failures and counters
func (c *MockPostgresClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitFailures = 0
	c.commitErr = nil
	c.commits = 0
	c.rollbacks = 0
}

func (c *MockPostgresClient) takeCommitFailure() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commitFailures <= 0 {
		return nil
	}
	c.commitFailures--
	return c.commitErr
}

func (c *MockPostgresClient) count(committed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if committed {
		c.commits++
	} else {
		c.rollbacks++
	}
}

func (c *MockPostgresClient) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.locks[key]
	if !ok {
		m = &sync.Mutex{}
		c.locks[key] = m
	}
	return m
}

func (tx *mockTx) mark() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return len(tx.undo)
}

func (tx *mockTx) rollbackTo(mark int) {
	tx.mu.Lock()
	undo := tx.undo[mark:]
	tx.undo = tx.undo[:mark]
	tx.mu.Unlock()

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

func (tx *mockTx) release() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for key, m := range tx.held {
		m.Unlock()
		delete(tx.held, key)
	}
}

func txFromContext(ctx context.Context) (*mockTx, bool) {
	tx, ok := ctx.Value(mockTxKey{}).(*mockTx)
	return tx, ok
}

// InTx reports whether ctx carries a mock transaction
func InTx(ctx context.Context) bool {
	_, ok := txFromContext(ctx)
	return ok
}

// LockRow takes the row lock named key for the transaction in ctx, blocking
// while another transaction holds it
func LockRow(ctx context.Context, key string) error {
	tx, ok := txFromContext(ctx)
	if !ok {
		return ierr.NewError("row lock requested outside a transaction").
			WithHint("Row lock requires a transaction").
			Mark(ierr.ErrSystem)
	}

	tx.mu.Lock()
	_, held := tx.held[key]
	tx.mu.Unlock()
	if held {
		return nil
	}

	m := tx.client.lockFor(key)
	m.Lock()

	tx.mu.Lock()
	tx.held[key] = m
	tx.mu.Unlock()
	return nil
}

// OnRollback registers fn to undo a write if the transaction in ctx rolls
// back. Writes outside a transaction are final.
func OnRollback(ctx context.Context, fn func()) {
	tx, ok := txFromContext(ctx)
	if !ok {
		return
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.undo = append(tx.undo, fn)
}
