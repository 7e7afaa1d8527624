package repositories

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Repositories groups the repositories a ledger write touches.
type Repositories struct {
	Accounts     AccountRepository
	Orders       OrderRepository
	Produces     ProduceRepository
	Transactions TransactionRepository
}

// Store runs a unit of work against repositories that commit or roll back together.
type Store interface {
	Atomic(ctx context.Context, fn func(repos Repositories) error) error
}

// GORMStore runs each unit of work in a database transaction.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a new instance of GORMStore.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{
		db: db,
	}
}

// Atomic commits when fn returns nil and rolls back otherwise.
func (s *GORMStore) Atomic(ctx context.Context, fn func(repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Repositories{
			Accounts:     NewGORMAccountRepository(tx),
			Orders:       NewGORMOrderRepository(tx),
			Produces:     NewGORMProduceRepository(tx),
			Transactions: NewGORMTransactionRepository(tx),
		})
	})
}

// MockStore serializes units of work over in-memory repositories. It does not
// roll back, so callers must check everything before their first write.
type MockStore struct {
	repos Repositories
	mu    sync.Mutex
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(repos Repositories) *MockStore {
	return &MockStore{
		repos: repos,
	}
}

// Atomic runs fn while holding the store lock.
func (s *MockStore) Atomic(ctx context.Context, fn func(repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.repos)
}
