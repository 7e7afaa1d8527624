package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agrichain/internal/models"

	"github.com/google/uuid"
)

// MockTransactionRepository is an in-memory implementation of TransactionRepository.
type MockTransactionRepository struct {
	txs map[string]models.Transaction
	mu  sync.RWMutex
}

// NewMockTransactionRepository creates a new instance of MockTransactionRepository.
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		txs: make(map[string]models.Transaction),
	}
}

// Create stores a transaction, generating its id when empty.
func (r *MockTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Status == "" {
		tx.Status = models.TxStatusPending
	}
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = tx.CreatedAt
	r.txs[tx.ID] = *tx
	return nil
}

// GetByID returns a transaction by its ID.
func (r *MockTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.txs[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return &tx, nil
}

// SetStatus records the outcome of a transaction.
func (r *MockTransactionRepository) SetStatus(ctx context.Context, id string, status models.TxStatus, reason string) error {
	return r.update(ctx, id, func(tx *models.Transaction) {
		tx.Status = status
		tx.RevertReason = reason
	})
}

// LinkOrder sets the order id of a transaction.
func (r *MockTransactionRepository) LinkOrder(ctx context.Context, id string, orderID uint64) error {
	return r.update(ctx, id, func(tx *models.Transaction) {
		tx.OrderID = orderID
	})
}

func (r *MockTransactionRepository) update(ctx context.Context, id string, fn func(*models.Transaction)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.txs[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	fn(&tx)
	tx.UpdatedAt = time.Now()
	r.txs[id] = tx
	return nil
}
