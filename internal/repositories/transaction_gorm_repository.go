package repositories

import (
	"context"
	"errors"
	"fmt"

	"agrichain/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTransactionRepository is a GORM implementation of TransactionRepository.
type GORMTransactionRepository struct {
	db *gorm.DB
}

// NewGORMTransactionRepository creates a new instance of GORMTransactionRepository.
func NewGORMTransactionRepository(db *gorm.DB) *GORMTransactionRepository {
	return &GORMTransactionRepository{
		db: db,
	}
}

// Create inserts a transaction, generating its id when empty.
func (r *GORMTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Status == "" {
		tx.Status = models.TxStatusPending
	}
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction receipt.
func (r *GORMTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return &tx, nil
}

// SetStatus records the outcome of a transaction.
func (r *GORMTransactionRepository) SetStatus(ctx context.Context, id string, status models.TxStatus, reason string) error {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "revert_reason": reason})
	if res.Error != nil {
		return fmt.Errorf("failed to set status of transaction %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

// LinkOrder sets the order id of a transaction.
func (r *GORMTransactionRepository) LinkOrder(ctx context.Context, id string, orderID uint64) error {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", id).Update("order_id", orderID)
	if res.Error != nil {
		return fmt.Errorf("failed to link transaction %s to order %d: %w", id, orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}
