package repositories

import (
	"context"

	"agrichain/internal/models"
)

// TransactionRepository stores submitted contract writes and their receipts.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	SetStatus(ctx context.Context, id string, status models.TxStatus, reason string) error
	// LinkOrder records the order a placeOrder transaction created.
	LinkOrder(ctx context.Context, id string, orderID uint64) error
}
