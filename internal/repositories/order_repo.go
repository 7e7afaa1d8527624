package repositories

import (
	"context"

	"agrichain/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Count returns orderCount: ids 1..Count have been assigned.
	Count(ctx context.Context) (uint64, error)
	GetByID(ctx context.Context, id uint64) (*models.Order, error)
	// Create stores a new order, assigning the next id when order.ID is zero.
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, order *models.Order) error
}
