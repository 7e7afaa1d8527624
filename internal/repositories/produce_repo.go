package repositories

import (
	"context"

	"agrichain/internal/models"
)

// ProduceRepository defines the interface for produce data access.
type ProduceRepository interface {
	GetAll(ctx context.Context) ([]models.Produce, error)
	GetByID(ctx context.Context, id uint64) (*models.Produce, error)
	GetByOwner(ctx context.Context, owner string) ([]models.Produce, error)
	// Create stores a new listing, assigning the next id when produce.ID is zero.
	Create(ctx context.Context, produce *models.Produce) error
	Update(ctx context.Context, produce *models.Produce) error
}
