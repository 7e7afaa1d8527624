package repositories

import (
	"context"
	"errors"
	"fmt"

	"agrichain/internal/models"

	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// Count returns the highest assigned order id.
func (r *GORMOrderRepository) Count(ctx context.Context) (uint64, error) {
	var last uint64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Select("COALESCE(MAX(id), 0)").Scan(&last).Error; err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return last, nil
}

// GetByID retrieves a single order by its ID from the database.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id uint64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return &order, nil
}

// Create inserts a new order, assigning the next id when none is set.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == 0 {
		last, err := r.Count(ctx)
		if err != nil {
			return err
		}
		order.ID = last + 1
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Update saves every field of an existing order.
func (r *GORMOrderRepository) Update(ctx context.Context, order *models.Order) error {
	res := r.db.WithContext(ctx).Model(order).Select("*").Omit("created_at").Updates(order)
	if res.Error != nil {
		return fmt.Errorf("failed to update order %d: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %d: %w", order.ID, ErrNotFound)
	}
	return nil
}
