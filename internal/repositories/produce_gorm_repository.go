package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agrichain/internal/models"

	"gorm.io/gorm"
)

// GORMProduceRepository is a GORM implementation of ProduceRepository.
type GORMProduceRepository struct {
	db *gorm.DB
}

// NewGORMProduceRepository creates a new instance of GORMProduceRepository.
func NewGORMProduceRepository(db *gorm.DB) *GORMProduceRepository {
	return &GORMProduceRepository{
		db: db,
	}
}

// GetAll retrieves all listings from the database.
func (r *GORMProduceRepository) GetAll(ctx context.Context) ([]models.Produce, error) {
	var produces []models.Produce
	if err := r.db.WithContext(ctx).Order("id").Find(&produces).Error; err != nil {
		return nil, fmt.Errorf("failed to get all produce: %w", err)
	}
	return produces, nil
}

// GetByID retrieves a single listing by its ID from the database.
func (r *GORMProduceRepository) GetByID(ctx context.Context, id uint64) (*models.Produce, error) {
	var produce models.Produce
	if err := r.db.WithContext(ctx).First(&produce, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("produce %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get produce %d: %w", id, err)
	}
	return &produce, nil
}

// GetByOwner retrieves the listings currently owned by owner.
func (r *GORMProduceRepository) GetByOwner(ctx context.Context, owner string) ([]models.Produce, error) {
	var produces []models.Produce
	err := r.db.WithContext(ctx).
		Where("LOWER(current_owner) = ?", strings.ToLower(owner)).
		Order("id").
		Find(&produces).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get produce owned by %s: %w", owner, err)
	}
	return produces, nil
}

// Create inserts a new listing, assigning the next id when none is set.
func (r *GORMProduceRepository) Create(ctx context.Context, produce *models.Produce) error {
	if produce.ID == 0 {
		var last uint64
		if err := r.db.WithContext(ctx).Model(&models.Produce{}).Select("COALESCE(MAX(id), 0)").Scan(&last).Error; err != nil {
			return fmt.Errorf("failed to count produce: %w", err)
		}
		produce.ID = last + 1
	}
	if err := r.db.WithContext(ctx).Create(produce).Error; err != nil {
		return fmt.Errorf("failed to create produce: %w", err)
	}
	return nil
}

// Update saves every field of an existing listing.
func (r *GORMProduceRepository) Update(ctx context.Context, produce *models.Produce) error {
	res := r.db.WithContext(ctx).Model(produce).Select("*").Omit("created_at").Updates(produce)
	if res.Error != nil {
		return fmt.Errorf("failed to update produce %d: %w", produce.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("produce %d: %w", produce.ID, ErrNotFound)
	}
	return nil
}
