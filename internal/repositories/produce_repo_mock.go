package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"agrichain/internal/models"
)

// MockProduceRepository is an in-memory implementation of ProduceRepository.
type MockProduceRepository struct {
	produces map[uint64]models.Produce
	last     uint64
	mu       sync.RWMutex
}

// NewMockProduceRepository creates a new instance of MockProduceRepository.
func NewMockProduceRepository() *MockProduceRepository {
	return &MockProduceRepository{
		produces: make(map[uint64]models.Produce),
	}
}

// GetAll returns all listings ordered by id.
func (r *MockProduceRepository) GetAll(ctx context.Context) ([]models.Produce, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Produce, 0, len(r.produces))
	for _, p := range r.produces {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// GetByID returns a listing by its ID.
func (r *MockProduceRepository) GetByID(ctx context.Context, id uint64) (*models.Produce, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.produces[id]
	if !ok {
		return nil, fmt.Errorf("produce %d: %w", id, ErrNotFound)
	}
	return &p, nil
}

// GetByOwner returns the listings currently owned by owner.
func (r *MockProduceRepository) GetByOwner(ctx context.Context, owner string) ([]models.Produce, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	owned := all[:0]
	for _, p := range all {
		if models.SameAddress(p.CurrentOwner, owner) {
			owned = append(owned, p)
		}
	}
	return owned, nil
}

// Create adds a new listing.
func (r *MockProduceRepository) Create(ctx context.Context, produce *models.Produce) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if produce.ID == 0 {
		produce.ID = r.last + 1
	}
	if _, exists := r.produces[produce.ID]; exists {
		return fmt.Errorf("produce %d already exists", produce.ID)
	}
	if produce.ID > r.last {
		r.last = produce.ID
	}
	produce.CreatedAt = time.Now()
	produce.UpdatedAt = produce.CreatedAt
	r.produces[produce.ID] = *produce
	return nil
}

// Update modifies an existing listing.
func (r *MockProduceRepository) Update(ctx context.Context, produce *models.Produce) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.produces[produce.ID]; !ok {
		return fmt.Errorf("produce %d: %w", produce.ID, ErrNotFound)
	}
	produce.UpdatedAt = time.Now()
	r.produces[produce.ID] = *produce
	return nil
}
