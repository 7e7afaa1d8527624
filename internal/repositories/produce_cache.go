package repositories

import (
	"context"
	"strconv"
	"time"

	"agrichain/internal/models"

	gocache "github.com/patrickmn/go-cache"
)

// CachedProduceRepository serves GetByID from an in-memory cache. Every order
// card on a board reads its produce, and most boards hold many orders per
// listing, so the ownership lookups mostly hit the cache.
type CachedProduceRepository struct {
	ProduceRepository
	store *gocache.Cache
}

// NewCachedProduceRepository wraps next with a cache whose entries live for ttl.
func NewCachedProduceRepository(next ProduceRepository, ttl time.Duration) *CachedProduceRepository {
	return &CachedProduceRepository{
		ProduceRepository: next,
		store:             gocache.New(ttl, 2*ttl),
	}
}

// GetByID returns a cached copy of the listing, loading it on a miss.
func (r *CachedProduceRepository) GetByID(ctx context.Context, id uint64) (*models.Produce, error) {
	key := cacheKey(id)
	if v, ok := r.store.Get(key); ok {
		p := v.(models.Produce)
		return &p, nil
	}

	p, err := r.ProduceRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store.SetDefault(key, *p)
	return p, nil
}

// Update writes through and drops the cached entry.
func (r *CachedProduceRepository) Update(ctx context.Context, produce *models.Produce) error {
	defer r.Invalidate(produce.ID)
	return r.ProduceRepository.Update(ctx, produce)
}

// Invalidate drops the cached entry for id.
func (r *CachedProduceRepository) Invalidate(id uint64) {
	r.store.Delete(cacheKey(id))
}

func cacheKey(id uint64) string {
	return "produce:" + strconv.FormatUint(id, 10)
}
