package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"agrichain/internal/logger"
	"agrichain/internal/models"
	"agrichain/internal/repositories"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// BoardRegistry keeps one Board per viewer address. Boards nobody has looked
// at for idleTTL are dropped.
type BoardRegistry struct {
	resolver *OrderResolver
	orders   repositories.OrderRepository
	limit    int

	mu     sync.Mutex
	boards *gocache.Cache
}

// NewBoardRegistry creates a new BoardRegistry.
func NewBoardRegistry(resolver *OrderResolver, orders repositories.OrderRepository, limit int, idleTTL time.Duration) *BoardRegistry {
	return &BoardRegistry{
		resolver: resolver,
		orders:   orders,
		limit:    limit,
		boards:   gocache.New(idleTTL, idleTTL),
	}
}

// For returns the viewer's board. A board whose viewer changed role is reset
// so it never counts orders seen under the previous role.
func (r *BoardRegistry) For(viewer models.Viewer) *Board {
	key := strings.ToLower(viewer.Address)

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.boards.Get(key); ok {
		b := v.(*Board)
		if b.Viewer() != viewer {
			b.Reset(viewer)
		}
		r.boards.SetDefault(key, b)
		return b
	}

	b := NewBoard(viewer, r.resolver, r.orders, r.limit)
	r.boards.SetDefault(key, b)
	return b
}

// Evict drops the board of address.
func (r *BoardRegistry) Evict(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boards.Delete(strings.ToLower(address))
}

// RefreshOrder re-resolves one order on every live board.
func (r *BoardRegistry) RefreshOrder(ctx context.Context, id uint64) {
	for key, item := range r.boards.Items() {
		b := item.Object.(*Board)
		if err := b.Refresh(ctx, id); err != nil {
			logger.L().Warn("board refresh failed",
				zap.String("viewer", key), zap.Uint64("order_id", id), zap.Error(err))
		}
	}
}

// Len returns the number of live boards.
func (r *BoardRegistry) Len() int {
	return r.boards.ItemCount()
}
