package services

import (
	"context"
	"sort"
	"sync"

	"agrichain/internal/logger"
	"agrichain/internal/models"
	"agrichain/internal/orderstatus"
	"agrichain/internal/repositories"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Board is one viewer's orders page: the orders they own and the status
// counts over them. Each order is tracked like a mounted card: it registers
// with the counter once resolved and owned, re-registers when its status
// changes and deregisters when it is no longer owned or is unmounted.
type Board struct {
	resolver *OrderResolver
	orders   repositories.OrderRepository
	limit    int
	counter  *orderstatus.Counter

	mu     sync.Mutex
	viewer models.Viewer
	cards  map[uint64]Resolution
	// latest holds the generation of the newest in-flight refresh per order.
	// Results from older generations are dropped.
	latest map[uint64]uint64
	gen    uint64
}

// NewBoard creates an empty board for viewer. limit bounds concurrent resolves during Sync.
func NewBoard(viewer models.Viewer, resolver *OrderResolver, orders repositories.OrderRepository, limit int) *Board {
	if limit < 1 {
		limit = 1
	}
	return &Board{
		resolver: resolver,
		orders:   orders,
		limit:    limit,
		counter:  orderstatus.NewCounter(),
		viewer:   viewer,
		cards:    make(map[uint64]Resolution),
		latest:   make(map[uint64]uint64),
	}
}

// Viewer returns the account the board is rendered for.
func (b *Board) Viewer() models.Viewer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewer
}

// Reset clears every card and count and rebinds the board to viewer.
// In-flight refreshes started before Reset are discarded.
func (b *Board) Reset(viewer models.Viewer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.viewer = viewer
	b.cards = make(map[uint64]Resolution)
	b.latest = make(map[uint64]uint64)
	b.counter.Reset()
}

// Refresh resolves one order and applies the result to the counts.
func (b *Board) Refresh(ctx context.Context, id uint64) error {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.latest[id] = gen
	viewer := b.viewer
	b.mu.Unlock()

	res, err := b.resolver.Resolve(ctx, id, viewer)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	b.apply(id, gen, res)
	return err
}

// Unmount deregisters an order and abandons any refresh in flight for it.
func (b *Board) Unmount(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.latest, id)
	b.dropCard(id)
}

func (b *Board) apply(id, gen uint64, res Resolution) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.latest[id] != gen {
		return
	}
	delete(b.latest, id)

	switch res.State {
	case StateLoading:
		// Keep whatever was registered until the reads settle.
	case StateNotOwned:
		b.dropCard(id)
	case StateOwned:
		if prev, ok := b.cards[id]; ok {
			b.counter.Update(id, prev.Order.Status, prev.Order.DeliveryStatus, false)
		}
		b.cards[id] = res
		b.counter.Update(id, res.Order.Status, res.Order.DeliveryStatus, true)
	}
}

// dropCard deregisters a card. Callers hold b.mu.
func (b *Board) dropCard(id uint64) {
	prev, ok := b.cards[id]
	if !ok {
		return
	}
	delete(b.cards, id)
	b.counter.Update(id, prev.Order.Status, prev.Order.DeliveryStatus, false)
}

// Sync refreshes every order id from 1 to the contract's order count and
// unmounts cards above it. Orders resolve concurrently and in any order;
// a failed read leaves that order as it was.
func (b *Board) Sync(ctx context.Context) error {
	count, err := b.orders.Count(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for id := uint64(1); id <= count; id++ {
		g.Go(func() error {
			if err := b.Refresh(gctx, id); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.L().Warn("order stays loading", zap.Uint64("order_id", id), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	b.mu.Lock()
	for id := range b.cards {
		if id > count {
			b.dropCard(id)
		}
	}
	b.mu.Unlock()
	return nil
}

// Counts returns the current tally.
func (b *Board) Counts() orderstatus.StatusCounts {
	return b.counter.Counts()
}

// Orders returns the owned orders listed under filter, by ascending id.
func (b *Board) Orders(filter orderstatus.Filter) []Resolution {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := make([]Resolution, 0, len(b.cards))
	for _, res := range b.cards {
		if filter.Matches(res.Order.Status, res.Order.DeliveryStatus) {
			list = append(list, res)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Order.ID < list[j].Order.ID })
	return list
}

// Card returns the owned resolution of one order, if the board holds it.
func (b *Board) Card(id uint64) (Resolution, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	res, ok := b.cards[id]
	return res, ok
}
