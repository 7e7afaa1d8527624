package services

import (
	"context"
	"errors"

	"agrichain/internal/models"
	"agrichain/internal/orderstatus"
	"agrichain/internal/repositories"
)

// ResolveState is the outcome of resolving one order for a viewer.
type ResolveState uint8

const (
	// StateLoading means a read has not returned (or the record is not indexed yet).
	StateLoading ResolveState = iota
	// StateNotOwned means the order exists but is not the viewer's.
	StateNotOwned
	// StateOwned means the order is the viewer's and has a display label.
	StateOwned
)

// Resolution is one order as seen by one viewer.
type Resolution struct {
	State   ResolveState
	Order   *models.Order
	Produce *models.Produce
	Label   orderstatus.Label
}

// OrderResolver reads an order and its produce and decides ownership and display status.
type OrderResolver struct {
	orders   repositories.OrderRepository
	produces repositories.ProduceRepository
}

// NewOrderResolver creates a new OrderResolver.
func NewOrderResolver(orders repositories.OrderRepository, produces repositories.ProduceRepository) *OrderResolver {
	return &OrderResolver{
		orders:   orders,
		produces: produces,
	}
}

// Resolve resolves order id for viewer. The produce read depends on the order
// read. Missing records leave the resolution loading with no error; failed
// reads leave it loading and return the error. A cancelled ctx yields only
// ctx's error.
func (r *OrderResolver) Resolve(ctx context.Context, id uint64, viewer models.Viewer) (Resolution, error) {
	order, err := r.orders.GetByID(ctx, id)
	if err != nil {
		return loading(ctx, err)
	}
	produce, err := r.produces.GetByID(ctx, order.ProduceID)
	if err != nil {
		return loading(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}

	if !IsOwner(viewer, order, produce) {
		return Resolution{State: StateNotOwned}, nil
	}
	return Resolution{
		State:   StateOwned,
		Order:   order,
		Produce: produce,
		Label:   orderstatus.Display(order.Status, order.DeliveryStatus),
	}, nil
}

func loading(ctx context.Context, err error) (Resolution, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Resolution{}, ctxErr
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return Resolution{State: StateLoading}, nil
	}
	return Resolution{State: StateLoading}, err
}
