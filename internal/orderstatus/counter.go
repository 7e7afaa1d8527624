package orderstatus

import (
	"sync"

	"agrichain/internal/models"
)

// StatusCounts is the tally shown on dashboard counters and tab badges.
type StatusCounts struct {
	All       int `json:"all"`
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

type contribution struct {
	status   models.OrderStatus
	delivery models.DeliveryStatus
}

// Counter aggregates StatusCounts from per-order registrations. It keeps the
// last known status of every registered order and recomputes the counts from
// that mapping on each change, so registering the same order twice counts it
// once and deregistering removes exactly what it contributed.
//
// A Counter is safe for concurrent use.
type Counter struct {
	mu      sync.Mutex
	entries map[uint64]contribution
	counts  StatusCounts
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{entries: make(map[uint64]contribution)}
}

// Update registers (visible) or deregisters (!visible) an order's contribution.
// A visible update replaces any earlier contribution for the same order.
func (c *Counter) Update(orderID uint64, status models.OrderStatus, delivery models.DeliveryStatus, visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if visible {
		next := contribution{status: status, delivery: delivery}
		if prev, ok := c.entries[orderID]; ok && prev == next {
			return
		}
		c.entries[orderID] = next
	} else {
		if _, ok := c.entries[orderID]; !ok {
			return
		}
		delete(c.entries, orderID)
	}
	c.recount()
}

// Reset drops every registration.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uint64]contribution)
	c.counts = StatusCounts{}
}

// Counts returns a snapshot of the current tally.
func (c *Counter) Counts() StatusCounts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

// Len returns the number of registered orders.
func (c *Counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// recount folds the entries into counts. Callers hold c.mu.
func (c *Counter) recount() {
	var counts StatusCounts
	for _, e := range c.entries {
		counts.All++
		switch Classify(e.status, e.delivery) {
		case BucketPending:
			counts.Pending++
		case BucketActive:
			counts.Active++
		case BucketCompleted:
			counts.Completed++
		}
	}
	c.counts = counts
}
