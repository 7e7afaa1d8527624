package orderstatus

import (
	"strings"

	"agrichain/internal/models"
)

// Bucket is the dashboard tab an order is counted under, besides "all".
type Bucket uint8

const (
	BucketNone Bucket = iota
	BucketPending
	BucketActive
	BucketCompleted
)

// Classify places a (status, deliveryStatus) pair in at most one bucket.
// Rules are evaluated in order: an order that is both pending and in delivery
// counts as pending, and an accepted order counts as active whatever its
// delivery status. Completed requires both COMPLETED and DELIVERED.
// Rejected, refunded and unrecognized combinations fall in no bucket.
func Classify(status models.OrderStatus, delivery models.DeliveryStatus) Bucket {
	switch {
	case status == models.OrderStatusPending:
		return BucketPending
	case status == models.OrderStatusAccepted || delivery == models.DeliveryStatusInDelivery:
		return BucketActive
	case status == models.OrderStatusCompleted && delivery == models.DeliveryStatusDelivered:
		return BucketCompleted
	}
	return BucketNone
}

// Filter is the active tab on an orders board.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ParseFilter maps a query value to a Filter. Empty means all; anything
// unrecognized is kept as-is and matches every order.
func ParseFilter(s string) Filter {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FilterAll
	}
	return Filter(s)
}

// Known reports whether f is one of the four board tabs.
func (f Filter) Known() bool {
	switch f {
	case FilterAll, FilterPending, FilterActive, FilterCompleted:
		return true
	}
	return false
}

// Matches decides whether an owned order is listed under f. It shares
// Classify with Counter so tab lists and tab counts always agree. As a
// consequence PENDING with IN_DELIVERY is listed under pending only, not
// under active as well.
func (f Filter) Matches(status models.OrderStatus, delivery models.DeliveryStatus) bool {
	switch f {
	case FilterPending:
		return Classify(status, delivery) == BucketPending
	case FilterActive:
		return Classify(status, delivery) == BucketActive
	case FilterCompleted:
		return Classify(status, delivery) == BucketCompleted
	}
	return true
}
