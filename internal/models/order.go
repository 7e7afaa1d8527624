package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the contract's order status enum.
type OrderStatus uint8

const (
	OrderStatusNone OrderStatus = iota
	OrderStatusPending
	OrderStatusAccepted
	OrderStatusRejected
	OrderStatusRefunded
	OrderStatusCompleted
)

// IsValid checks if the status is one the contract can report.
func (s OrderStatus) IsValid() bool {
	return s <= OrderStatusCompleted
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusRefunded
}

// String returns the upper-case contract name of the status.
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusNone:
		return "NONE"
	case OrderStatusPending:
		return "PENDING"
	case OrderStatusAccepted:
		return "ACCEPTED"
	case OrderStatusRejected:
		return "REJECTED"
	case OrderStatusRefunded:
		return "REFUNDED"
	case OrderStatusCompleted:
		return "COMPLETED"
	}
	return "INVALID"
}

// CanTransitionTo checks if the status can transition to the target status.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusAccepted || target == OrderStatusRejected
	case OrderStatusAccepted:
		return target == OrderStatusCompleted
	case OrderStatusRejected:
		return target == OrderStatusRefunded
	}
	return false
}

// DeliveryStatus mirrors the contract's delivery status enum.
type DeliveryStatus uint8

const (
	DeliveryStatusNone DeliveryStatus = iota
	DeliveryStatusInDelivery
	DeliveryStatusDelivered
)

// IsValid checks if the delivery status is one the contract can report.
func (d DeliveryStatus) IsValid() bool {
	return d <= DeliveryStatusDelivered
}

// String returns the upper-case contract name of the delivery status.
func (d DeliveryStatus) String() string {
	switch d {
	case DeliveryStatusNone:
		return "NONE"
	case DeliveryStatusInDelivery:
		return "IN_DELIVERY"
	case DeliveryStatusDelivered:
		return "DELIVERED"
	}
	return "INVALID"
}

// Order represents one purchase against a produce listing, as recorded by the contract.
type Order struct {
	ID               uint64          `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ProduceID        uint64          `json:"produce_id" gorm:"index;not null"`
	Buyer            string          `json:"buyer" gorm:"index;type:varchar(42);not null"`
	QuantityKg       uint64          `json:"quantity_kg" gorm:"not null"`
	AmountPaid       decimal.Decimal `json:"amount_paid" gorm:"type:varchar(80);not null"` // wei
	Status           OrderStatus     `json:"status" gorm:"not null"`
	DeliveryStatus   DeliveryStatus  `json:"delivery_status" gorm:"not null"`
	DeliveryAddress  string          `json:"delivery_address" gorm:"type:text"`
	RejectionMessage string          `json:"rejection_message,omitempty" gorm:"type:text"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
