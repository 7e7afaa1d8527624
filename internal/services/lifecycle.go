package services

import (
	"fmt"

	"agrichain/internal/models"
)

// transition is a contract call that moves an order between states.
type transition struct {
	actor        models.Role
	from         models.OrderStatus
	fromDelivery *models.DeliveryStatus
	to           models.OrderStatus
	toDelivery   models.DeliveryStatus
}

var inDelivery = models.DeliveryStatusInDelivery

var transitions = map[models.TxMethod]transition{
	// Acceptance puts the order straight into delivery.
	models.TxAcceptOrder: {
		actor: models.RoleFarmer, from: models.OrderStatusPending,
		to: models.OrderStatusAccepted, toDelivery: models.DeliveryStatusInDelivery,
	},
	models.TxRejectOrder: {
		actor: models.RoleFarmer, from: models.OrderStatusPending,
		to: models.OrderStatusRejected, toDelivery: models.DeliveryStatusNone,
	},
	models.TxMarkDelivered: {
		actor: models.RoleFarmer, from: models.OrderStatusAccepted, fromDelivery: &inDelivery,
		to: models.OrderStatusCompleted, toDelivery: models.DeliveryStatusDelivered,
	},
	models.TxClaimRefund: {
		actor: models.RoleConsumer, from: models.OrderStatusRejected,
		to: models.OrderStatusRefunded, toDelivery: models.DeliveryStatusNone,
	},
}

// checkTransition verifies that caller, registered under role, may apply
// method to order. produce is the listing the order was placed against.
func checkTransition(method models.TxMethod, caller string, role models.Role, order *models.Order, produce *models.Produce) (transition, error) {
	t, ok := transitions[method]
	if !ok {
		return transition{}, fmt.Errorf("%w: %s is not an order transition", ErrInvalidRequest, method)
	}
	if role == models.RoleNone {
		return transition{}, ErrNotRegistered
	}
	actor := models.Viewer{Address: caller, Role: role}
	if role != t.actor || !IsOwner(actor, order, produce) {
		return transition{}, fmt.Errorf("%w: %s on order %d", ErrForbidden, method, order.ID)
	}
	if !order.Status.IsValid() || !order.DeliveryStatus.IsValid() {
		return transition{}, fmt.Errorf("%w: order %d has unknown state %d/%d", ErrInvalidTransition, order.ID, order.Status, order.DeliveryStatus)
	}
	if order.Status.IsTerminal() {
		return transition{}, fmt.Errorf("%w: order %d is already %s", ErrInvalidTransition, order.ID, order.Status)
	}
	if order.Status != t.from || !order.Status.CanTransitionTo(t.to) {
		return transition{}, fmt.Errorf("%w: %s on %s order %d", ErrInvalidTransition, method, order.Status, order.ID)
	}
	if t.fromDelivery != nil && order.DeliveryStatus != *t.fromDelivery {
		return transition{}, fmt.Errorf("%w: %s on order %d with delivery %s", ErrInvalidTransition, method, order.ID, order.DeliveryStatus)
	}
	return t, nil
}

// checkProduceEdit verifies that caller lists produce and that cmd keeps
// every sold kilogram accounted for.
func checkProduceEdit(caller string, produce *models.Produce, cmd EditProduceCommand) error {
	if !models.SameAddress(produce.CurrentOwner, caller) {
		return fmt.Errorf("%w: produce %d is not listed by %s", ErrForbidden, produce.ID, caller)
	}
	sold := produce.TotalQuantityKg - produce.AvailableQuantityKg
	if cmd.TotalQuantityKg < sold {
		return fmt.Errorf("%w: total %d is below the %d already sold", ErrInsufficientStock, cmd.TotalQuantityKg, sold)
	}
	return nil
}
