package services

import "agrichain/internal/models"

// IsOwner decides whether an order belongs to the viewer. Consumers own the
// orders they bought; farmers own the orders placed against produce they
// currently own. Addresses compare case-insensitively.
func IsOwner(viewer models.Viewer, order *models.Order, produce *models.Produce) bool {
	if order == nil {
		return false
	}
	switch viewer.Role {
	case models.RoleConsumer:
		return models.SameAddress(order.Buyer, viewer.Address)
	case models.RoleFarmer:
		return produce != nil && models.SameAddress(produce.CurrentOwner, viewer.Address)
	}
	return false
}
