package handlers

import (
	"agrichain/internal/services"

	"github.com/gofiber/fiber/v2"
)

// TransactionHandler serves receipts of submitted transactions.
type TransactionHandler struct {
	service *services.OrderService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(service *services.OrderService) *TransactionHandler {
	return &TransactionHandler{
		service: service,
	}
}

// RegisterRoutes registers the transaction routes with the Fiber app.
func (h *TransactionHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/transactions/:id", h.HandleGetTransaction)
}

// HandleGetTransaction returns a receipt. Clients poll it until the status
// leaves pending.
func (h *TransactionHandler) HandleGetTransaction(c *fiber.Ctx) error {
	tx, err := h.service.GetTransaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve transaction", err)
	}
	return c.JSON(tx)
}
