package handlers

import (
	"context"

	"agrichain/internal/middleware"
	"agrichain/internal/models"
	"agrichain/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleListOrders)
	orderRoutes.Get("/counts", h.HandleCounts)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Get("/:id/record", h.HandleGetOrderRecord)
	orderRoutes.Post("/", h.HandlePlaceOrder)
	orderRoutes.Post("/:id/accept", h.HandleAcceptOrder)
	orderRoutes.Post("/:id/reject", h.HandleRejectOrder)
	orderRoutes.Post("/:id/deliver", h.HandleMarkDelivered)
	orderRoutes.Post("/:id/refund", h.HandleClaimRefund)
}

// HandleListOrders returns the viewer's orders under the ?filter= tab.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	listing, err := h.service.ListOrders(c.UserContext(), middleware.ViewerAddress(c), c.Query("filter"))
	if err != nil {
		return respondError(c, "Could not retrieve orders", err)
	}
	return c.JSON(listing)
}

// HandleCounts returns the viewer's per-tab order counts.
func (h *OrderHandler) HandleCounts(c *fiber.Ctx) error {
	counts, err := h.service.Counts(c.UserContext(), middleware.ViewerAddress(c))
	if err != nil {
		return respondError(c, "Could not count orders", err)
	}
	return c.JSON(counts)
}

// HandleGetOrderByID retrieves one of the viewer's orders.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid order id", err)
	}
	order, err := h.service.GetOrder(c.UserContext(), middleware.ViewerAddress(c), id)
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// HandleGetOrderRecord returns one of the viewer's orders as the contract tuple.
func (h *OrderHandler) HandleGetOrderRecord(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid order id", err)
	}
	rec, err := h.service.GetOrderRecord(c.UserContext(), middleware.ViewerAddress(c), id)
	if err != nil {
		return respondError(c, "Could not retrieve order", err)
	}
	return c.JSON(rec)
}

// HandlePlaceOrder submits a purchase against a produce listing.
func (h *OrderHandler) HandlePlaceOrder(c *fiber.Ctx) error {
	var req services.PlaceOrderCommand
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	tx, err := h.service.PlaceOrder(c.UserContext(), middleware.ViewerAddress(c), req)
	if err != nil {
		return respondError(c, "Could not place order", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(tx)
}

// HandleAcceptOrder submits acceptance of a pending order.
func (h *OrderHandler) HandleAcceptOrder(c *fiber.Ctx) error {
	return h.transition(c, "Could not accept order", h.service.AcceptOrder)
}

// HandleMarkDelivered submits delivery of an accepted order.
func (h *OrderHandler) HandleMarkDelivered(c *fiber.Ctx) error {
	return h.transition(c, "Could not mark order delivered", h.service.MarkDelivered)
}

// HandleClaimRefund submits a refund claim for a rejected order.
func (h *OrderHandler) HandleClaimRefund(c *fiber.Ctx) error {
	return h.transition(c, "Could not claim refund", h.service.ClaimRefund)
}

// HandleRejectOrder submits rejection of a pending order. The body carries the reason.
func (h *OrderHandler) HandleRejectOrder(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid order id", err)
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	tx, err := h.service.RejectOrder(c.UserContext(), middleware.ViewerAddress(c), id, req.Reason)
	if err != nil {
		return respondError(c, "Could not reject order", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(tx)
}

type orderTransition func(ctx context.Context, address string, id uint64) (*models.Transaction, error)

func (h *OrderHandler) transition(c *fiber.Ctx, message string, submit orderTransition) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid order id", err)
	}
	tx, err := submit(c.UserContext(), middleware.ViewerAddress(c), id)
	if err != nil {
		return respondError(c, message, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(tx)
}
