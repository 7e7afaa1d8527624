package handlers

import (
	"agrichain/internal/middleware"
	"agrichain/internal/models"
	"agrichain/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AccountHandler handles HTTP requests for the role registry.
type AccountHandler struct {
	service *services.OrderService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(service *services.OrderService) *AccountHandler {
	return &AccountHandler{
		service: service,
	}
}

// RegisterRoutes registers the account routes with the Fiber app.
func (h *AccountHandler) RegisterRoutes(router fiber.Router) {
	accountRoutes := router.Group("/accounts")
	accountRoutes.Get("/me", h.HandleMe)
	accountRoutes.Post("/role", h.HandleRegisterRole)
}

// HandleMe returns the connected address and the role it registered under.
func (h *AccountHandler) HandleMe(c *fiber.Ctx) error {
	viewer, err := h.service.Viewer(c.UserContext(), middleware.ViewerAddress(c))
	if err != nil {
		return respondError(c, "Could not look up account", err)
	}
	checksum, err := models.ChecksumAddress(viewer.Address)
	if err != nil {
		return respondError(c, "Could not look up account", err)
	}
	return c.JSON(fiber.Map{
		"address":       checksum,
		"short_address": models.ShortAddress(checksum),
		"role":          viewer.Role,
		"role_name":     viewer.Role.String(),
		"registered":    viewer.Role != models.RoleNone,
	})
}

// HandleRegisterRole submits a one-time role registration.
func (h *AccountHandler) HandleRegisterRole(c *fiber.Ctx) error {
	var req services.RegisterRoleCommand
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	tx, err := h.service.RegisterRole(c.UserContext(), middleware.ViewerAddress(c), req)
	if err != nil {
		return respondError(c, "Registration failed", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(tx)
}
