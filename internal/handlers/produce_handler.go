package handlers

import (
	"fmt"
	"strconv"

	"agrichain/internal/middleware"
	"agrichain/internal/models"
	"agrichain/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProduceView is a listing with display fields.
type ProduceView struct {
	*models.Produce
	TypeLabel     string `json:"type_label"`
	PriceEth      string `json:"price_eth"`
	OwnerChecksum string `json:"owner_checksum"`
	OwnerShort    string `json:"owner_short"`
	Unit          string `json:"unit"`
}

func newProduceView(p *models.Produce) ProduceView {
	owner, err := models.ChecksumAddress(p.CurrentOwner)
	if err != nil {
		owner = p.CurrentOwner
	}
	unit := "unit"
	if p.IsBulk() {
		unit = "kg"
	}
	return ProduceView{
		Produce:       p,
		TypeLabel:     p.ProduceType.Label(),
		PriceEth:      models.FormatEther(p.CurrentPrice),
		OwnerChecksum: owner,
		OwnerShort:    models.ShortAddress(owner),
		Unit:          unit,
	}
}

// ProduceHandler handles HTTP requests for produce listings.
type ProduceHandler struct {
	service *services.OrderService
}

// NewProduceHandler creates a new ProduceHandler.
func NewProduceHandler(service *services.OrderService) *ProduceHandler {
	return &ProduceHandler{
		service: service,
	}
}

// RegisterRoutes registers the produce routes with the Fiber app.
func (h *ProduceHandler) RegisterRoutes(router fiber.Router) {
	produceRoutes := router.Group("/produce")
	produceRoutes.Get("/", h.HandleListProduce)
	produceRoutes.Get("/mine", h.HandleListOwnProduce)
	produceRoutes.Get("/:id", h.HandleGetProduceByID)
	produceRoutes.Get("/:id/record", h.HandleGetProduceRecord)
	produceRoutes.Post("/", h.HandleRegisterProduce)
	produceRoutes.Put("/:id", h.HandleEditProduce)
}

func newProduceViews(list []models.Produce) []ProduceView {
	views := make([]ProduceView, 0, len(list))
	for i := range list {
		views = append(views, newProduceView(&list[i]))
	}
	return views
}

// HandleListProduce returns the marketplace. Optional filters: ?q=, ?grade=,
// ?type= and ?available=true.
func (h *ProduceHandler) HandleListProduce(c *fiber.Ctx) error {
	q := services.ProduceQuery{
		Search:        c.Query("q"),
		Grade:         c.Query("grade"),
		AvailableOnly: c.QueryBool("available"),
	}
	if raw := c.Query("type"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 8)
		if err != nil || n > uint64(models.ProduceTypeOther) {
			return badRequest(c, "Invalid produce type", fmt.Errorf("type %q", raw))
		}
		pt := models.ProduceType(n)
		q.Type = &pt
	}
	list, err := h.service.ListProduce(c.UserContext(), q)
	if err != nil {
		return respondError(c, "Could not retrieve produce", err)
	}
	return c.JSON(fiber.Map{
		"count":    len(list),
		"produces": newProduceViews(list),
	})
}

// HandleListOwnProduce returns the connected farmer's listings.
func (h *ProduceHandler) HandleListOwnProduce(c *fiber.Ctx) error {
	list, err := h.service.ListOwnProduce(c.UserContext(), middleware.ViewerAddress(c))
	if err != nil {
		return respondError(c, "Could not retrieve produce", err)
	}
	return c.JSON(fiber.Map{
		"count":    len(list),
		"produces": newProduceViews(list),
	})
}

// HandleGetProduceByID retrieves a single listing.
func (h *ProduceHandler) HandleGetProduceByID(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid produce id", err)
	}
	p, err := h.service.GetProduce(c.UserContext(), id)
	if err != nil {
		return respondError(c, "Could not retrieve produce", err)
	}
	return c.JSON(newProduceView(p))
}

// HandleGetProduceRecord returns a listing as the contract tuple.
func (h *ProduceHandler) HandleGetProduceRecord(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid produce id", err)
	}
	rec, err := h.service.GetProduceRecord(c.UserContext(), id)
	if err != nil {
		return respondError(c, "Could not retrieve produce", err)
	}
	return c.JSON(rec)
}

// HandleRegisterProduce submits a new listing for the connected farmer.
func (h *ProduceHandler) HandleRegisterProduce(c *fiber.Ctx) error {
	var req services.RegisterProduceCommand
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	tx, err := h.service.RegisterProduce(c.UserContext(), middleware.ViewerAddress(c), req)
	if err != nil {
		return respondError(c, "Could not register produce", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(tx)
}

// HandleEditProduce submits new details for one of the connected farmer's listings.
func (h *ProduceHandler) HandleEditProduce(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, "Invalid produce id", err)
	}
	var req services.EditProduceCommand
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	req.ProduceID = id
	tx, err := h.service.EditProduce(c.UserContext(), middleware.ViewerAddress(c), req)
	if err != nil {
		return respondError(c, "Could not edit produce", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(tx)
}
