package quality

import (
	"github.com/gofiber/fiber/v2"

	"go-qms/pkg/utils"
)

type QualityController struct {
	Service QualityService
}

func NewQualityController(service QualityService) *QualityController {
	return &QualityController{Service: service}
}

// CreateEvent godoc
// @Summary Open a quality event
// @Tags quality
// @Accept json
// @Produce json
// @Param event body QualityEvent true "Event"
// @Success 201 {object} QualityEvent
// @Router /api/quality/events [post]
func (c *QualityController) CreateEvent(ctx *fiber.Ctx) error {
	var event QualityEvent
	if err := ctx.BodyParser(&event); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if event.ReportedBy == "" {
		event.ReportedBy = actorID(ctx)
	}
	if err := c.Service.CreateEvent(ctx.Context(), &event); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(event)
}

func (c *QualityController) GetEvent(ctx *fiber.Ctx) error {
	event, err := c.Service.GetEvent(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quality event not found"})
	}
	return ctx.JSON(event)
}

// ListEvents godoc
// @Summary List quality events
// @Tags quality
// @Produce json
// @Param status query string false "Filter by status"
// @Param severity query string false "Filter by severity"
// @Router /api/quality/events [get]
func (c *QualityController) ListEvents(ctx *fiber.Ctx) error {
	events, err := c.Service.ListEvents(ctx.Context(), ctx.Query("status"), ctx.Query("severity"), int64(ctx.QueryInt("limit")))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(events)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (c *QualityController) UpdateEventStatus(ctx *fiber.Ctx) error {
	var req statusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	event, err := c.Service.UpdateEventStatus(ctx.Context(), ctx.Params("id"), req.Status)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(event)
}

// CreateCAPA godoc
// @Summary Create a corrective or preventive action
// @Tags quality
// @Accept json
// @Produce json
// @Param capa body CAPA true "CAPA"
// @Success 201 {object} CAPA
// @Router /api/quality/capas [post]
func (c *QualityController) CreateCAPA(ctx *fiber.Ctx) error {
	var capa CAPA
	if err := ctx.BodyParser(&capa); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.CreateCAPA(ctx.Context(), &capa); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(capa)
}

func (c *QualityController) GetCAPA(ctx *fiber.Ctx) error {
	capa, err := c.Service.GetCAPA(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "capa not found"})
	}
	return ctx.JSON(capa)
}

func (c *QualityController) ListCAPAs(ctx *fiber.Ctx) error {
	capas, err := c.Service.ListCAPAs(ctx.Context(), ctx.Query("status"), int64(ctx.QueryInt("limit")))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(capas)
}

func (c *QualityController) UpdateCAPAStatus(ctx *fiber.Ctx) error {
	var req statusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	capa, err := c.Service.UpdateCAPAStatus(ctx.Context(), ctx.Params("id"), req.Status)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(capa)
}

func (c *QualityController) CreateDocument(ctx *fiber.Ctx) error {
	var doc ControlledDocument
	if err := ctx.BodyParser(&doc); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.CreateDocument(ctx.Context(), &doc); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(doc)
}

func (c *QualityController) ListDocuments(ctx *fiber.Ctx) error {
	docs, err := c.Service.ListDocuments(ctx.Context(), ctx.Query("status"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(docs)
}

func (c *QualityController) UpdateDocument(ctx *fiber.Ctx) error {
	var doc ControlledDocument
	if err := ctx.BodyParser(&doc); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.UpdateDocument(ctx.Context(), ctx.Params("id"), &doc); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(doc)
}

func actorID(ctx *fiber.Ctx) string {
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		return claims.UserID
	}
	return "system"
}
