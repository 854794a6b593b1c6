package delivery

import (
	"github.com/gofiber/fiber/v2"

	"go-qms/pkg/utils"
)

type DeliveryController struct {
	Service DeliveryService
}

func NewDeliveryController(service DeliveryService) *DeliveryController {
	return &DeliveryController{Service: service}
}

// CreateSchedule godoc
// @Summary Create a delivery schedule
// @Tags deliveries
// @Accept json
// @Produce json
// @Param schedule body DeliverySchedule true "Schedule definition"
// @Success 201 {object} DeliverySchedule
// @Router /api/deliveries/schedules [post]
func (c *DeliveryController) CreateSchedule(ctx *fiber.Ctx) error {
	var schedule DeliverySchedule
	if err := ctx.BodyParser(&schedule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		schedule.CreatedBy = claims.UserID
	}
	if err := c.Service.CreateSchedule(ctx.Context(), &schedule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(schedule)
}

func (c *DeliveryController) ListSchedules(ctx *fiber.Ctx) error {
	schedules, err := c.Service.ListSchedules(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(schedules)
}

func (c *DeliveryController) GetSchedule(ctx *fiber.Ctx) error {
	schedule, err := c.Service.GetSchedule(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "schedule not found"})
	}
	return ctx.JSON(schedule)
}

func (c *DeliveryController) UpdateSchedule(ctx *fiber.Ctx) error {
	schedule, err := c.Service.GetSchedule(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "schedule not found"})
	}
	if err := ctx.BodyParser(schedule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.UpdateSchedule(ctx.Context(), schedule); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(schedule)
}

func (c *DeliveryController) DeleteSchedule(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteSchedule(ctx.Context(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "schedule deleted"})
}

// Execute godoc
// @Summary Fire a delivery schedule now
// @Tags deliveries
// @Produce json
// @Success 200 {object} ScheduledDelivery
// @Router /api/deliveries/schedules/{id}/execute [post]
func (c *DeliveryController) Execute(ctx *fiber.Ctx) error {
	delivery, err := c.Service.Execute(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(delivery)
}

func (c *DeliveryController) ListDeliveries(ctx *fiber.Ctx) error {
	limit := int64(ctx.QueryInt("limit", 50))
	deliveries, err := c.Service.ListDeliveries(ctx.Context(), ctx.Query("schedule_id"), limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(deliveries)
}
