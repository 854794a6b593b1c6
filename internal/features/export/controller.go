package export

import (
	"github.com/gofiber/fiber/v2"
)

type ExportController struct {
	Service ExportService
}

func NewExportController(service ExportService) *ExportController {
	return &ExportController{Service: service}
}

func (c *ExportController) CreateSetting(ctx *fiber.Ctx) error {
	var setting ExportSetting
	if err := ctx.BodyParser(&setting); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.CreateSetting(ctx.Context(), &setting); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(setting)
}

func (c *ExportController) GetSetting(ctx *fiber.Ctx) error {
	setting, err := c.Service.GetSetting(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "export setting not found"})
	}
	return ctx.JSON(setting)
}

func (c *ExportController) ListSettings(ctx *fiber.Ctx) error {
	settings, err := c.Service.ListSettings(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(settings)
}

func (c *ExportController) UpdateSetting(ctx *fiber.Ctx) error {
	var setting ExportSetting
	if err := ctx.BodyParser(&setting); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.UpdateSetting(ctx.Context(), ctx.Params("id"), &setting); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(setting)
}

func (c *ExportController) DeleteSetting(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteSetting(ctx.Context(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "export setting deleted"})
}

// RunExport godoc
// @Summary Run a regulatory export
// @Description Pushes rows changed since the last run into the Postgres warehouse.
// @Tags exports
// @Produce json
// @Param id path string true "Setting ID"
// @Success 200 {object} ExportRun
// @Router /api/exports/{id}/run [post]
func (c *ExportController) RunExport(ctx *fiber.Ctx) error {
	run, err := c.Service.RunExport(ctx.Context(), ctx.Params("id"))
	if err != nil {
		status := fiber.StatusBadRequest
		if run != nil {
			status = fiber.StatusBadGateway
		}
		return ctx.Status(status).JSON(fiber.Map{"error": err.Error(), "run": run})
	}
	return ctx.JSON(run)
}

func (c *ExportController) ListRuns(ctx *fiber.Ctx) error {
	runs, err := c.Service.ListRuns(ctx.Context(), ctx.Params("id"), int64(ctx.QueryInt("limit")))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(runs)
}
