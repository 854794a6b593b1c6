package report

import (
	"github.com/gofiber/fiber/v2"

	"go-qms/pkg/utils"
)

type ReportController struct {
	Service ReportService
}

func NewReportController(service ReportService) *ReportController {
	return &ReportController{Service: service}
}

func (c *ReportController) CreateReport(ctx *fiber.Ctx) error {
	var definition ReportDefinition
	if err := ctx.BodyParser(&definition); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		definition.CreatedBy = claims.UserID
	}
	if err := c.Service.CreateReport(ctx.Context(), &definition); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(definition)
}

func (c *ReportController) GetReport(ctx *fiber.Ctx) error {
	definition, err := c.Service.GetReport(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report not found"})
	}
	return ctx.JSON(definition)
}

func (c *ReportController) ListReports(ctx *fiber.Ctx) error {
	definitions, err := c.Service.ListReports(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(definitions)
}

func (c *ReportController) UpdateReport(ctx *fiber.Ctx) error {
	var definition ReportDefinition
	if err := ctx.BodyParser(&definition); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.UpdateReport(ctx.Context(), ctx.Params("id"), &definition); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(definition)
}

func (c *ReportController) DeleteReport(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteReport(ctx.Context(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "report deleted"})
}

func (c *ReportController) RunReport(ctx *fiber.Ctx) error {
	rows, err := c.Service.Run(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"rows": rows, "count": len(rows)})
}

// ExportReport godoc
// @Summary Export a report as Excel or CSV
// @Tags reports
// @Produce octet-stream
// @Param id path string true "Report ID"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Router /api/reports/{id}/export [get]
func (c *ReportController) ExportReport(ctx *fiber.Ctx) error {
	definition, err := c.Service.GetReport(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report not found"})
	}
	format := ctx.Query("format", FormatExcel)
	filename, contentType, content, err := c.Service.Build(ctx.Context(), definition.Name, format)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	ctx.Set("Content-Type", contentType)
	ctx.Set("Content-Disposition", "attachment; filename="+filename)
	return ctx.Send(content)
}
