package organization

import (
	"github.com/gofiber/fiber/v2"
)

type OrganizationController struct {
	Service OrganizationService
}

func NewOrganizationController(service OrganizationService) *OrganizationController {
	return &OrganizationController{Service: service}
}

func (c *OrganizationController) CreateDepartment(ctx *fiber.Ctx) error {
	var department Department
	if err := ctx.BodyParser(&department); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.CreateDepartment(ctx.Context(), &department); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(department)
}

func (c *OrganizationController) GetDepartment(ctx *fiber.Ctx) error {
	department, err := c.Service.GetDepartment(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "department not found"})
	}
	return ctx.JSON(department)
}

func (c *OrganizationController) ListDepartments(ctx *fiber.Ctx) error {
	departments, err := c.Service.ListDepartments(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(departments)
}

func (c *OrganizationController) UpdateDepartment(ctx *fiber.Ctx) error {
	var department Department
	if err := ctx.BodyParser(&department); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.UpdateDepartment(ctx.Context(), ctx.Params("id"), &department); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(department)
}

func (c *OrganizationController) DeleteDepartment(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteDepartment(ctx.Context(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "department deleted"})
}

// Analytics godoc
// @Summary Department analytics
// @Description Training completion, open quality records, and the compliance score trend for one department.
// @Tags departments
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} DepartmentAnalytics
// @Router /api/departments/{id}/analytics [get]
func (c *OrganizationController) Analytics(ctx *fiber.Ctx) error {
	analytics, err := c.Service.Analytics(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(analytics)
}
