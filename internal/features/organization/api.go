package organization

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type OrganizationApi struct {
	controller *OrganizationController
	config     *config.Config
}

func NewOrganizationApi(controller *OrganizationController, config *config.Config) *OrganizationApi {
	return &OrganizationApi{
		controller: controller,
		config:     config,
	}
}

func (h *OrganizationApi) Setup(app *fiber.App) {
	departments := app.Group("/api/departments", middleware.AuthMiddleware(h.config.SkipAuth))
	manage := middleware.RequireRole(h.config.SkipAuth, "admin")

	departments.Post("/", manage, h.controller.CreateDepartment)
	departments.Get("/", h.controller.ListDepartments)
	departments.Get("/:id", h.controller.GetDepartment)
	departments.Get("/:id/analytics", h.controller.Analytics)
	departments.Put("/:id", manage, h.controller.UpdateDepartment)
	departments.Delete("/:id", manage, h.controller.DeleteDepartment)
}
