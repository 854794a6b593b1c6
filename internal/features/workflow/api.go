package workflow

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WorkflowApi struct {
	controller *WorkflowController
	config     *config.Config
}

func NewWorkflowApi(controller *WorkflowController, config *config.Config) *WorkflowApi {
	return &WorkflowApi{
		controller: controller,
		config:     config,
	}
}

func (h *WorkflowApi) Setup(app *fiber.App) {
	workflows := app.Group("/api/workflows", middleware.AuthMiddleware(h.config.SkipAuth))

	manage := middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin")
	workflows.Post("/", manage, h.controller.CreateDefinition)
	workflows.Put("/:id", manage, h.controller.UpdateDefinition)
	workflows.Delete("/:id", manage, h.controller.DeleteDefinition)

	workflows.Get("/", h.controller.ListDefinitions)
	workflows.Get("/runs", h.controller.ListRuns)
	workflows.Get("/runs/:id", h.controller.GetRun)
	workflows.Get("/:id", h.controller.GetDefinition)
	workflows.Post("/:id/run", h.controller.Run)
}
