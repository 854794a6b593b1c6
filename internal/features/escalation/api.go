package escalation

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type EscalationApi struct {
	controller *EscalationController
	config     *config.Config
}

func NewEscalationApi(controller *EscalationController, config *config.Config) *EscalationApi {
	return &EscalationApi{
		controller: controller,
		config:     config,
	}
}

func (h *EscalationApi) Setup(app *fiber.App) {
	escalations := app.Group("/api/escalations", middleware.AuthMiddleware(h.config.SkipAuth))

	workflows := escalations.Group("/workflows", middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin"))
	workflows.Post("/", h.controller.CreateWorkflow)
	workflows.Get("/", h.controller.ListWorkflows)
	workflows.Get("/:id", h.controller.GetWorkflow)
	workflows.Put("/:id", h.controller.UpdateWorkflow)
	workflows.Delete("/:id", h.controller.DeleteWorkflow)

	executions := escalations.Group("/executions")
	executions.Post("/", h.controller.StartExecution)
	executions.Get("/", h.controller.ListExecutions)
	executions.Get("/pending", h.controller.PendingApprovals)
	executions.Get("/:id", h.controller.GetExecution)
	executions.Post("/:id/approve", h.controller.Approve)
	executions.Post("/:id/reject", h.controller.Reject)
	executions.Post("/:id/cancel", h.controller.Cancel)
}
