package lims

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type LimsApi struct {
	controller *LimsController
	config     *config.Config
}

func NewLimsApi(controller *LimsController, config *config.Config) *LimsApi {
	return &LimsApi{
		controller: controller,
		config:     config,
	}
}

func (h *LimsApi) Setup(app *fiber.App) {
	lims := app.Group("/api/lims", middleware.AuthMiddleware(h.config.SkipAuth))
	release := middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin")

	samples := lims.Group("/samples")
	samples.Post("/", h.controller.RegisterSample)
	samples.Get("/", h.controller.ListSamples)
	samples.Get("/:id", h.controller.GetSample)
	samples.Post("/:id/custody", h.controller.TransferCustody)
	samples.Put("/:id/status", release, h.controller.UpdateSampleStatus)

	executions := lims.Group("/executions")
	executions.Post("/", h.controller.CreateExecution)
	executions.Get("/", h.controller.ListExecutions)
	executions.Get("/:id", h.controller.GetExecution)
	executions.Post("/:id/results", h.controller.RecordResult)
	executions.Post("/:id/complete", h.controller.CompleteExecution)
}
