package training

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TrainingApi struct {
	controller *TrainingController
	config     *config.Config
}

func NewTrainingApi(controller *TrainingController, config *config.Config) *TrainingApi {
	return &TrainingApi{
		controller: controller,
		config:     config,
	}
}

func (h *TrainingApi) Setup(app *fiber.App) {
	training := app.Group("/api/training", middleware.AuthMiddleware(h.config.SkipAuth))
	manage := middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin")

	training.Get("/summary", h.controller.Summary)

	assignments := training.Group("/assignments")
	assignments.Post("/", manage, h.controller.CreateAssignment)
	assignments.Get("/", h.controller.ListAssignments)
	assignments.Post("/:id/complete", h.controller.CompleteAssignment)
	assignments.Post("/:id/waive", manage, h.controller.WaiveAssignment)
}
