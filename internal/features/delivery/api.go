package delivery

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DeliveryApi struct {
	controller *DeliveryController
	config     *config.Config
}

func NewDeliveryApi(controller *DeliveryController, config *config.Config) *DeliveryApi {
	return &DeliveryApi{
		controller: controller,
		config:     config,
	}
}

func (h *DeliveryApi) Setup(app *fiber.App) {
	deliveries := app.Group("/api/deliveries", middleware.AuthMiddleware(h.config.SkipAuth))

	manage := middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin")
	schedules := deliveries.Group("/schedules")
	schedules.Post("/", manage, h.controller.CreateSchedule)
	schedules.Get("/", h.controller.ListSchedules)
	schedules.Get("/:id", h.controller.GetSchedule)
	schedules.Put("/:id", manage, h.controller.UpdateSchedule)
	schedules.Delete("/:id", manage, h.controller.DeleteSchedule)
	schedules.Post("/:id/execute", manage, h.controller.Execute)

	deliveries.Get("/", h.controller.ListDeliveries)
}
